// Package main runs a demo client: imports a dataset, runs both
// allocators, then listens on the run-event WebSocket.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a small dataset
	dataset := map[string]any{
		"donors": []map[string]any{
			{"name": "Greenway Market", "items": []map[string]any{
				{"weight": 25, "categories": map[string]float64{"produce": 20, "grain": 5}},
				{"weight": 10, "categories": map[string]float64{"produce": 10}},
			}},
			{"name": "Hillside Bakery", "items": []map[string]any{
				{"weight": 40, "categories": map[string]float64{"grain": 40}},
			}},
		},
		"agencies": []map[string]any{
			{"name": "North Pantry", "servedPerWk": 120, "tier": "FBE"},
			{"name": "South Kitchen", "servedPerWk": 80, "tier": "FBE"},
		},
		"drivers":   []map[string]any{{"name": "Van 1", "capacity": 500}},
		"adjacency": [][]bool{{true, true}, {true, true}},
	}
	body, _ := json.Marshal(dataset)
	resp, err := http.Post(base+"/v1/datasets", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("Dataset ID: %s", created.ID)

	// Run both allocators
	areq, _ := json.Marshal(map[string]any{"datasetId": created.ID, "algorithm": "both", "timeBudgetMs": 30000})
	resp, err = http.Post(base+"/v1/allocate", "application/json", bytes.NewReader(areq))
	if err != nil {
		log.Fatal(err)
	}
	var allocResp struct {
		Runs []struct {
			ID        string `json:"id"`
			Algorithm string `json:"algorithm"`
			Status    string `json:"status"`
		} `json:"runs"`
		Comparison map[string]any `json:"comparison"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&allocResp); err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	for _, run := range allocResp.Runs {
		log.Printf("Run %s: %s -> %s", run.ID, run.Algorithm, run.Status)
	}
	cmp, _ := json.MarshalIndent(allocResp.Comparison, "", "  ")
	log.Printf("Comparison:\n%s", cmp)
	if len(allocResp.Runs) == 0 {
		log.Fatal("no runs returned")
	}
	runID := allocResp.Runs[len(allocResp.Runs)-1].ID

	// Connect WS and subscribe to the run's event feed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]any{"runId": runID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
