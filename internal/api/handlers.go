package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fairshare/internal/alloc"
	"fairshare/internal/metrics"
	"fairshare/internal/model"
	"fairshare/internal/solver"
	"fairshare/internal/store"
)

// DatasetsHandler handles POST/GET /v1/datasets
func (s *Server) DatasetsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var ds model.Dataset
		if err := decodeJSON(r, &ds); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateDataset(&ds); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid dataset", err.Error(), r.URL.Path)
			return
		}
		id, err := s.Store.SaveDataset(r.Context(), ds)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":       id,
			"donors":   len(ds.Donors),
			"agencies": len(ds.Agencies),
			"drivers":  len(ds.Drivers),
		})
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, next, err := s.Store.ListDatasets(r.Context(), r.URL.Query().Get("cursor"), limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DatasetByIDHandler handles GET /v1/datasets/{id}
func (s *Server) DatasetByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/datasets/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	ds, err := s.Store.GetDataset(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Dataset not found", id, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// AllocateHandler handles POST /v1/allocate
func (s *Server) AllocateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.AllocateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateAllocateRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid allocate request", err.Error(), r.URL.Path)
		return
	}
	ds, err := s.Store.GetDataset(r.Context(), req.DatasetID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Dataset not found", req.DatasetID, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get dataset failed", err.Error(), r.URL.Path)
		return
	}

	algo := req.Algorithm
	if algo == "" {
		algo = "greedy"
	}
	var runs []model.RunResult
	if algo == "greedy" || algo == "both" {
		runs = append(runs, s.runGreedy(&ds))
	}
	if algo == "egalitarian" || algo == "both" {
		run, err := s.runEgalitarian(r.Context(), &ds, &req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
			return
		}
		runs = append(runs, run)
	}
	for _, run := range runs {
		s.saveRun(run)
		if s.Notifier != nil {
			s.Notifier.Emit("run.completed", run)
		}
	}

	resp := map[string]any{"runs": runs}
	if len(runs) == 2 {
		resp["comparison"] = compareRuns(runs[0], runs[1])
	}
	writeJSON(w, http.StatusOK, resp)
}

// brokerObserver forwards allocator events to run subscribers and the log.
func (s *Server) brokerObserver(runID string) alloc.Observer {
	return alloc.ObserverFunc(func(e alloc.Event) {
		alloc.LogObserver.Event(e)
		data := map[string]any{
			"runId":       runID,
			"algorithm":   e.Algorithm,
			"status":      e.Status,
			"vars":        e.Vars,
			"constraints": e.Constraints,
			"elapsedMs":   e.Elapsed.Milliseconds(),
		}
		if e.Stage == "assignment" {
			data["agency"] = e.Agency
			data["ratio"] = e.Ratio
		}
		s.Broker.Publish(runID, RunEvent{Type: "alloc." + e.Stage, Data: data})
	})
}

func (s *Server) runGreedy(ds *model.Dataset) model.RunResult {
	runID := uuid.New().String()
	start := time.Now()
	allocation, utilities := alloc.Greedy(ds, s.brokerObserver(runID))
	elapsed := time.Since(start)

	run := model.RunResult{
		ID:         runID,
		DatasetID:  ds.ID,
		Algorithm:  "greedy",
		Status:     "completed",
		Allocation: allocation,
		Utilities:  utilities,
		Summary:    alloc.Summarize(ds.Agencies, allocation, utilities, nil),
		ElapsedMs:  elapsed.Milliseconds(),
	}
	metrics.AllocationRuns.WithLabelValues("greedy", run.Status).Inc()
	metrics.SolveDuration.WithLabelValues("greedy").Observe(elapsed.Seconds())
	metrics.AllocatedPounds.WithLabelValues("greedy").Observe(run.Summary.TotalPounds)
	return run
}

func (s *Server) runEgalitarian(ctx context.Context, ds *model.Dataset, req *model.AllocateRequest) (model.RunResult, error) {
	runID := uuid.New().String()
	budget := s.Config.Budget()
	if req.TimeBudgetMs > 0 {
		budget = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	steps := s.Config.TimeSteps
	if len(req.TimeSteps) > 0 {
		steps = req.TimeSteps
	}
	catWeights := s.Config.CategoryWeights
	if len(req.CategoryWeights) > 0 {
		catWeights = req.CategoryWeights
	}
	eg := &alloc.Egalitarian{
		Solver:          &solver.BranchBound{},
		TimeSteps:       steps,
		CategoryWeights: catWeights,
		Budget:          budget,
		Observer:        s.brokerObserver(runID),
	}
	res, err := eg.Allocate(ctx, ds)
	if err != nil {
		return model.RunResult{}, fmt.Errorf("egalitarian run %s: %w", runID, err)
	}
	run := model.RunResult{
		ID:         runID,
		DatasetID:  ds.ID,
		Algorithm:  "egalitarian",
		Status:     string(res.Status),
		Allocation: res.Allocation,
		Utilities:  res.Utilities,
		MinRatios:  res.MinRatios,
		Summary:    alloc.Summarize(ds.Agencies, res.Allocation, res.Utilities, res.MinRatios),
		ElapsedMs:  res.Elapsed.Milliseconds(),
	}
	metrics.AllocationRuns.WithLabelValues("egalitarian", run.Status).Inc()
	metrics.SolveDuration.WithLabelValues("egalitarian").Observe(res.Elapsed.Seconds())
	metrics.AllocatedPounds.WithLabelValues("egalitarian").Observe(run.Summary.TotalPounds)
	metrics.ModelVariables.Set(float64(res.Vars))
	metrics.ModelConstraints.Set(float64(res.Constraints))
	return run, nil
}

// compareRuns builds the side-by-side fairness block for algorithm=both.
func compareRuns(greedy, egal model.RunResult) map[string]any {
	block := func(run model.RunResult) map[string]any {
		return map[string]any{
			"status":         run.Status,
			"minPerPerson":   run.Summary.MinPerPerson,
			"avgPerPerson":   run.Summary.AvgPerPerson,
			"maxPerPerson":   run.Summary.MaxPerPerson,
			"rangePerPerson": run.Summary.RangePerPerson,
			"totalPounds":    run.Summary.TotalPounds,
			"agenciesServed": run.Summary.AgenciesServed,
		}
	}
	return map[string]any{"greedy": block(greedy), "egalitarian": block(egal)}
}

// RunByIDHandler handles GET /v1/runs/{id}, /v1/runs/{id}/report and
// /v1/runs/{id}/events/stream
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	if len(parts) == 3 && parts[1] == "events" && parts[2] == "stream" {
		s.streamRunEvents(w, r, id)
		return
	}

	run, ok := s.getRun(id)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Run not found", id, r.URL.Path)
		return
	}
	if len(parts) == 2 && parts[1] == "report" {
		writeJSON(w, http.StatusOK, run.Summary)
		return
	}
	if len(parts) > 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// streamRunEvents serves an SSE stream of run events.
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request, runID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(runID)
	defer s.Broker.Unsubscribe(runID, ch)

	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", runID, time.Now().Format(time.RFC3339))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			data, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
