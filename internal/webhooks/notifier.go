package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Notifier posts run lifecycle events to a single configured endpoint.
// Deliveries are queued in memory and retried with exponential backoff;
// the process does not persist undelivered events across restarts.
type Notifier struct {
	URL         string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int

	queue chan delivery
	stop  chan struct{}
}

type delivery struct {
	eventType string
	payload   []byte
	attempts  int
}

// NewFromEnv returns a Notifier configured by ALLOC_WEBHOOK_URL and
// ALLOC_WEBHOOK_SECRET, or nil when no URL is set.
func NewFromEnv() *Notifier {
	url := os.Getenv("ALLOC_WEBHOOK_URL")
	if url == "" {
		return nil
	}
	max := 10
	if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			max = n
		}
	}
	return &Notifier{
		URL:         url,
		Secret:      os.Getenv("ALLOC_WEBHOOK_SECRET"),
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: max,
		queue:       make(chan delivery, 256),
		stop:        make(chan struct{}),
	}
}

// Emit enqueues an event for delivery. Full queues drop the event rather
// than block the caller.
func (n *Notifier) Emit(eventType string, data any) {
	payload, err := json.Marshal(map[string]any{
		"id":   fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type": eventType,
		"ts":   time.Now().UTC().Format(time.RFC3339),
		"data": data,
	})
	if err != nil {
		return
	}
	select {
	case n.queue <- delivery{eventType: eventType, payload: payload}:
	default:
	}
}

// Start launches the delivery loop.
func (n *Notifier) Start() {
	go func() {
		for {
			select {
			case <-n.stop:
				return
			case d := <-n.queue:
				n.deliver(d)
			}
		}
	}()
}

// Stop halts the delivery loop. Queued events are discarded.
func (n *Notifier) Stop() { close(n.stop) }

func (n *Notifier) deliver(d delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(d.payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", d.eventType)
	if n.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(n.Secret, d.payload))
	}
	resp, err := n.HTTP.Do(req)
	if err == nil && resp != nil {
		code := resp.StatusCode
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		if code >= 200 && code < 300 {
			return
		}
	}
	d.attempts++
	if d.attempts >= n.MaxAttempts {
		return
	}
	go func() {
		select {
		case <-n.stop:
		case <-time.After(nextBackoff(d.attempts)):
			select {
			case n.queue <- d:
			default:
			}
		}
	}()
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}

// SignHMAC returns lowercase hex of HMAC-SHA256 over body.
func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks an HMAC-SHA256 signature over the raw body.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, b)
}
