package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"

	"fairshare/internal/config"
	"fairshare/internal/model"
	"fairshare/internal/store"
	"fairshare/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Broker   EventBroker
	Config   *config.Config
	Notifier *webhooks.Notifier // nil unless ALLOC_WEBHOOK_URL is set

	mu   sync.Mutex
	runs map[string]model.RunResult // run history lives in memory only
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory
// store; if REDIS_URL is unset, uses the in-process event broker.
func NewServer() (*Server, error) {
	cfg, err := config.Load(os.Getenv("ALLOC_CONFIG"))
	if err != nil {
		return nil, err
	}
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.EnsureSchema(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	notifier := webhooks.NewFromEnv()
	if notifier != nil {
		notifier.Start()
	}
	return &Server{Store: s, Broker: broker, Config: cfg, Notifier: notifier, runs: map[string]model.RunResult{}}, nil
}

func (s *Server) saveRun(run model.RunResult) {
	s.mu.Lock()
	s.runs[run.ID] = run
	s.mu.Unlock()
}

func (s *Server) getRun(id string) (model.RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	return run, ok
}

// HealthHandler responds to liveness probes.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler responds to readiness probes.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
