// Package devserver is an in-process implementation of the automation
// server contract, for development and end-to-end tests. It accepts events,
// accumulates workflows, serves whatever results a test or operator has
// loaded, and answers the liveness probe. It performs no automation.
package devserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/capsync/serverapi"
)

// Server holds the accumulated contract state.
type Server struct {
	logger *slog.Logger

	mu        sync.Mutex
	events    []serverapi.EventRecord
	results   []serverapi.Result
	workflows []serverapi.Workflow
	emails    []EmailRequest
	nextWF    int
}

// EmailRequest records one send-email call for inspection.
type EmailRequest struct {
	Result    serverapi.Result `json:"result"`
	Recipient string           `json:"recipient"`
}

// New creates an empty dev server.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, nextWF: 1}
}

// Router builds the HTTP contract surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Options("/event", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/event", s.handleEvent)
	r.Get("/events", s.handleEvents)
	r.Get("/results", s.handleResults)
	r.Post("/workflow", s.handleCreateWorkflow)
	r.Get("/workflows", s.handleWorkflows)
	r.Post("/send-email", s.handleSendEmail)
	r.Get("/dashboard", s.handleDashboard)
	return r
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	rec := serverapi.EventRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}

	s.mu.Lock()
	s.events = append(s.events, rec)
	n := len(s.events)
	s.mu.Unlock()

	s.logger.Info("devserver: event received",
		"event_type", payload["event_type"], "total", n)
	writeJSON(w, map[string]string{"status": "received"})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]serverapi.EventRecord(nil), s.events...)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"events": out})
}

func (s *Server) handleResults(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]serverapi.Result(nil), s.results...)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"results": out})
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query    string `json:"query"`
		UseSmart bool   `json:"use_smart"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	wf := serverapi.Workflow{
		ID:        fmt.Sprintf("%d", s.nextWF),
		Query:     req.Query,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.nextWF++
	s.workflows = append(s.workflows, wf)
	s.mu.Unlock()

	writeJSON(w, map[string]any{"status": "created", "workflow": wf})
}

func (s *Server) handleWorkflows(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]serverapi.Workflow(nil), s.workflows...)
	s.mu.Unlock()
	writeJSON(w, map[string]any{"workflows": out})
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid email request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.emails = append(s.emails, req)
	s.mu.Unlock()

	s.logger.Info("devserver: email recorded", "recipient", req.Recipient)
	writeJSON(w, map[string]string{"status": "sent"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	events, results, workflows := len(s.events), len(s.results), len(s.workflows)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html><title>capsync dev server</title>
<h1>capsync dev server</h1>
<ul>
<li>events: %d</li>
<li>results: %d</li>
<li>workflows: %d</li>
</ul>`, events, results, workflows)
}

// PushResult appends a result, making it the newest one pollers observe.
func (s *Server) PushResult(r serverapi.Result) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
}

// SetResults replaces the result list.
func (s *Server) SetResults(rs []serverapi.Result) {
	s.mu.Lock()
	s.results = append([]serverapi.Result(nil), rs...)
	s.mu.Unlock()
}

// Events returns a copy of the received events.
func (s *Server) Events() []serverapi.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]serverapi.EventRecord(nil), s.events...)
}

// Emails returns a copy of the recorded send-email calls.
func (s *Server) Emails() []EmailRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailRequest(nil), s.emails...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
