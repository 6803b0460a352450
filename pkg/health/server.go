// Package health serves liveness, readiness, metrics and a read-only view
// of stored threads over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinyland-inc/picorelay/pkg/logger"
	"github.com/tinyland-inc/picorelay/pkg/thread"
)

// Threads is the store view the server exposes.
type Threads interface {
	All() []*thread.Thread
	Get(id int64) (*thread.Thread, bool)
	Loaded() bool
}

type Server struct {
	threads  Threads
	gatherer prometheus.Gatherer
	version  string
	botReady atomic.Bool
	srv      *http.Server
}

func NewServer(threads Threads, gatherer prometheus.Gatherer, version string) *Server {
	return &Server{threads: threads, gatherer: gatherer, version: version}
}

// SetBotReady marks the platform identity as known.
func (s *Server) SetBotReady(ready bool) { s.botReady.Store(ready) }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/threads", s.handleThreads).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id:-?[0-9]+}", s.handleThread).Methods(http.MethodGet)
	return r
}

// Start listens on addr in the background. The returned channel receives
// the serve error, if any.
func (s *Server) Start(addr string) (<-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.InfoCF("health", "Health server listening", map[string]any{"addr": ln.Addr().String()})
	return errCh, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.threads.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store not loaded"})
		return
	}
	if !s.botReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "bot not connected"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

type threadSummary struct {
	ID           int64     `json:"id"`
	Handle       string    `json:"handle"`
	Active       bool      `json:"active"`
	Messages     int       `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	out := []threadSummary{}
	for _, t := range s.threads.All() {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, threadSummary{
			ID:           t.CounterpartyID,
			Handle:       t.DisplayHandle(),
			Active:       t.Active,
			Messages:     len(t.History),
			LastActivity: t.LastActivity(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	t, ok := s.threads.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "thread not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}
