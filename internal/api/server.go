package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/adilyoltay/obsleessless-mobile-sub000/internal/syncq"
)

// Pinger is the storage health probe surfaced by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the local ops surface of the engine: health, metrics, and a
// manual sync trigger. It stands in for the mobile shell's debug screen;
// nothing here renders UI.
type Server struct {
	httpServer *http.Server
	store      Pinger
	queue      *syncq.Manager
	logger     *zerolog.Logger
	prometheus bool
}

func NewServer(port int, store Pinger, queue *syncq.Manager, prometheusEnabled bool, logger *zerolog.Logger) *Server {
	s := &Server{
		store:      store,
		queue:      queue,
		logger:     logger,
		prometheus: prometheusEnabled,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/sync/now", s.handleSyncNow)
	mux.HandleFunc("/sync/quarantine", s.handleQuarantine)
	mux.HandleFunc("/sync/replay", s.handleReplay)
	if prometheusEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start blocks serving until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("ops server started")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	storageOK := true
	if err := s.store.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		storageOK = false
		s.logger.Error().Err(err).Msg("storage health check failed")
	}

	writeJSON(w, status, map[string]interface{}{
		"storage": storageOK,
		"online":  s.queue.Online(),
		"pending": len(s.queue.Pending()),
	})
}

func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	drained, err := s.queue.ForceSyncNow(r.Context())
	if err != nil && err != syncq.ErrOffline {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":  s.queue.Online(),
		"drained": drained,
	})
}

func (s *Server) handleQuarantine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Quarantined())
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n, err := s.queue.ReplayQuarantine(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"replayed": n})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
