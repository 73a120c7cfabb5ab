package status

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CharlieJ515/lol-collector/internal/execution"
)

// snapshotInterval is how often progress snapshots go out to the hub.
const snapshotInterval = 5 * time.Second

// Server is the ops endpoint of a collector process. It never participates
// in collection; it only observes.
type Server struct {
	addr  string
	pool  *pgxpool.Pool
	stats *execution.Stats
	hub   *Hub
}

// NewServer builds a status server. pool and stats may be nil; the related
// surfaces degrade gracefully.
func NewServer(addr string, pool *pgxpool.Pool, stats *execution.Stats) *Server {
	return &Server{addr: addr, pool: pool, stats: stats, hub: newHub()}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.hub.handleWS)

	go s.hub.run(ctx)
	go s.broadcastLoop(ctx)

	srv := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("status: listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth reports service status and database connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Database  string `json:"database,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	w.Header().Set("Content-Type", "application/json")
	out := resp{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}

	if s.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pool.Ping(ctx); err != nil {
			out.Status = "error"
			out.Database = "disconnected"
			out.Error = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(out)
			return
		}
		out.Database = "connected"
	}

	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, "failed to encode health response", http.StatusInternalServerError)
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := struct {
				Timestamp string             `json:"timestamp"`
				Progress  execution.Snapshot `json:"progress"`
			}{
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Progress:  s.stats.Snapshot(),
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			s.hub.Broadcast(payload)
		}
	}
}
