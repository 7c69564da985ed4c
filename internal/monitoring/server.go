package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/proof-collab/proof-sync/internal/observability"
)

// Server provides HTTP endpoints for monitoring metrics
type Server struct {
	metrics *Metrics
	logger  *observability.Logger
	port    int
	server  *http.Server
	mu      sync.Mutex
}

// NewServer creates a new monitoring server
func NewServer(metrics *Metrics, logger *observability.Logger, port int) *Server {
	return &Server{
		metrics: metrics,
		logger:  logger,
		port:    port,
	}
}

// Start starts the monitoring HTTP server
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/metrics/summary", s.handleSummary)
	mux.HandleFunc("/metrics/operations", s.handleOperationMetrics)
	mux.HandleFunc("/metrics/conflicts", s.handleConflictMetrics)
	mux.HandleFunc("/metrics/complexity", s.handleComplexityMetrics)
	mux.HandleFunc("/metrics/errors", s.handleErrorMetrics)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		s.logger.Info("Starting monitoring server", zap.Int("port", s.port))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Monitoring server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the monitoring server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.metrics.GetSnapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.metrics.GetSnapshot().GetSummary())
}

func (s *Server) handleOperationMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.metrics.GetSnapshot().Operations)
}

func (s *Server) handleConflictMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.metrics.GetSnapshot().Conflicts)
}

func (s *Server) handleComplexityMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.metrics.GetSnapshot().Complexity)
}

func (s *Server) handleErrorMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.metrics.GetSnapshot().Errors)
}

// handleHealth returns health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.metrics.GetSnapshot()

	health := map[string]interface{}{
		"status":             "healthy",
		"uptime_seconds":     snapshot.Uptime.Seconds(),
		"pending_conflicts":  snapshot.Conflicts.PendingConflicts,
		"total_operations":   snapshot.Operations.TotalOperations,
		"error_rate":         float64(snapshot.Errors.TotalErrors) / snapshot.Uptime.Seconds(),
	}

	writeJSON(w, health)
}

func writeJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(w).Encode(value); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
