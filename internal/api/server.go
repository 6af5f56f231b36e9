// Package api exposes the monthly flight condition statistics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avmapper/metarcal/internal/stats"
)

type Server struct {
	analyzer    *stats.Analyzer
	port        string
	allowOrigin string
}

// NewServer creates the statistics API server. allowOrigin, when
// non-empty, is emitted as the CORS Access-Control-Allow-Origin header on
// API responses.
func NewServer(analyzer *stats.Analyzer, port, allowOrigin string) *Server {
	return &Server{analyzer: analyzer, port: port, allowOrigin: allowOrigin}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/statistics", s.handleStatistics)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleStatistics serves GET /api/statistics?airport_code=KSMO&month=6.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	airport := r.URL.Query().Get("airport_code")
	if airport == "" {
		s.writeError(w, http.StatusBadRequest, "airport_code is required")
		return
	}

	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		s.writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	dist, err := s.analyzer.MonthlyDistribution(airport, time.Month(month))
	if err != nil {
		log.Printf("statistics for %s: %v", airport, err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, dist)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if s.allowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", s.allowOrigin)
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
