// v1
// server.go
package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// HTTPServer is the operator surface: liveness, loop status with the
// live crosswalk percentage, the latest camera frame, and a remote
// abort that behaves like the operator key.
type HTTPServer struct {
	cfg   *AppConfig
	lg    *slog.Logger
	eng   *Engine
	state *VehicleState
	stats *EngineStats
	http  *http.Server
}

func NewHTTPServer(cfg *AppConfig, lg *slog.Logger, eng *Engine, state *VehicleState, stats *EngineStats) *HTTPServer {
	s := &HTTPServer{cfg: cfg, lg: lg, eng: eng, state: state, stats: stats}
	r := mux.NewRouter()
	r.HandleFunc("/health", s.getHealth).Methods("GET")
	r.HandleFunc("/status", s.getStatus).Methods("GET")
	r.HandleFunc("/frame", s.getFrame).Methods("GET")
	r.HandleFunc("/abort", s.postAbort).Methods("POST")
	s.http = &http.Server{Addr: cfg.HTTPBind, Handler: handlers.LoggingHandler(os.Stdout, r)}
	return s
}

func (s *HTTPServer) Start() error {
	s.lg.Info("http start", "bind", s.cfg.HTTPBind)
	return s.http.ListenAndServe()
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.lg.Info("http stop")
	return s.http.Shutdown(ctx)
}

func (s *HTTPServer) getHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *HTTPServer) getStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stats.View()); err != nil {
		s.lg.Error("status encode", "error", err)
	}
}

// getFrame serves the latest camera frame bytes, the service's
// stand-in for the on-vehicle display window.
func (s *HTTPServer) getFrame(w http.ResponseWriter, _ *http.Request) {
	frame := s.state.Frame()
	if len(frame) == 0 {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no frame yet"))
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(frame)
}

func (s *HTTPServer) postAbort(w http.ResponseWriter, _ *http.Request) {
	s.lg.Info("abort requested over http")
	s.eng.RequestAbort()
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("aborting"))
}
