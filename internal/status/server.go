// Package status hosts the optional, read-only debug/metrics HTTP
// server for a running Drone session: the drone's connection state
// (/healthz), the header fields of the most recent telemetry frame
// (/navdata), plus a Prometheus metrics endpoint. It never issues drone
// commands — it only observes.
package status

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ardrone "github.com/go-ardrone/drone2"
)

// Server is the status/metrics HTTP server for one Drone.
type Server struct {
	drone *ardrone.Drone
	mux   chi.Router
}

// New builds a Server for drone. Call ListenAndServe (or mount Handler
// yourself) to expose it.
func New(drone *ardrone.Drone) *Server {
	s := &Server{drone: drone}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/navdata", s.handleNavdata)
	r.Handle("/metrics", promhttp.Handler())

	s.mux = r
	return s
}

// Handler returns the server's http.Handler for embedding in a larger mux.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving the status server on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	log.Printf("status server listening addr=%s", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"drone_state": s.drone.State().String(),
	})
}

type navdataSnapshot struct {
	State    uint32 `json:"state"`
	Sequence uint32 `json:"sequence"`
	Vision   uint32 `json:"vision"`
}

func (s *Server) handleNavdata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	nd, ok := s.drone.LastNavdata()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(navdataSnapshot{
		State:    nd.State,
		Sequence: nd.Sequence,
		Vision:   nd.Vision,
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("status_request method=%s path=%s req_id=%s duration=%s",
			r.Method, r.URL.Path, middleware.GetReqID(r.Context()), time.Since(start))
	})
}

