// Package testutil provides fake cluster node endpoints for tests.
package testutil

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/gorilla/mux"
)

// MetricsServer imitates a node's REST API: a /metrics endpoint exposing
// the backend state metric the health monitor polls
type MetricsServer struct {
	*httptest.Server

	// failures is the number of HTTP 500 responses left to serve before
	// the endpoint starts answering
	failures atomic.Int64
	// state is the backend_state value reported once answering
	state atomic.Int64
	// omitMetric drops the backend_state key from the payload entirely
	omitMetric atomic.Bool
	// requests counts /metrics hits
	requests atomic.Int64
}

// NewMetricsServer starts a fake node whose backend reports the given state
func NewMetricsServer(state int) *MetricsServer {
	s := &MetricsServer{}
	s.state.Store(int64(state))

	r := mux.NewRouter()
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.Server = httptest.NewServer(r)

	return s
}

// FailFirst makes the next n requests return HTTP 500
func (s *MetricsServer) FailFirst(n int) *MetricsServer {
	s.failures.Store(int64(n))
	return s
}

// OmitMetric removes the backend state metric from responses
func (s *MetricsServer) OmitMetric() *MetricsServer {
	s.omitMetric.Store(true)
	return s
}

// SetState changes the reported backend state
func (s *MetricsServer) SetState(state int) {
	s.state.Store(int64(state))
}

// Requests returns how many times /metrics was hit
func (s *MetricsServer) Requests() int {
	return int(s.requests.Load())
}

// Port returns the listening port of the fake node
func (s *MetricsServer) Port() int {
	return s.Listener.Addr().(*net.TCPAddr).Port
}

func (s *MetricsServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	if s.failures.Load() > 0 {
		s.failures.Add(-1)
		http.Error(w, "backend starting", http.StatusInternalServerError)
		return
	}

	metrics := map[string]map[string]int64{}
	if !s.omitMetric.Load() {
		metrics["backend.backend_state"] = map[string]int64{"value": s.state.Load()}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"metrics": metrics})
}
