package api

import "net/http"

// liveness reports that the process is alive.
func (s *Server) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness reports that the server can accept conversations. State is fully
// in memory, so readiness follows liveness.
func (s *Server) readiness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"conversations": len(s.registry.List()),
	})
}
