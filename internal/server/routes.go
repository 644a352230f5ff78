package server

import "net/http"

// registerRoutes wires every external endpoint onto mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/store/put/", s.handleStorePut)
	mux.HandleFunc("/store/get/", s.handleStoreGet)
	mux.HandleFunc("/store/delete/", s.handleStoreDelete)
	mux.HandleFunc("/store/metadata/get/", s.handleStoreMetadataGet)
	mux.HandleFunc("/users/login", s.handleUsersLogin)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
