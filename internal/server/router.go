package server

import "net/http"

// Router returns the handler chain for all endpoints.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process_excel", s.processExcel)
	mux.HandleFunc("GET /api/last_transactions", s.lastTransactions)
	mux.HandleFunc("GET /health", s.health)

	return Recovery(s.log)(Logger(s.log)(mux))
}
