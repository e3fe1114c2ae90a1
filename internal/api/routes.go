package api

import "net/http"

// RegisterRoutes регистрирует маршруты API в mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	wrap := Chain(RequestLogger(h.logger), Logging, Recovery)

	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /api/v1/stages", h.CreateStage},
		{"GET /api/v1/stages/{id}", h.GetStage},
		{"GET /api/v1/stages/{id}/children", h.ListChildren},
		{"GET /api/v1/stages/{id}/tasks", h.GetTaskGraph},
		{"POST /api/v1/stages/{id}/cancel", h.CancelStage},
		{"POST /api/v1/stages/{id}/restart", h.RestartStage},

		{"GET /api/v1/executions/{id}/stages", h.ListExecutionStages},
	}

	for _, rt := range routes {
		mux.Handle(rt.pattern, wrap(rt.handler))
	}
}
