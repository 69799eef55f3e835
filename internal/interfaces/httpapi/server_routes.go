package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
}

func registerPublicMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches", handler.ListMatches)
	mux.HandleFunc("GET /v1/matches/{matchID}", handler.GetMatch)
	mux.HandleFunc("GET /v1/matches/{matchID}/events", handler.ListMatchEvents)
}

func registerAdminMatchRoutes(mux *http.ServeMux, handler *Handler, adminToken string) {
	mux.Handle("POST /v1/admin/matches", RequireAdminToken(adminToken, http.HandlerFunc(handler.CreateMatch)))
	mux.Handle("PUT /v1/admin/matches/{matchID}/manual", RequireAdminToken(adminToken, http.HandlerFunc(handler.ManualUpdate)))
	mux.Handle("POST /v1/admin/matches/{matchID}/tracking/enable", RequireAdminToken(adminToken, http.HandlerFunc(handler.EnableTracking)))
	mux.Handle("POST /v1/admin/matches/{matchID}/tracking/disable", RequireAdminToken(adminToken, http.HandlerFunc(handler.DisableTracking)))
	mux.Handle("POST /v1/admin/matches/{matchID}/refresh", RequireAdminToken(adminToken, http.HandlerFunc(handler.RefreshMatch)))
	mux.Handle("DELETE /v1/admin/matches/finished", RequireAdminToken(adminToken, http.HandlerFunc(handler.DeleteFinishedMatches)))
}
