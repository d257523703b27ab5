package http

import (
	"net/http"

	"quizroom-service/internal/metrics"

	"github.com/gorilla/mux"
)

// NewRouter mounts the websocket endpoint with health and metrics.
func NewRouter(ws *WSHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws/quizroom/{roomID}", ws.ServeWS)
	return r
}
