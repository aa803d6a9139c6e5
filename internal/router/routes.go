package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/davekyte/docdock/api/v1"
	"github.com/davekyte/docdock/internal/auth"
	"github.com/davekyte/docdock/internal/fetch"
	"github.com/davekyte/docdock/internal/service"
)

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, resolutionSvc service.Resolution, broker *fetch.Broker) *mux.Router {

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ready")); err != nil {
			logger.Error("write readyz response", "err", err)
		}
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	resolutionHandler := v1.NewResolutionHandler(logger, resolutionSvc, broker)

	r.Use(v1.RequestID)
	r.Use(resolutionHandler.Log)
	r.Use(auth.Middleware)

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/resolutions", resolutionHandler.GetResolutions)
	get.HandleFunc("/resolutions/{id}", resolutionHandler.GetResolution)
	get.HandleFunc("/resolutions/{id}/events", resolutionHandler.StreamEvents)

	// POSTs
	post := api.Methods("POST").Subrouter()
	post.HandleFunc("/resolutions", resolutionHandler.AddResolution)
	post.Use(v1.MiddlewareResolutionValidation)

	// PATCHes
	patch := api.Methods("PATCH").Subrouter()
	patch.HandleFunc("/resolutions/{id}", resolutionHandler.UpdateResolution)
	patch.Use(v1.MiddlewarePatchDesired)

	// DELETEs
	del := api.Methods("DELETE").Subrouter()
	del.HandleFunc("/consumers/{id}", resolutionHandler.DropConsumer)

	return r
}
