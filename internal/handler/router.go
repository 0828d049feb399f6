package handler

import (
	"github.com/segyhp/loanlink/pkg/response"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter wires health checks and the authenticated /api/v1 routes.
func NewRouter(loans *LoanHandler, health *HealthHandler, authenticate mux.MiddlewareFunc, log *logrus.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(log), response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", health.Health).Methods("GET")
	router.HandleFunc("/health/ready", health.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authenticate)
	loans.Register(api)

	return router
}
