package handler

import (
	"net/http"

	"smart-ocr-server/internal/domain"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(service domain.ConversionService, logger domain.Logger) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"smart-ocr-server"}`))
	}).Methods("GET")

	documentHandler := NewDocumentHandler(service, logger)
	runHandler := NewRunHandler(service, logger)

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(LoggingMiddleware(logger))

	// Document routes
	api.HandleFunc("/documents", documentHandler.LoadDocument).Methods("POST")
	api.HandleFunc("/documents/current", documentHandler.GetDocument).Methods("GET")
	api.HandleFunc("/documents/current/pages/{index}", documentHandler.GetPage).Methods("GET")

	// Run routes
	api.HandleFunc("/runs", runHandler.StartRun).Methods("POST")
	api.HandleFunc("/runs/current", runHandler.GetRun).Methods("GET")
	api.HandleFunc("/runs/current", runHandler.CancelRun).Methods("DELETE")
	api.HandleFunc("/runs/current/events", runHandler.StreamEvents).Methods("GET")

	// Results
	api.HandleFunc("/results/save", runHandler.SaveResults).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
		},
		MaxAge: 300,
	})

	return c.Handler(router)
}
