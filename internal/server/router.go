// Package server exposes calendar sessions over HTTP and pushes enrichment
// commits to WebSocket clients.
package server

import (
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router with all API routes
func NewRouter(reg *Registry, hub *Hub, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(Logging(logger))
	r.Use(ErrorRecovery(logger))

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", HealthCheck(reg, hub)).Methods("GET")
	api.HandleFunc("/sessions", CreateSession(reg)).Methods("POST")
	api.HandleFunc("/ws", WebSocketUpgrade(reg, hub, logger)).Methods("GET")

	// Month view and navigation
	api.HandleFunc("/calendar", GetCalendar(reg)).Methods("GET")
	api.HandleFunc("/calendar.ics", ExportICS(reg, logger)).Methods("GET")
	api.HandleFunc("/calendar/selection", SetSelection(reg)).Methods("PUT")
	api.HandleFunc("/calendar/selection", ClearSelection(reg)).Methods("DELETE")
	api.HandleFunc("/calendar/{action:next|previous|today|goto}", Navigate(reg)).Methods("POST")
	api.HandleFunc("/days/{date}", GetDay(reg)).Methods("GET")

	// Events
	api.HandleFunc("/events", ListEvents(reg)).Methods("GET")
	api.HandleFunc("/events", CreateEvent(reg)).Methods("POST")
	api.HandleFunc("/events/upcoming", UpcomingEvents(reg)).Methods("GET")
	api.HandleFunc("/events/{id}", DeleteEvent(reg)).Methods("DELETE")

	return r
}
