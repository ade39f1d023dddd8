package api

import (
	"net/http"
	"time"

	"github.com/mapofsmiles/companion/internal/domain"
	"github.com/mapofsmiles/companion/pkg/response"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// Readiness reports which external services the host can reach
type Readiness interface {
	StoreConfigured() bool
	SubmitConfigured() bool
}

// ServiceReadiness answers from the store and submission clients in use,
// which may be unconfigured even when their settings are present.
type ServiceReadiness struct {
	Store  domain.StoryStore
	Submit domain.SubmitEndpoint
}

func (r ServiceReadiness) StoreConfigured() bool {
	return r.Store != nil && r.Store.IsConfigured()
}

func (r ServiceReadiness) SubmitConfigured() bool {
	return r.Submit != nil && r.Submit.IsConfigured()
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	readiness Readiness
	hub       *WebSocketManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(readiness Readiness, hub *WebSocketManager) *HealthHandler {
	return &HealthHandler{readiness: readiness, hub: hub}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse adds the state of the external services
type ReadyResponse struct {
	HealthResponse
	Store   bool `json:"store"`
	Submit  bool `json:"submit"`
	Viewers int  `json:"viewers"`
}

// Health returns the health status
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "ok",
		Timestamp: now(),
		Version:   Version,
	})
}

// Ready reports whether the story store is configured. Submissions are
// optional; the map still works read-only without them.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		HealthResponse: HealthResponse{Status: "ready", Timestamp: now()},
		Store:          h.readiness.StoreConfigured(),
		Submit:         h.readiness.SubmitConfigured(),
		Viewers:        h.hub.ClientCount(),
	}
	if !resp.Store {
		resp.Status = "degraded"
		response.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	response.OK(w, resp)
}

// Live returns the liveness status
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.OK(w, HealthResponse{
		Status:    "alive",
		Timestamp: now(),
	})
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
