package handler

import (
	"net/http"
	"time"
)

// Version is reported by the health check. Overridden at build time with
// -ldflags "-X github.com/sakif/memory-journal/internal/handler.Version=...".
var Version = "dev"

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// HandleHealth reports liveness.
//
// HTTP: GET /api/health
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   Version,
	})
}
