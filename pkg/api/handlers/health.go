package handlers

import (
	"net/http"
	"time"

	"github.com/cbodonnell/openworld-api/pkg/api/response"
	"github.com/cbodonnell/openworld-api/pkg/config"
)

type HealthStatus struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Timestamp   time.Time         `json:"timestamp"`
	Checks      map[string]string `json:"checks"`
}

type ReadinessStatus struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// HandleHealth is the basic health check used by load balancers.
func HandleHealth(settings *config.Settings) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		response.Success(w, r, http.StatusOK, HealthStatus{
			Status:      "healthy",
			Version:     settings.AppVersion,
			Environment: settings.Environment,
			Timestamp:   time.Now().UTC(),
			Checks:      map[string]string{"api": "ok"},
		})
		return nil
	}
}

// HandleReadiness reports whether the server is ready to take traffic. It
// checks that a store is configured; it does not probe the store itself.
func HandleReadiness(settings *config.Settings) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		checks := map[string]string{"api": "ok"}
		if settings.StoreConfigured() {
			checks["store"] = "configured"
		} else {
			checks["store"] = "not_configured"
		}
		response.Success(w, r, http.StatusOK, ReadinessStatus{
			Ready:  settings.StoreConfigured(),
			Checks: checks,
		})
		return nil
	}
}

// HandleLiveness reports that the process is running, nothing more. It must
// succeed regardless of the store's reachability.
func HandleLiveness() response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		response.Success(w, r, http.StatusOK, map[string]bool{"alive": true})
		return nil
	}
}

// HandleRoot reports service identity and the endpoint map.
func HandleRoot(settings *config.Settings) response.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		response.Success(w, r, http.StatusOK, map[string]interface{}{
			"name":        settings.AppName,
			"version":     settings.AppVersion,
			"environment": settings.Environment,
			// world, inventory and quests are advertised ahead of their
			// routers shipping, matching what clients already consume
			"endpoints": map[string]string{
				"health":     "/api/health",
				"player":     "/api/v1/player/me",
				"characters": "/api/v1/player/characters",
				"world":      "/api/v1/world",
				"inventory":  "/api/v1/inventory",
				"quests":     "/api/v1/quests",
			},
		})
		return nil
	}
}
