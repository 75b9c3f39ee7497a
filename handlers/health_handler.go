package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tennis-standings/cache"
)

// ManagedCache is implemented by every cache.Cache instance.
type ManagedCache interface {
	Stats() cache.Stats
	Clear()
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	caches []ManagedCache
}

func NewHealthHandler(db Pinger, caches ...ManagedCache) *HealthHandler {
	return &HealthHandler{db: db, caches: caches}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
	}

	stats := make([]cache.Stats, 0, len(h.caches))
	for _, c := range h.caches {
		stats = append(stats, c.Stats())
	}

	if err := writeJSON(w, code, jsonResponse{"status": status, "caches": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ClearCache: DELETE /health/cache. Every derived value is recomputed on the
// next read.
func (h *HealthHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.caches {
		c.Clear()
	}
	slog.Default().Info("caches cleared by request", slog.Int("caches", len(h.caches)))

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "cache cleared"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
