// Package handler holds the HTTP handlers mounted by the api router.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/faultline/internal/api/response"
)

const healthTimeout = 2 * time.Second

// Pinger is anything with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// NewHealthHandler returns GET /api/v1/health. It answers 503 when any
// dependency fails its ping.
func NewHealthHandler(db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{
			Status:   "ok",
			Database: probe(ctx, "database", db),
			Cache:    probe(ctx, "cache", cache),
		}
		status := http.StatusOK
		if resp.Database != "ok" || resp.Cache != "ok" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		response.Status(w, status, resp)
	}
}

func probe(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return "unconfigured"
	}
	if err := p.Ping(ctx); err != nil {
		slog.Warn("health check failed", "dependency", name, "error", err)
		return "unavailable"
	}
	return "ok"
}
