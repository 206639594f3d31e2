package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/report"
)

// StatusProvider exposes the reporter state.
type StatusProvider interface {
	Status(ctx context.Context) report.Status
}

// NewStatusHandler returns GET /api/v1/admin/status.
func NewStatusHandler(p StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, p.Status(r.Context()))
	}
}
