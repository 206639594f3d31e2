package handler

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/report"
	"github.com/kiranshivaraju/faultline/internal/store"
	"github.com/kiranshivaraju/faultline/pkg/models"
	"github.com/pkg/errors"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

var reSignature = regexp.MustCompile(`^[0-9a-f]{64}$`)

// IssueReader is the read side of the issue ledger.
type IssueReader interface {
	ListIssues(ctx context.Context, filter store.IssueFilter) ([]*models.IssueRecord, int, error)
	GetIssue(ctx context.Context, signature string) (*models.IssueRecord, error)
}

// NewListIssuesHandler returns GET /api/v1/admin/issues.
func NewListIssuesHandler(issues IssueReader, n report.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		page, err := queryInt(q.Get("page"), defaultPage)
		if err != nil || page < 1 {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
				"page must be a positive integer", nil)
			return
		}
		limit, err := queryInt(q.Get("limit"), defaultLimit)
		if err != nil || limit < 1 {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
				"limit must be a positive integer", nil)
			return
		}
		if limit > maxLimit {
			limit = maxLimit
		}

		filter := store.IssueFilter{
			Tracker:     q.Get("tracker"),
			Environment: q.Get("environment"),
			Page:        page,
			Limit:       limit,
		}
		if s := q.Get("since"); s != "" {
			since, err := time.Parse(time.RFC3339, s)
			if err != nil {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
					"since must be a valid RFC3339 timestamp", nil)
				return
			}
			filter.Since = since
		}

		records, total, err := issues.ListIssues(r.Context(), filter)
		if err != nil {
			internalError(w, r, n, errors.WithStack(err))
			return
		}
		if records == nil {
			records = []*models.IssueRecord{}
		}

		response.Collection(w, records, response.NewPaginationMeta(page, limit, total))
	}
}

// NewGetIssueHandler returns GET /api/v1/admin/issues/{signature}.
func NewGetIssueHandler(issues IssueReader, n report.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sig := chi.URLParam(r, "signature")
		if !reSignature.MatchString(sig) {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
				"signature must be 64 lowercase hex characters", nil)
			return
		}

		rec, err := issues.GetIssue(r.Context(), sig)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, response.CodeNotFound, "Issue not found", nil)
			return
		}
		if err != nil {
			internalError(w, r, n, errors.WithStack(err))
			return
		}

		response.JSON(w, rec)
	}
}

func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
