package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/kiranshivaraju/faultline/internal/api/middleware"
	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/report"
)

// MaxIngestBytes bounds a single client error report.
const MaxIngestBytes = 64 << 10

// ingestRequest is what browser error boundaries and window handlers post.
type ingestRequest struct {
	Message        string         `json:"message"`
	Stack          string         `json:"stack"`
	URL            string         `json:"url"`
	UserAgent      string         `json:"userAgent"`
	UserID         string         `json:"userId"`
	SessionID      string         `json:"sessionId"`
	AdditionalData map[string]any `json:"additionalData"`
	Type           string         `json:"type"`
}

type ingestResponse struct {
	Accepted bool `json:"accepted"`
}

// NewIngestHandler returns POST /api/v1/errors. Reports are dispatched in the
// background and the handler answers 202 regardless of what the tracker does.
func NewIngestHandler(n report.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxIngestBytes)

		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge,
					"Error report exceeds 64 KiB", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
			return
		}

		n.Go(report.Collect(report.ClientError{Message: req.Message, StackText: req.Stack}, ingestExtra(r, req)))
		response.Accepted(w, ingestResponse{Accepted: true})
	}
}

// ingestExtra prefers what the client sent and falls back to what the request
// itself says.
func ingestExtra(r *http.Request, req ingestRequest) report.Extra {
	extra := report.Extra{
		URL:       req.URL,
		UserAgent: req.UserAgent,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	}
	if extra.URL == "" {
		extra.URL = r.Referer()
	}
	if extra.UserAgent == "" {
		extra.UserAgent = r.UserAgent()
	}
	if extra.UserID == "" {
		extra.UserID, _ = mw.GetUserID(r)
	}
	if extra.SessionID == "" {
		extra.SessionID, _ = mw.GetSessionID(r)
	}

	if req.Type != "" || len(req.AdditionalData) > 0 {
		data := make(map[string]any, len(req.AdditionalData)+1)
		for k, v := range req.AdditionalData {
			data[k] = v
		}
		if req.Type != "" {
			data["type"] = req.Type
		}
		extra.AdditionalData = data
	}
	return extra
}
