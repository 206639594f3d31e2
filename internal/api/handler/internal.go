package handler

import (
	"log/slog"
	"net/http"

	mw "github.com/kiranshivaraju/faultline/internal/api/middleware"
	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/report"
)

// internalError reports err like a recovered panic and answers with the
// generic 500. The client never sees err. Callers wrap err with
// errors.WithStack where it failed, so the first frame names the handler.
func internalError(w http.ResponseWriter, r *http.Request, n report.Notifier, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	if n != nil {
		n.Go(report.Collect(err, mw.RequestExtra(r)))
	}
	response.InternalError(w)
}
