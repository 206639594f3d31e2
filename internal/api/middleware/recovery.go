package middleware

import (
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/faultline/internal/api/response"
	"github.com/kiranshivaraju/faultline/internal/report"
)

// Recovery turns handler panics into error reports and a generic 500.
type Recovery struct {
	notifier report.Notifier
}

// NewRecovery creates a Recovery that reports through n.
func NewRecovery(n report.Notifier) *Recovery {
	return &Recovery{notifier: n}
}

func (rc *Recovery) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			ec := report.CollectPanic(rec, RequestExtra(r))
			slog.Error("panic recovered",
				"error", ec.Message,
				"stack", ec.Stack,
				"method", r.Method,
				"path", r.URL.Path,
			)
			if rc.notifier != nil {
				rc.notifier.Go(ec)
			}
			response.InternalError(w)
		}()
		next.ServeHTTP(w, r)
	})
}
