package middleware

import (
	"net/http"
	"sort"
	"strings"

	"github.com/kiranshivaraju/faultline/internal/report"
)

const redacted = "[redacted]"

var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"Proxy-Authorization": true,
	"X-Api-Key":           true,
}

// RequestExtra describes r for an error report: absolute URL, method, user
// agent, identity and the request headers with credentials redacted.
func RequestExtra(r *http.Request) report.Extra {
	extra := report.Extra{
		URL:           requestURL(r),
		UserAgent:     r.UserAgent(),
		RequestMethod: r.Method,
		AdditionalData: map[string]any{
			"headers": redactHeaders(r.Header),
		},
	}
	if id, ok := GetUserID(r); ok {
		extra.UserID = id
	}
	if id, ok := GetSessionID(r); ok {
		extra.SessionID = id
	}
	return extra
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(proto)
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func redactHeaders(h http.Header) map[string]string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if sensitiveHeaders[http.CanonicalHeaderKey(k)] {
			out[k] = redacted
			continue
		}
		out[k] = strings.Join(h.Values(k), ", ")
	}
	return out
}
