package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	sessionIDKey contextKey = "session_id"
)

const (
	userIDHeader    = "X-User-ID"
	sessionIDHeader = "X-Session-ID"
	sessionCookie   = "session_id"
)

// Identity copies the caller's user and session ids, when supplied, into the
// request context so error reports can carry them.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := r.Header.Get(userIDHeader); id != "" {
			ctx = SetUserID(ctx, id)
		}
		session := r.Header.Get(sessionIDHeader)
		if session == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				session = c.Value
			}
		}
		if session != "" {
			ctx = SetSessionID(ctx, session)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SetUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok
}

func SetSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

func GetSessionID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(sessionIDKey).(string)
	return id, ok
}
