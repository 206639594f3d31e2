package middleware

import (
	"net/http"
	"strings"

	"github.com/kiranshivaraju/faultline/internal/api/response"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards operator endpoints with a single shared password whose
// bcrypt hash comes from configuration.
type AdminAuth struct {
	hash []byte
}

// NewAdminAuth creates an AdminAuth for the given bcrypt hash.
func NewAdminAuth(passwordHash string) *AdminAuth {
	return &AdminAuth{hash: []byte(passwordHash)}
}

// Authenticate validates the Bearer token against the admin hash.
func (a *AdminAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Missing or invalid Authorization header", nil)
			return
		}

		if len(a.hash) == 0 || bcrypt.CompareHashAndPassword(a.hash, []byte(token)) != nil {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Invalid admin credentials", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
