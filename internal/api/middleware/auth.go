package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vikramraman/graphpredict/internal/api/response"
)

// Auth validates the Bearer token against a configured bcrypt hash. An empty
// hash disables authentication entirely, which is the default deployment.
type Auth struct {
	keyHash string
}

// NewAuth creates the auth middleware. keyHash is a bcrypt hash of the
// expected API key, or empty to disable auth.
func NewAuth(keyHash string) *Auth {
	return &Auth{keyHash: keyHash}
}

// Enabled reports whether a key hash is configured.
func (a *Auth) Enabled() bool { return a.keyHash != "" }

// Authenticate rejects requests whose Bearer token does not match the
// configured key hash.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header")
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(a.keyHash), []byte(rawKey)) != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key")
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
