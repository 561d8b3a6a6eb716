package httpapi

import (
	"net/http"
	"strings"

	"github.com/rideway-co/marketplace-api/internal/platform/auth/token"
)

// NewAuthMiddleware enforces the identity token carried raw in the
// Authorization header. There is no "Bearer " prefix on this wire format.
//
// On success it stores the verified subject and the raw token in request
// context; handlers forward the raw token on cross-service calls.
func NewAuthMiddleware(codec *token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing Authorization header", nil)
				return
			}
			sub, err := codec.Verify(raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}
			ctx := WithToken(WithSubject(r.Context(), sub), raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
