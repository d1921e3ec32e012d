package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pricing/internal/common"
)

// Guard protects the admin rule-management endpoints with HS256 bearer
// tokens. Tokens must carry role=admin alongside the configured issuer and
// audience claims.
type Guard struct {
	Secret    []byte
	Validator TokenValidator
	Now       func() time.Time
}

// RequireAdmin rejects requests without a valid admin token.
func (g Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearer(r)
		if raw == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		tok, err := jwt.Parse([]byte(raw),
			jwt.WithKey(jwa.HS256, g.Secret),
			jwt.WithValidate(false),
		)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		now := time.Now().UTC()
		if g.Now != nil {
			now = g.Now()
		}
		if err := g.Validator.Validate(tok, jwa.HS256, now); err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		role, _ := tok.Get("role")
		if role != "admin" {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin role required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), tok.Subject())))
	})
}

func extractBearer(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
