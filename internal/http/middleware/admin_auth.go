package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminClaims are carried by the HMAC-signed tokens the clinic issues
// to its own staff for the admin surface.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// staffRoles lists the roles allowed through to /admin routes.
var staffRoles = map[string]struct{}{
	"admin": {},
	"staff": {},
}

// AdminJWT enforces an HMAC-signed staff JWT on the admin surface and
// requires a recognized role claim.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				unauthorized(w, "admin auth not configured")
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing authorization header")
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := &AdminClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			if _, ok := staffRoles[claims.Role]; !ok {
				unauthorized(w, "insufficient role")
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns staff claims if present.
func AdminClaimsFromContext(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(*AdminClaims)
	return claims, ok
}

// unauthorized writes the JSON error shape the rest of the API uses.
func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
