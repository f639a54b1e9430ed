package middleware

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brightsmile/dental-ai-platform/internal/identity"
)

// IdentityConfig holds the external identity provider settings for JWT
// validation. The provider publishes its signing keys at
// <issuer>/.well-known/jwks.json.
type IdentityConfig struct {
	IssuerURL string
	Audience  string // optional audience check
}

// IdentityClaims represents the claims in a provider-issued session JWT.
type IdentityClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	SessionID     string `json:"sid"`
}

const identityClaimsKey contextKey = "identityClaims"

// jwksCache caches the JWKS keys per issuer.
type jwksCache struct {
	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	expires time.Time
	issuer  string
}

var jwksCaches = make(map[string]*jwksCache)
var jwksCachesMu sync.RWMutex

// IdentityJWT validates RS256 session tokens issued by the external
// identity provider and places the caller's external id in context.
func IdentityJWT(cfg IdentityConfig) func(http.Handler) http.Handler {
	if cfg.IssuerURL == "" {
		// Reject everything when the provider is not configured.
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"identity auth not configured"}`, http.StatusUnauthorized)
			})
		}
	}

	issuer := strings.TrimRight(cfg.IssuerURL, "/")
	jwksURL := fmt.Sprintf("%s/.well-known/jwks.json", issuer)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(auth, "Bearer ")

			// Parse the token header to get the key ID
			token, _, err := jwt.NewParser().ParseUnverified(tokenString, &IdentityClaims{})
			if err != nil {
				http.Error(w, `{"error":"invalid token format"}`, http.StatusUnauthorized)
				return
			}

			kid, ok := token.Header["kid"].(string)
			if !ok {
				http.Error(w, `{"error":"missing key id in token"}`, http.StatusUnauthorized)
				return
			}

			pubKey, err := getPublicKey(jwksURL, kid, issuer)
			if err != nil {
				http.Error(w, fmt.Sprintf(`{"error":"failed to get public key: %s"}`, err.Error()), http.StatusUnauthorized)
				return
			}

			claims := &IdentityClaims{}
			validatedToken, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return pubKey, nil
			}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())

			if err != nil || !validatedToken.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			if cfg.Audience != "" {
				aud, _ := claims.GetAudience()
				validAud := false
				for _, a := range aud {
					if a == cfg.Audience {
						validAud = true
						break
					}
				}
				if !validAud {
					http.Error(w, `{"error":"invalid audience"}`, http.StatusUnauthorized)
					return
				}
			}

			if claims.Subject == "" {
				http.Error(w, `{"error":"token missing subject"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityClaimsKey, claims)
			ctx = identity.WithUserID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityClaimsFromContext retrieves provider claims from the request context.
func IdentityClaimsFromContext(ctx context.Context) (*IdentityClaims, bool) {
	claims, ok := ctx.Value(identityClaimsKey).(*IdentityClaims)
	return claims, ok
}

// getPublicKey fetches and caches the signing key from the provider JWKS.
func getPublicKey(jwksURL, kid, issuer string) (*rsa.PublicKey, error) {
	jwksCachesMu.RLock()
	cache, exists := jwksCaches[issuer]
	jwksCachesMu.RUnlock()

	if exists {
		cache.mu.RLock()
		if time.Now().Before(cache.expires) {
			if key, ok := cache.keys[kid]; ok {
				cache.mu.RUnlock()
				return key, nil
			}
		}
		cache.mu.RUnlock()
	}

	keys, err := fetchJWKS(jwksURL)
	if err != nil {
		return nil, err
	}

	jwksCachesMu.Lock()
	jwksCaches[issuer] = &jwksCache{
		keys:    keys,
		expires: time.Now().Add(1 * time.Hour),
		issuer:  issuer,
	}
	jwksCachesMu.Unlock()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", kid)
	}
	return key, nil
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// fetchJWKS fetches the JWKS from the given URL.
func fetchJWKS(url string) (map[string]*rsa.PublicKey, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS request failed with status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}

		pubKey, err := parseRSAPublicKey(key.N, key.E)
		if err != nil {
			continue
		}
		keys[key.Kid] = pubKey
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no valid RSA keys found in JWKS")
	}

	return keys, nil
}

// parseRSAPublicKey parses RSA public key components from base64url-encoded strings.
func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{N: n, E: e}, nil
}
