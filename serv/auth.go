package serv

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/gooofy/quadstore/config"
)

type ctxKey string

const ctxKeySubject ctxKey = "subject"

// authMiddleware accepts a bearer token checked either against a local HMAC
// secret (golang-jwt/jwt) or an external IdP's JWKS (lestrrat-go/jwx),
// mirroring the dual JWT support in the auth package; a matching
// bcrypt-hashed static admin key is accepted as a third option for scripts.
// auth.development bypasses the check entirely.
func authMiddleware(c *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c.Auth.Development {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if c.Auth.AdminAPIKeyHash != "" && bcrypt.CompareHashAndPassword([]byte(c.Auth.AdminAPIKeyHash), []byte(token)) == nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeySubject, "admin")))
				return
			}

			sub, err := verifyToken(r.Context(), c, token)
			if err != nil {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeySubject, sub)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func verifyToken(ctx context.Context, c *config.Config, raw string) (string, error) {
	if c.Auth.JWKSURL != "" {
		return verifyJWKS(ctx, c.Auth.JWKSURL, raw)
	}
	return verifyHMAC(c.Auth.Secret, raw)
}

func verifyHMAC(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", jwt.ErrSignatureInvalid
	}
	claims, _ := tok.Claims.(jwt.MapClaims)
	sub, _ := claims["sub"].(string)
	return sub, nil
}

func verifyJWKS(ctx context.Context, jwksURL, raw string) (string, error) {
	set, err := jwk.Fetch(ctx, jwksURL)
	if err != nil {
		return "", err
	}
	tok, err := jwxjwt.ParseString(raw, jwxjwt.WithKeySet(set))
	if err != nil {
		return "", err
	}
	return tok.Subject(), nil
}
