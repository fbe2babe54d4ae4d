package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/Grant-Management-Platform-MVP/GfgpPortal-sub000/internal/models"
)

type authCtxKey int

const authKey authCtxKey = 7

// DevSecret signs tokens when no secret is configured.
const DevSecret = "gfgp-dev-secret"

type Claims struct {
	UID   string      `json:"uid"`
	Role  models.Role `json:"role"`
	Email string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func secretOrDev(secret string) []byte {
	if secret == "" {
		secret = DevSecret
	}
	return []byte(secret)
}

func SignToken(secret, uid string, role models.Role, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{UID: uid, Role: role, Email: email, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretOrDev(secret))
}

func parseToken(secret []byte, tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	if c.UID == "" {
		return nil, errors.New("token missing uid")
	}
	switch c.Role {
	case models.RoleGrantee, models.RoleGrantor, models.RoleAdmin:
	default:
		return nil, errors.New("token has unknown role")
	}
	return c, nil
}

// WithAuth attaches claims to the context when a valid bearer token is present.
func WithAuth(secret string) func(http.Handler) http.Handler {
	key := secretOrDev(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if strings.HasPrefix(h, "Bearer ") {
				tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
				if c, err := parseToken(key, tok); err == nil {
					ctx := context.WithValue(r.Context(), authKey, c)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(authKey).(*Claims); !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext returns the caller session set by WithAuth.
func SessionFromContext(ctx context.Context) (models.Session, bool) {
	c, ok := ctx.Value(authKey).(*Claims)
	if !ok {
		return models.Session{}, false
	}
	return models.Session{UserID: c.UID, Role: c.Role, Email: c.Email}, true
}

// ContextWithSession is used by tests and internal callers that bypass tokens.
func ContextWithSession(ctx context.Context, s models.Session) context.Context {
	return context.WithValue(ctx, authKey, &Claims{UID: s.UserID, Role: s.Role, Email: s.Email})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
