package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"butikk/globals"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	Username string   `json:"username"`
	UserID   string   `json:"userId"`
	Role     []string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware holds the secrets the auth wrappers verify against. Built once
// in main and shared by the route groups.
type Middleware struct {
	JWTSecret   []byte
	AdminSecret string
}

func New(jwtSecret []byte, adminSecret string) *Middleware {
	return &Middleware{JWTSecret: jwtSecret, AdminSecret: adminSecret}
}

// Wrapper adapts one httprouter handler into another.
type Wrapper func(httprouter.Handle) httprouter.Handle

// Chain composes wrappers left to right: the first wrapper runs first.
func Chain(wrappers ...Wrapper) Wrapper {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(wrappers) - 1; i >= 0; i-- {
			final = wrappers[i](final)
		}
		return final
	}
}

func (m *Middleware) parseToken(tokenString string) (*Claims, error) {
	if len(tokenString) < 8 || tokenString[:7] != "Bearer " {
		return nil, fmt.Errorf("invalid token format")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString[7:], claims, func(token *jwt.Token) (any, error) {
		return m.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func withClaims(r *http.Request, claims *Claims) *http.Request {
	ctx := context.WithValue(r.Context(), globals.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, globals.UsernameKey, claims.Username)
	ctx = context.WithValue(ctx, globals.RoleKey, claims.Role)
	return r.WithContext(ctx)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func (m *Middleware) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		claims, err := m.parseToken(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next(w, withClaims(r, claims), ps)
	}
}

// OptionalAuth stores the caller's identity when a valid token is present and
// proceeds either way.
func (m *Middleware) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if claims, err := m.parseToken(r.Header.Get("Authorization")); err == nil {
			r = withClaims(r, claims)
		}
		next(w, r, ps)
	}
}

// RequireRoles allows the request through only when the authenticated caller
// carries at least one of the listed roles. Must run after Authenticate.
func RequireRoles(roles ...string) Wrapper {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			have, _ := r.Context().Value(globals.RoleKey).([]string)
			for _, want := range roles {
				for _, role := range have {
					if role == want {
						next(w, r, ps)
						return
					}
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		}
	}
}

// AdminGate accepts either a bearer token whose claims include the admin
// role, or the shared X-Admin-Secret header. Both paths are interchangeable.
func (m *Middleware) AdminGate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if secret := r.Header.Get("X-Admin-Secret"); secret != "" && m.AdminSecret != "" {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(m.AdminSecret)) == 1 {
				next(w, r, ps)
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		claims, err := m.parseToken(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		for _, role := range claims.Role {
			if role == "admin" {
				next(w, withClaims(r, claims), ps)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// ValidateJWT checks a raw Authorization header value and returns its claims.
func (m *Middleware) ValidateJWT(tokenString string) (*Claims, error) {
	return m.parseToken(tokenString)
}
