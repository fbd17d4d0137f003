// Package identity resolves the verified owner of a request.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

var (
	// ErrNoCredentials means the request presented nothing to verify.
	ErrNoCredentials = errors.New("no credentials")

	// ErrUnauthenticated means the presented credentials were rejected.
	ErrUnauthenticated = errors.New("unauthenticated")
)

type contextKey int

const userIDKey contextKey = iota

// Authenticator yields the verified user id of a request.
type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (string, error)
}

// Chain tries authenticators in order. The first one that finds credentials decides.
type Chain []Authenticator

// Authenticate implements Authenticator.
func (c Chain) Authenticate(w http.ResponseWriter, r *http.Request) (string, error) {
	for _, a := range c {
		userID, err := a.Authenticate(w, r)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		return userID, err
	}
	return "", ErrNoCredentials
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Middleware attaches the verified user id, if any, to the request context.
// Requests without valid credentials pass through anonymously; protect routes with RequireUser.
func Middleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.Authenticate(w, r)
			if err != nil {
				if !errors.Is(err, ErrNoCredentials) {
					slog.Debug("Rejected request credentials", "path", r.URL.Path, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireUser rejects requests without a verified user before any handler logic runs.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized access, please log in"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
