// Package middleware provides HTTP middleware for the chat API.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSOptions configures cross-origin access for the browser client.
type CORSOptions struct {
	AllowedOrigins []string // "*" admits any origin, without credentials
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration // preflight cache lifetime; 0 omits the header
}

// ClientCORS returns the options used for the chat API.
func ClientCORS(origins []string) CORSOptions {
	return CORSOptions{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         10 * time.Minute,
	}
}

// CORS answers preflight requests and decorates responses for admitted origins.
// Credentials are only allowed for origins listed explicitly.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")
	maxAge := ""
	if opts.MaxAge > 0 {
		maxAge = strconv.Itoa(int(opts.MaxAge.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			if explicit, ok := matchOrigin(opts.AllowedOrigins, origin); ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if explicit {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if maxAge != "" && r.Method == http.MethodOptions {
					h.Set("Access-Control-Max-Age", maxAge)
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// matchOrigin reports whether origin is admitted and whether it was named explicitly.
func matchOrigin(allowed []string, origin string) (explicit, ok bool) {
	if origin == "" {
		return false, false
	}
	for _, o := range allowed {
		if o == origin {
			return true, true
		}
		if o == "*" {
			ok = true
		}
	}
	return false, ok
}
