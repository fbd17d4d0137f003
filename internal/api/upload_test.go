//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/chatkeep/internal/media"
	"github.com/go-chi/chi/v5"
)

func TestGetUploadAuth(t *testing.T) {
	r := chi.NewRouter()
	NewUploadHandler(media.NewSigner("https://ik.example/app", "pub", "priv", time.Minute)).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/upload", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Expected Cache-Control no-store, got %q", got)
	}

	var got media.AuthParams
	decodeBody(t, rec, &got)
	if got.Token == "" || got.Signature == "" || got.Expire == 0 {
		t.Errorf("Incomplete parameters %+v", got)
	}
	if got.PublicKey != "pub" || got.URLEndpoint != "https://ik.example/app" {
		t.Errorf("Expected account details in payload, got %+v", got)
	}
}

func TestGetUploadAuthNotConfigured(t *testing.T) {
	r := chi.NewRouter()
	NewUploadHandler(nil).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/upload", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
}
