package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func testClient() *client {
	return newClient(fstest.MapFS{
		"index.html":       {Data: []byte("<html>shell</html>")},
		"favicon.ico":      {Data: []byte("ico")},
		"assets/app-1a.js": {Data: []byte("console.log(1)")},
	})
}

func TestClientRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
		wantCache  string
	}{
		{"root serves shell", http.MethodGet, "/", http.StatusOK, "shell", shellCache},
		{"index serves shell", http.MethodGet, "/index.html", http.StatusOK, "shell", shellCache},
		{"client route serves shell", http.MethodGet, "/chats/abc", http.StatusOK, "shell", shellCache},
		{"hashed asset", http.MethodGet, "/assets/app-1a.js", http.StatusOK, "console.log", immutableHash},
		{"top level file", http.MethodGet, "/favicon.ico", http.StatusOK, "ico", ""},
		{"missing asset", http.MethodGet, "/assets/gone.js", http.StatusNotFound, "", ""},
		{"directory falls back to shell", http.MethodGet, "/assets", http.StatusOK, "shell", shellCache},
		{"traversal stays inside bundle", http.MethodGet, "/../index.html", http.StatusOK, "shell", shellCache},
		{"write method rejected", http.MethodPost, "/", http.StatusMethodNotAllowed, "", ""},
	}

	c := testClient()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Equal(t, tt.wantCache, rec.Header().Get("Cache-Control"))
		})
	}
}

func TestClientHeadShell(t *testing.T) {
	rec := httptest.NewRecorder()
	testClient().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/settings", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestClientWithoutShell(t *testing.T) {
	rec := httptest.NewRecorder()
	newClient(fstest.MapFS{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmbeddedBundleHasShell(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
