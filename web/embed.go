// Package web serves the browser client bundled into the binary.
//
// dist/ is overwritten by the client build; the committed copy is a placeholder shell.
package web

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var bundle embed.FS

const (
	shellFile     = "index.html"
	assetsDir     = "assets/"
	shellCache    = "no-cache"
	immutableHash = "public, max-age=31536000, immutable"
)

// client serves files from the bundle and answers unknown routes with the
// shell so the client router can resolve them.
type client struct {
	root  fs.FS
	files http.Handler
}

// Handler returns the client handler over the embedded bundle.
func Handler() http.Handler {
	root, err := fs.Sub(bundle, "dist")
	if err != nil {
		// The embed directive guarantees dist exists.
		panic(err)
	}
	return newClient(root)
}

func newClient(root fs.FS) *client {
	return &client{root: root, files: http.FileServer(http.FS(root))}
}

func (c *client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	switch {
	case name == "" || name == shellFile:
		c.serveShell(w, r)
	case c.exists(name):
		if strings.HasPrefix(name, assetsDir) {
			w.Header().Set("Cache-Control", immutableHash)
		}
		c.files.ServeHTTP(w, r)
	case path.Ext(name) != "":
		// A missing file is not a client route.
		http.NotFound(w, r)
	default:
		c.serveShell(w, r)
	}
}

func (c *client) exists(name string) bool {
	info, err := fs.Stat(c.root, name)
	return err == nil && !info.IsDir()
}

func (c *client) serveShell(w http.ResponseWriter, r *http.Request) {
	body, err := fs.ReadFile(c.root, shellFile)
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", shellCache)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}
