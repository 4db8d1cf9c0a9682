// Package static serves uploaded product images from the content root.
package static

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/noah-isme/backend-electronic/internal/common"
)

// Prefix is the URL path images are served under.
const Prefix = "/images/"

// EnsureDir creates <contentRoot>/App_Data/Images when missing and returns it.
func EnsureDir(contentRoot string) (string, error) {
	dir := filepath.Join(contentRoot, "App_Data", "Images")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	return dir, nil
}

// URL returns the public path of an image file.
func URL(fileName string) string { return Prefix + fileName }

// FileName extracts the file name from a URL produced by URL. It returns
// "" for anything else.
func FileName(url string) string {
	name, ok := strings.CutPrefix(url, Prefix)
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return ""
	}
	return name
}

// Images is the pipeline stage serving files below Prefix read-only from Dir.
type Images struct {
	Dir string
}

// Middleware answers requests under Prefix and passes everything else on.
func (i Images) Middleware(next http.Handler) http.Handler {
	files := http.StripPrefix(strings.TrimSuffix(Prefix, "/"), http.FileServer(noListing{http.Dir(i.Dir)}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, Prefix) {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "images are read-only", nil)
			return
		}
		if escapes(r.URL.Path) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "image not found", nil)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func escapes(p string) bool {
	if strings.Contains(p, `\`) || strings.ContainsRune(p, 0) {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// noListing hides directories so the file server never renders an index.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
