package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// StatusPageData is the template model for the status page
type StatusPageData struct {
	AppName string
}

func isEmbeddedRequest(r *http.Request) bool {
	q := r.URL.Query()
	return q.Get("shop") != "" || q.Get("host") != ""
}

// UIIndexHandler serves the embedded app when Shopify opens it, and a plain status page to
// anyone browsing to it directly.
func (s *Server) UIIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isEmbeddedRequest(r) {
			s.serveSPAIndex(w, r)
			return
		}
		s.serveStatusPage(w, r)
	}
}

// UICatchAllHandler serves client-side routes of the embedded app.
func (s *Server) UICatchAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isEmbeddedRequest(r) {
			s.serveSPAIndex(w, r)
			return
		}
		target := s.basePath
		if target == "" {
			target = "/"
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func (s *Server) UIAssetsHandler() http.HandlerFunc {
	assetsDir := filepath.Join(s.distDir, "assets")
	fileServer := http.StripPrefix(s.basePath+"/assets/", http.FileServer(noDirFS{http.Dir(assetsDir)}))
	return fileServer.ServeHTTP
}

func (s *Server) serveSPAIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(s.distDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		logError(r.Method, r.URL.Path, err.Error())
		zerolog.Ctx(r.Context()).Error().Err(err).Str("dist_dir", s.distDir).Msg("UI bundle not found")
		http.Error(w, "UI bundle not built", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, index)
}

func (s *Server) serveStatusPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := StatusPageData{
		AppName: s.config.GetAppName(),
	}
	if err := s.statusPage.Execute(w, data); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render status page")
	}
}

// noDirFS hides directory listings from the asset file server.
type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if stat.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
