package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"kitsunedns/cache"
	"kitsunedns/stats"
)

// Server represents the web dashboard server
type Server struct {
	port   int
	logger logrus.FieldLogger
	fs     afero.Fs
	srv    *http.Server
}

// NewServer creates a new web server serving the dashboard from fs.
func NewServer(port int, logger logrus.FieldLogger, st *stats.Stats, c *cache.Cache, fs afero.Fs) *Server {
	s := &Server{
		port:   port,
		logger: logger,
		fs:     fs,
	}

	api := NewAPI(st, c)
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/stats", api.HandleStats)
	mux.HandleFunc("/api/cache", api.HandleCache)

	// Static files
	httpFs := afero.NewHttpFs(fs)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(httpFs.Dir("web/static"))))
	mux.HandleFunc("/", s.serveDashboard)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return s
}

// Start serves the dashboard until Stop is called.
func (s *Server) Start() error {
	s.logger.Infof("Web dashboard listening on http://localhost:%d", s.port)

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the dashboard down, letting in-flight requests finish.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// serveDashboard serves the dashboard HTML
func (s *Server) serveDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data, err := afero.ReadFile(s.fs, "web/static/index.html")
	if err != nil {
		s.logger.Errorf("Error reading dashboard page: %v", err)
		http.Error(w, "Dashboard not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}
