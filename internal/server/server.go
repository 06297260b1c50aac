package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/claimcheck/internal/analysis"
	"github.com/TobiSchelling/claimcheck/internal/claims"
	"github.com/TobiSchelling/claimcheck/internal/llm"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Options configures a Server.
type Options struct {
	Hub            *Hub // receives no events unless also given to the claims service
	UploadDir      string
	MaxUploadBytes int64
}

// Server is the HTTP server for the claims API and dashboard.
type Server struct {
	svc       *claims.Service
	detector  *llm.Detector
	hub       *Hub
	pages     map[string]*template.Template
	router    *mux.Router
	uploadDir string
	maxUpload int64
}

// New creates a new Server.
func New(svc *claims.Service, detector *llm.Detector, opts Options) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"ago":      humanize.Time,
		"comma":    func(n int) string { return humanize.Comma(int64(n)) },
		"percent":  func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
		"verdictClass": func(v analysis.Verdict) string {
			return "verdict-" + string(v)
		},
		"isVideo": isVideo,
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so its "title" and "content"
	// definitions do not collide.
	pageNames := []string{"index.html", "claim.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	if detector == nil {
		detector = llm.NewDetector(nil, 0)
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = claims.DefaultMaxMediaBytes
	}

	s := &Server{
		svc:       svc,
		detector:  detector,
		hub:       hub,
		pages:     pages,
		router:    mux.NewRouter(),
		uploadDir: opts.UploadDir,
		maxUpload: maxUpload,
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(logRequests)

	staticSub, _ := fs.Sub(staticFS, "static")
	s.router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	if s.uploadDir != "" {
		s.router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", noListing(http.FileServer(http.Dir(s.uploadDir)))))
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(allowCORS)
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(handlePreflight)
	api.HandleFunc("/claims", s.apiCreateClaim).Methods(http.MethodPost)
	api.HandleFunc("/claims", s.apiListClaims).Methods(http.MethodGet)
	api.HandleFunc("/claims/{id}", s.apiGetClaim).Methods(http.MethodGet)
	api.HandleFunc("/claims/{id}/flag", s.apiFlagClaim).Methods(http.MethodPost)
	api.HandleFunc("/claims/{id}/flag", s.apiUnflagClaim).Methods(http.MethodDelete)
	api.HandleFunc("/stats", s.apiStats).Methods(http.MethodGet)
	api.HandleFunc("/detect", s.apiDetect).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.hub.ServeWS)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/claims", s.handleSubmit).Methods(http.MethodPost)
	s.router.HandleFunc("/claims/{id}", s.handleClaim).Methods(http.MethodGet)
	s.router.HandleFunc("/claims/{id}/flag", s.handleFlag).Methods(http.MethodPost)
	s.router.HandleFunc("/claims/{id}/unflag", s.handleUnflag).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func isVideo(mediaType, mediaURL string) bool {
	if strings.HasPrefix(strings.ToLower(mediaType), "video") {
		return true
	}
	switch strings.ToLower(path.Ext(mediaURL)) {
	case ".mp4", ".avi", ".mov", ".webm":
		return true
	}
	return false
}

// Serve runs srv on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, srv *Server, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	srv.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
