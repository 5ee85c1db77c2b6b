// Package web is the scan companion: a small HTTP server a phone can upload
// a photo of a book label to.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/librarydesk/internal/domain"
	"github.com/vbonduro/librarydesk/internal/labels"
	"github.com/vbonduro/librarydesk/internal/qrdecode"
	"github.com/vbonduro/librarydesk/internal/status"
)

// Scanner decodes an uploaded photo.
type Scanner interface {
	Decode(ctx context.Context, data []byte, platform qrdecode.Platform) (*qrdecode.Result, error)
	MaxUploadBytes() int64
}

// BookFinder is the part of the library client the scan handler uses.
type BookFinder interface {
	BookByQR(ctx context.Context, qr string) (*domain.Book, error)
	CurrentLoan(ctx context.Context, qr string) (*domain.Loan, error)
}

type StatusSource interface {
	Latest() status.Snapshot
}

type Deps struct {
	Scanner   Scanner
	Books     BookFinder
	Status    StatusSource
	Templates fs.FS
	Language  string
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

type Server struct {
	scanner   Scanner
	books     BookFinder
	status    StatusSource
	templates fs.FS
	language  string
	metrics   *scanMetrics
	gatherer  prometheus.Gatherer
	mux       *http.ServeMux
	logger    *slog.Logger
}

func NewServer(d Deps) *Server {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	s := &Server{
		scanner:   d.Scanner,
		books:     d.Books,
		status:    d.Status,
		templates: d.Templates,
		language:  d.Language,
		metrics:   newScanMetrics(d.Registry),
		gatherer:  d.Registry,
		mux:       http.NewServeMux(),
		logger:    d.Logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /scan", s.handleScan)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// securityHeaders sets the browser hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline'; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// labelsFor picks the request's language from Accept-Language, falling back
// to the configured one.
func (s *Server) labelsFor(r *http.Request) labels.Labels {
	if al := r.Header.Get("Accept-Language"); al != "" {
		return labels.For(labels.Detect(al))
	}
	return labels.For(s.language)
}

type pageData struct {
	Lang      string
	Dir       string
	Title     string
	ScanLabel string
	Retry     string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	l := s.labelsFor(r)
	tmpl, err := template.ParseFS(s.templates, "scan.html")
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		s.logger.Error("parse template failed", "error", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = tmpl.ExecuteTemplate(w, "base", pageData{
		Lang:      l.Language(),
		Dir:       l.Direction(),
		Title:     l.Get("app_title"),
		ScanLabel: l.Get("scan_qr"),
		Retry:     l.Get("qr_retry"),
	})
	if err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Latest(), s.logger)
}
