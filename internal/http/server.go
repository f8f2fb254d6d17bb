// Package http serves the dashboard pages. Every page loads the tables it
// needs through Tables and renders server side; a failed load halts the
// page with a 502 describing the resource and the cause.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"cardmarket-bi/internal/core"
	"cardmarket-bi/internal/ingest"
	"cardmarket-bi/internal/log"
	"cardmarket-bi/internal/middleware/ratelimit"
	"cardmarket-bi/internal/middleware/security"
	"cardmarket-bi/internal/middleware/trace"
	appweb "cardmarket-bi/web"
)

// Tables is the read side of the resource store.
type Tables interface {
	Orders(ctx context.Context) (*core.OrderTable, error)
	Articles(ctx context.Context) (*core.ArticleTable, error)
	Expenses(ctx context.Context) (*core.ExpenseTable, error)
	Refresh()
	Status() []ingest.ResourceStatus
}

// Broadcaster tells other instances to refresh. Optional.
type Broadcaster interface {
	PublishRefresh(ctx context.Context, reason string) error
}

type Options struct {
	Addr   string
	Tables Tables
	Logger *log.Logger

	// Gate is nil when no costs password is configured.
	Gate                    *Gate
	UnlockAttemptsPerMinute int

	Broadcaster Broadcaster
	InstanceID  string
	StoreURL    string
	CacheTTL    time.Duration

	// TrustedProxies extends the private ranges allowed to forward client IPs.
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates   *template.Template
	tables      Tables
	gate        *Gate
	broadcaster Broadcaster
	logger      *log.Logger
	detector    *security.Detector
	limiter     *ratelimit.Limiter
	tracer      *trace.Middleware

	instanceID string
	storeURL   string
	cacheTTL   time.Duration

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and configures routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Tables == nil {
		return nil, errors.New("nil tables")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	attempts := opts.UnlockAttemptsPerMinute
	if attempts <= 0 {
		attempts = 5
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}
	s := &Server{
		templates:   t,
		tables:      opts.Tables,
		gate:        opts.Gate,
		broadcaster: opts.Broadcaster,
		logger:      logger,
		detector:    detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: attempts,
			CleanupInterval:   5 * time.Minute,
		}),
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
		instanceID: opts.InstanceID,
		storeURL:   opts.StoreURL,
		cacheTTL:   opts.CacheTTL,
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /orders", s.handleOrders)
	mux.HandleFunc("GET /analytics", s.handleAnalytics)
	mux.HandleFunc("GET /articles", s.handleArticles)
	mux.Handle("GET /costs", security.NoStore(http.HandlerFunc(s.handleCosts)))
	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.HandleFunc("POST /settings/refresh", s.handleRefresh)

	unlock := s.limiter.Middleware(detector.ExtractClientIP, s.handleUnlockLimited)(http.HandlerFunc(s.handleUnlock))
	mux.Handle("POST /costs/unlock", security.NoStore(unlock))
	mux.HandleFunc("POST /costs/lock", s.handleLock)

	mux.HandleFunc("GET /export/orders.csv", s.handleExportOrders)
	mux.HandleFunc("GET /export/articles.csv", s.handleExportArticles)
	mux.Handle("GET /export/expenses.csv", security.NoStore(s.requireUnlocked(s.handleExportExpensesCSV)))
	mux.Handle("GET /export/expenses.xlsx", security.NoStore(s.requireUnlocked(s.handleExportExpensesXLSX)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Addr = opts.Addr
	s.Handler = handler
	s.ReadHeaderTimeout = 10 * time.Second
	s.WriteTimeout = 60 * time.Second
	s.IdleTimeout = 120 * time.Second
	return s, nil
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// requestLogger returns the logger the trace middleware put in the context.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	if l, ok := r.Context().Value(log.LoggerContextKey).(*log.Logger); ok {
		return l
	}
	return s.logger
}

// render executes name into a buffer first so a template failure never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err, log.FieldOperation, log.OpRender, "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type loadErrorView struct {
	page
	Resource string
	URL      string
	Kind     string
	Column   string
	Row      int
	Cause    string
}

// renderLoadError halts a page that could not get its data.
func (s *Server) renderLoadError(w http.ResponseWriter, r *http.Request, p page, err error) {
	view := loadErrorView{page: p, Cause: err.Error()}
	status := http.StatusInternalServerError
	if le, ok := core.AsLoadError(err); ok {
		status = http.StatusBadGateway
		view.Resource = string(le.Resource)
		view.URL = le.URL
		view.Kind = string(le.Kind)
		view.Column = le.Column
		view.Row = le.Row
		if le.Err != nil {
			view.Cause = le.Err.Error()
		}
	}
	view.Title = "Data unavailable"
	s.render(w, r, status, "error_page", view)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the server is up. Resources load lazily,
// so an empty cache is not a reason to refuse traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.templates == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("templates not loaded"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
