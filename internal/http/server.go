// Package http serves the expense tracker's server-rendered pages.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/ports"
	"expenses/internal/services"
	appweb "expenses/web"
)

// Repository is the read side the handlers need.
type Repository interface {
	ports.ExpenseReader
	ports.ExpenseStreamer
	ports.HealthChecker
}

type Server struct {
	http.Server
	templates *template.Template
	repo      Repository
	service   *services.ExpenseService
	logger    *log.Logger
	slog      *log.StructuredLogger

	ipResolver      *security.ClientIPResolver
	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

// templateFuncs are available to every page.
var templateFuncs = template.FuncMap{
	"amount":   core.FormatAmount,
	"selector": newMonthSelector,
}

// ParseTemplates parses the embedded page templates.
func ParseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, repo Repository, svc *services.ExpenseService, logger *log.Logger, limit ratelimit.Config) (*Server, error) {
	templates, err := ParseTemplates()
	if err != nil {
		return nil, err
	}

	httpLogger := logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		templates:   templates,
		repo:        repo,
		service:     svc,
		logger:      httpLogger,
		slog:        log.NewStructuredLogger(httpLogger),
		ipResolver:  security.NewClientIPResolver(),
		rateLimiter: ratelimit.NewLimiter(limit),
		startedAt:   time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.ipResolver.ClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.ipResolver.ClientIP)(handler)
	handler = headers.Middleware(handler)
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = log.Middleware(httpLogger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	page := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /expenses", page(s.handleListExpenses))
	mux.Handle("GET /add_expenses", page(s.handleAddForm))
	mux.Handle("POST /add_expenses", page(s.handleAddExpense))
	mux.Handle("GET /edit/{id}", page(s.handleEditForm))
	mux.Handle("POST /edit/{id}", page(s.handleEditExpense))
	mux.Handle("GET /delete/{id}", page(s.handleDeleteExpense))
	mux.Handle("POST /delete/{id}", page(s.handleDeleteExpense))
	mux.Handle("GET /reports", page(s.handleReports))
	mux.Handle("GET /export", page(s.handleExport))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
