// Package http carries the request handlers: thin glue that validates
// form input, calls the services and renders templates. All business
// failures are recovered here into redirects, flash messages or 404s.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"homebudget/internal/auth"
	"homebudget/internal/core"
	"homebudget/internal/files"
	"homebudget/internal/services"
	"homebudget/internal/storage"
	appweb "homebudget/web"
)

type Server struct {
	http.Server
	templates *template.Template
	validate  *validator.Validate

	repo     *storage.SQLiteRepository
	closeout *services.CloseOutService
	reports  *services.ReportService
	tokens   *auth.TokenService
	uploads  *files.Store
}

// NewServer configures routes and templates, returning a ready-to-run
// server.
func NewServer(addr string, repo *storage.SQLiteRepository, closeout *services.CloseOutService, reports *services.ReportService, tokens *auth.TokenService, uploads *files.Store) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		validate: validator.New(),
		repo:     repo,
		closeout: closeout,
		reports:  reports,
		tokens:   tokens,
		uploads:  uploads,
	}

	t, err := template.New("").Funcs(template.FuncMap{
		"money": func(m core.Money) string { return m.String() },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Public auth pages.
	mux.HandleFunc("GET /auth/signup", s.withSecurity(s.handleSignupForm))
	mux.HandleFunc("POST /auth/signup", s.withSecurity(s.handleSignup))
	mux.HandleFunc("GET /auth/login", s.withSecurity(s.handleLoginForm))
	mux.HandleFunc("POST /auth/login", s.withSecurity(s.handleLogin))
	mux.HandleFunc("GET /auth/logout", s.withSecurity(s.handleLogout))

	// Everything below requires an authenticated session. Destructive
	// operations register POST only, so a GET (link prefetch, bookmark)
	// gets 405 from the mux and never reaches the handler.
	protected := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.withSecurity(s.requireAuth(h)))
	}

	protected("GET /{$}", s.handleDashboard)

	protected("GET /auth/profile", s.handleProfileForm)
	protected("POST /auth/profile", s.handleProfileUpdate)

	protected("GET /income/{$}", s.handleIncomeIndex)
	protected("GET /income/add", s.handleIncomeAddForm)
	protected("POST /income/add", s.handleIncomeAdd)
	protected("GET /income/edit/{id}", s.handleIncomeEditForm)
	protected("POST /income/edit/{id}", s.handleIncomeEdit)
	protected("POST /income/delete/{id}", s.handleIncomeDelete)

	protected("GET /expenses/{$}", s.handleExpenseIndex)
	protected("POST /expenses/add", s.handleExpenseAdd)
	protected("GET /expenses/edit/{id}", s.handleExpenseEditForm)
	protected("POST /expenses/edit/{id}", s.handleExpenseEdit)
	protected("POST /expenses/delete/{id}", s.handleExpenseDelete)

	protected("GET /categories/{$}", s.handleCategoryIndex)
	protected("POST /categories/{$}", s.handleCategoryAdd)
	protected("POST /categories/delete/{id}", s.handleCategoryDelete)

	protected("GET /settings/{$}", s.handleSettingsIndex)
	protected("POST /settings/update", s.handleSettingsUpdate)
	protected("POST /settings/end-month", s.handleEndMonth)
	protected("POST /settings/fresh-start", s.handleFreshStart)

	protected("GET /history/{$}", s.handleHistoryIndex)
	protected("GET /history/compare", s.handleHistoryCompare)

	protected("GET /attachments/{name}", s.handleAttachment)

	return s
}

// sessionKey is the context key carrying the authenticated session.
type sessionKey struct{}

const sessionCookie = "session"

// requireAuth resolves the session cookie and injects the session into the
// request context. Requests without a valid session are redirected to the
// login page before any core code runs.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Redirect(w, r, "/auth/login", http.StatusFound)
			return
		}
		session, err := s.tokens.Parse(cookie.Value)
		if err != nil {
			slog.DebugContext(r.Context(), "Session token rejected", "error", err)
			http.Redirect(w, r, "/auth/login", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(r *http.Request) auth.Session {
	if session, ok := r.Context().Value(sessionKey{}).(auth.Session); ok {
		return session
	}
	return auth.Session{}
}

// withSecurity adds security headers and request logging.
func (s *Server) withSecurity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}
		requestID := generateRequestID()

		slog.InfoContext(r.Context(), "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(r.Context(), "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, "rendering error", http.StatusInternalServerError)
	}
}

// fail maps an error onto the response: validation problems become a flash
// and redirect, missing/foreign rows a 404, everything else a generic 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, backTo string) {
	switch {
	case core.IsValidationError(err):
		s.setFlash(w, err.Error())
		http.Redirect(w, r, backTo, http.StatusSeeOther)
	case isNotFound(err):
		http.NotFound(w, r)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		http.Error(w, "something went wrong", http.StatusInternalServerError)
	}
}
