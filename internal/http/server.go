package http

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"console/internal/config"
	"console/internal/guard"
	"console/internal/model"
	"console/internal/provider"
	"console/internal/provider/client"
	"console/internal/provider/school"
	"console/internal/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	cfg     config.Config
	api     *client.Client
	storage storage.Storage
	metrics http.Handler
	pages   *template.Template
	log     *slog.Logger
}

// NewServer builds the console. metrics may be nil, in which case /metrics is not served.
func NewServer(cfg config.Config, api *client.Client, st storage.Storage, metrics http.Handler, log *slog.Logger) (*Server, error) {
	pages, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		api:     api,
		storage: st,
		metrics: metrics,
		pages:   pages,
		log:     log,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, middleware.StripSlashes, s.requestLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.visitor)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, guard.LoginPath, http.StatusFound)
		})
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/register", s.handleRegisterPage)
		r.Post("/register", s.handleRegister)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)
		r.Get("/unauthorized", s.handleUnauthorized)

		r.Group(func(r chi.Router) {
			r.Use(s.guarded)

			r.Get("/admin-dashboard", s.handleDashboard)
			r.Get("/main-panel", s.handleMainPanel)

			r.Get("/admin/teachers", s.handleTeachers)
			r.Post("/admin/teachers", s.handleTeacherAction)
			r.Get("/admin/teachers/new", s.handleTeacherForm)
			r.Post("/admin/teachers/new", s.handleTeacherCreate)

			r.Get("/admin/terms", s.handleTerms)
			r.Post("/admin/terms", s.handleTermAction)

			r.Get("/admin/courses", s.handleCourses)
			r.Post("/admin/courses", s.handleCourseAction)

			r.Get("/admin/classes", s.handleClasses)
			r.Post("/admin/classes", s.handleClassAction)

			r.Get("/admin/students", s.handleStudents)
			r.Post("/admin/students", s.handleStudentAction)
		})
	})

	return r
}

// guarded consults the route table on every request. Paths missing from the
// table are not served.
func (s *Server) guarded(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := cleanPath(r.URL.Path)
		rule, ok := guard.Lookup(path)
		if !ok {
			s.log.Error("no access rule for protected path", slog.String("path", path))
			http.NotFound(w, r)
			return
		}

		v := visitFrom(r.Context())
		sess, _ := v.store.Session(r.Context())

		decision := guard.Authorize(sess, rule)
		if decision != guard.Render {
			s.log.Debug("access denied",
				slog.String("path", path),
				slog.String("decision", decision.String()))
			http.Redirect(w, r, decision.Target(), http.StatusSeeOther)
			return
		}

		v.user = sess
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) backend(v *visit) school.Provider {
	return school.NewSchoolProvider(s.api.WithSession(v.store, v.nav))
}

type page struct {
	Title string
	User  *model.Session
	Flash *flash
	Error string
	Data  any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, p page) {
	v := visitFrom(r.Context())
	if p.User == nil {
		p.User = v.user
	}
	if p.Flash == nil {
		p.Flash = v.popFlash(r.Context())
	}

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, p); err != nil {
		s.log.Error("render failed", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// navigated finishes the response when the API client dropped the session
// during the call and asked for another page.
func (s *Server) navigated(w http.ResponseWriter, r *http.Request, v *visit) bool {
	target := v.nav.target
	if target == "" {
		return false
	}
	v.setFlash(r.Context(), flashError, provider.UserMessage(provider.ErrRefreshFailed))
	http.Redirect(w, r, target, http.StatusSeeOther)
	return true
}

// done finishes a form action with a redirect back to the list page.
func (s *Server) done(w http.ResponseWriter, r *http.Request, err error, back, okMsg string) {
	v := visitFrom(r.Context())
	if err != nil {
		if s.navigated(w, r, v) {
			return
		}
		s.log.Warn("action failed",
			slog.String("path", r.URL.Path),
			slog.String("action", r.PostFormValue("action")),
			slog.String("error", err.Error()))
		v.setFlash(r.Context(), flashError, message(err))
	} else {
		v.setFlash(r.Context(), flashSuccess, okMsg)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var funcs = template.FuncMap{
	"money": func(v float64) string {
		return formatMoney(v)
	},
}
