package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"console/internal/config"
	"console/internal/model"
	"console/internal/provider/client"
	"console/internal/session"
	"console/internal/storage/memory"
)

type backendCall struct {
	route string
	auth  string
	form  string
}

type fakeBackend struct {
	mu     sync.Mutex
	calls  []backendCall
	routes map[string]http.HandlerFunc
}

func (b *fakeBackend) on(route string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[route] = h
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1")
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.calls = append(b.calls, backendCall{route: route, auth: r.Header.Get("Authorization"), form: string(body)})
	h, ok := b.routes[route]
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (b *fakeBackend) routesCalled() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.calls))
	for _, c := range b.calls {
		out = append(out, c.route)
	}
	return out
}

func (b *fakeBackend) lastCall() backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

type harness struct {
	t       *testing.T
	backend *fakeBackend
	storage *memory.Storage
	cfg     config.Config
	router  http.Handler
	cookie  *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := &fakeBackend{routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		Storage: config.StorageConfig{RefreshWindow: time.Hour},
		Cookie:  config.CookieConfig{Name: "console_sid", MaxAge: time.Hour},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memory.New()
	api := client.New(srv.URL+"/api/v1", time.Second, log)

	server, err := NewServer(cfg, api, mem, nil, log)
	require.NoError(t, err)

	return &harness{t: t, backend: backend, storage: mem, cfg: cfg, router: server.Router()}
}

func (h *harness) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == h.cfg.Cookie.Name {
			h.cookie = c
		}
	}
	return rec
}

func (h *harness) store() *session.Store {
	h.t.Helper()
	require.NotNil(h.t, h.cookie, "visit a page first")
	return session.NewStore(h.storage, h.cookie.Value, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (h *harness) signIn(role model.Role, token string) {
	h.t.Helper()
	if h.cookie == nil {
		h.do(http.MethodGet, "/login", nil)
	}
	sess := &model.Session{UserID: "1", Email: "a@b.com", FirstName: "A", LastName: "B", Role: role}
	require.NoError(h.t, h.store().Set(h.t.Context(), sess, token))
}

func TestRootRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestVisitorCookieIsIssuedOnce(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/login", nil)
	require.NotNil(t, h.cookie)
	first := h.cookie.Value
	assert.True(t, h.cookie.HttpOnly)

	rec := h.do(http.MethodGet, "/login", nil)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, first, h.cookie.Value)
}

func TestGuard_RedirectsAnonymousToLogin(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/admin-dashboard", "/admin/terms", "/main-panel", "/admin/teachers/new"} {
		rec := h.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
	assert.Empty(t, h.backend.routesCalled())
}

func TestGuard_WrongRoleIsUnauthorized(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleTeacher, "t1")

	rec := h.do(http.MethodGet, "/admin/terms", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))

	rec = h.do(http.MethodGet, "/unauthorized", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/main-panel"`)

	rec = h.do(http.MethodGet, "/main-panel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, A B")
}

func TestGuard_TrailingSlash(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")

	rec := h.do(http.MethodGet, "/admin-dashboard/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_ManagerScenario(t *testing.T) {
	h := newHarness(t)
	h.backend.on("POST /auth/login", respond(http.StatusOK, `{"access_token":"t1","user":{"id":1,"email":"a@b.com",
		"first_name":"A","last_name":"B","roles":[{"name":"manager"}]}}`))

	rec := h.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"x"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin-dashboard", rec.Header().Get("Location"))

	sess, ok := h.store().Session(t.Context())
	require.True(t, ok)
	assert.Equal(t, model.RoleManager, sess.Role)
	assert.Equal(t, "t1", h.store().Token(t.Context()))

	rec = h.do(http.MethodGet, "/admin-dashboard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, A")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness(t)
	h.backend.on("POST /auth/login", respond(http.StatusUnauthorized, `{"message":"Unauthenticated."}`))
	h.backend.on("POST /auth/refresh", respond(http.StatusUnauthorized, `{"message":"Unauthenticated."}`))

	rec := h.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password")
	assert.Contains(t, rec.Body.String(), `value="a@b.com"`)
}

func TestLogin_EmptyRoles(t *testing.T) {
	h := newHarness(t)
	h.backend.on("POST /auth/login", respond(http.StatusOK, `{"access_token":"t1","user":{"id":1,"email":"a@b.com",
		"first_name":"A","last_name":"B","roles":[]}}`))

	rec := h.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "User role could not be determined from API response.")

	_, ok := h.store().Session(t.Context())
	assert.False(t, ok)
	assert.Empty(t, h.store().Token(t.Context()))
}

func TestTermsPage_PreservesBackendOrder(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("GET /terms", respond(http.StatusOK, `{"status":true,"terms":[
		{"id":2,"year":2025,"season":"Winter"},{"id":1,"year":2024,"season":"Autumn"}]}`))

	rec := h.do(http.MethodGet, "/admin/terms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	winter := strings.Index(body, `value="Winter"`)
	autumn := strings.Index(body, `value="Autumn"`)
	require.NotEqual(t, -1, winter)
	require.NotEqual(t, -1, autumn)
	assert.Less(t, winter, autumn)
	assert.NotContains(t, body, "No terms yet.")

	assert.Equal(t, "Bearer t1", h.backend.lastCall().auth)
}

func TestTermsPage_EmptyList(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("GET /terms", respond(http.StatusOK, `{"status":true,"terms":[]}`))

	rec := h.do(http.MethodGet, "/admin/terms", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No terms yet.")
	assert.NotContains(t, rec.Body.String(), `role="alert"`)
}

func TestTeachersPage_RefreshesAndRetries(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")

	h.backend.on("GET /teachers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t2" {
			respond(http.StatusUnauthorized, `{"message":"Token expired"}`)(w, r)
			return
		}
		respond(http.StatusOK, `{"status":true,"data":[{"id":7,"salary":1200,"user":{"first_name":"Tom","last_name":"Hardy"}}]}`)(w, r)
	})
	h.backend.on("POST /auth/refresh", respond(http.StatusOK, `{"access_token":"t2"}`))

	rec := h.do(http.MethodGet, "/admin/teachers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tom Hardy")
	assert.Contains(t, rec.Body.String(), `value="1200.00"`)

	assert.Equal(t, []string{"GET /teachers", "POST /auth/refresh", "GET /teachers"}, h.backend.routesCalled())
	assert.Equal(t, "t2", h.store().Token(t.Context()))
	_, ok := h.store().Session(t.Context())
	assert.True(t, ok)
}

func TestTeachersPage_RefreshFailureSignsOut(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("GET /teachers", respond(http.StatusUnauthorized, `{"message":"Token expired"}`))
	h.backend.on("POST /auth/refresh", respond(http.StatusUnauthorized, `{"message":"Token expired"}`))

	rec := h.do(http.MethodGet, "/admin/teachers", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, ok := h.store().Session(t.Context())
	assert.False(t, ok)
	assert.Empty(t, h.store().Token(t.Context()))

	rec = h.do(http.MethodGet, "/login", nil)
	assert.Contains(t, rec.Body.String(), "Your session is no longer valid. Please sign in again.")

	rec = h.do(http.MethodGet, "/admin/teachers", nil)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestTermAction_DeleteShowsFlash(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("DELETE /terms/4", respond(http.StatusOK, `{"status":true,"message":"deleted"}`))
	h.backend.on("GET /terms", respond(http.StatusOK, `{"status":true,"terms":[]}`))

	rec := h.do(http.MethodPost, "/admin/terms", url.Values{"action": {"delete"}, "id": {"4"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/terms", rec.Header().Get("Location"))

	rec = h.do(http.MethodGet, "/admin/terms", nil)
	assert.Contains(t, rec.Body.String(), "Term deleted successfully")

	rec = h.do(http.MethodGet, "/admin/terms", nil)
	assert.NotContains(t, rec.Body.String(), "Term deleted successfully")
}

func TestTermAction_RejectedKeepsMessage(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("POST /terms", respond(http.StatusOK, `{"status":false,"message":"Term already exists"}`))
	h.backend.on("GET /terms", respond(http.StatusOK, `{"status":true,"terms":[]}`))

	rec := h.do(http.MethodPost, "/admin/terms", url.Values{
		"action": {"create"}, "year": {"2025"}, "season": {"Fall"},
		"start_date": {"2025-09-01"}, "end_date": {"2025-12-20"}, "is_active": {"on"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, h.backend.lastCall().form, `"is_active":true`)

	rec = h.do(http.MethodGet, "/admin/terms", nil)
	assert.Contains(t, rec.Body.String(), "Term already exists")
}

func TestTermAction_InvalidYear(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("GET /terms", respond(http.StatusOK, `{"status":true,"terms":[]}`))

	rec := h.do(http.MethodPost, "/admin/terms", url.Values{"action": {"create"}, "year": {"soon"}, "season": {"Fall"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, h.backend.routesCalled(), "POST /terms")

	rec = h.do(http.MethodGet, "/admin/terms", nil)
	assert.Contains(t, rec.Body.String(), "year: must be a whole number")
}

func TestClassAction_DeleteIsTermScoped(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("DELETE /terms/3/classes/9", respond(http.StatusOK, `{"status":true}`))

	rec := h.do(http.MethodPost, "/admin/classes", url.Values{"action": {"delete"}, "term_id": {"3"}, "id": {"9"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/classes?term=3", rec.Header().Get("Location"))
	assert.Equal(t, []string{"DELETE /terms/3/classes/9"}, h.backend.routesCalled())
}

func TestStudentsPage_DrillsDown(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")
	h.backend.on("GET /terms", respond(http.StatusOK, `{"status":true,"terms":[{"id":3,"year":2025,"season":"Fall"}]}`))
	h.backend.on("GET /terms/3/classes", respond(http.StatusOK, `{"status":true,"classes":[{"id":9,"name":"Go 101"}]}`))
	h.backend.on("GET /classes/9/students", respond(http.StatusOK, `{"status":true,"data":{"id":44,"user":{"first_name":"Kim","last_name":"Lee"}}}`))

	rec := h.do(http.MethodGet, "/admin/students?term=3&class=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Go 101")
	assert.Contains(t, body, "Kim Lee")
}

func TestTeacherCreate_ValidationStaysOnForm(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")

	rec := h.do(http.MethodPost, "/admin/teachers/new", url.Values{
		"first_name": {"T"}, "last_name": {"S"}, "email": {"t@school.io"},
		"password": {"password1"}, "password_confirmation": {"password2"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "passwords do not match")
	assert.Empty(t, h.backend.routesCalled())
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.signIn(model.RoleManager, "t1")

	rec := h.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = h.do(http.MethodGet, "/admin-dashboard", nil)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
