package suite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"console/internal/app"
	"console/internal/config"
	mock "console/internal/tests/mock"
)

// Suite runs the whole console against a mocked school backend.
type Suite struct {
	*testing.T

	App     *app.App
	Backend *mock.MockBackend

	// Browser keeps the visitor cookie and never follows redirects.
	Browser *http.Client
	BaseURL string

	Port int
}

func New(t *testing.T) *Suite {
	t.Helper()

	port := getFreePort(t)

	backend := mock.NewBackend(t)
	backendSrv := httptest.NewServer(backend)

	cfg := config.Config{
		Env: "local",
		Listen: config.ListenConfig{
			BindIP:            "127.0.0.1",
			Port:              port,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		API: config.APIConfig{
			BaseURL: backendSrv.URL + "/api/v1",
			Timeout: 5 * time.Second,
		},
		Storage: config.StorageConfig{
			Type:          config.StorageMemory,
			RefreshWindow: time.Hour,
			Prefix:        "console",
		},
		Cookie: config.CookieConfig{
			Name:   "console_sid",
			MaxAge: time.Hour,
		},
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	application, err := app.New(context.Background(), cfg, log)
	require.NoError(t, err)

	go func() {
		if err := application.HTTPServer.Run(); err != nil {
			t.Logf("Server error: %v", err)
		}
	}()

	waitForServer(t, port)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	s := &Suite{
		T:       t,
		App:     application,
		Backend: backend,
		Browser: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		BaseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		Port:    port,
	}

	t.Cleanup(func() {
		application.HTTPServer.Stop()
		backendSrv.Close()
		backend.AssertExpectations(t)
	})

	return s
}

// Page is a console response read in full.
type Page struct {
	Status   int
	Location string
	Body     string
}

func (s *Suite) Get(path string) Page {
	s.Helper()

	resp, err := s.Browser.Get(s.BaseURL + path)
	require.NoError(s.T, err)
	return read(s.T, resp)
}

func (s *Suite) Post(path string, form url.Values) Page {
	s.Helper()

	resp, err := s.Browser.Post(s.BaseURL+path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(s.T, err)
	return read(s.T, resp)
}

// Login signs in through the login form with a backend answering for role.
func (s *Suite) Login(role, token string) Page {
	s.Helper()

	s.Backend.Expect(http.MethodPost, "/auth/login", "", http.StatusOK, fmt.Sprintf(
		`{"access_token":%q,"user":{"id":1,"email":"a@b.com","first_name":"A","last_name":"B","roles":[{"name":%q}]}}`,
		token, role)).Once()

	return s.Post("/login", url.Values{"email": {"a@b.com"}, "password": {"x"}})
}

func read(t *testing.T, resp *http.Response) Page {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return Page{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: string(body)}
}

func getFreePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, port int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("Server didn't start in time")
}
