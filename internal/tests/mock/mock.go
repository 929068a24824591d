package mock

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ===================== BACKEND =====================

// MockBackend stands in for the school REST API. Every call is matched on
// method, path (without the /api/v1 prefix), Authorization header and raw body,
// and answers with the status and JSON body given to Return.
type MockBackend struct {
	mock.Mock
}

func NewBackend(t *testing.T) *MockBackend {
	m := &MockBackend{}
	m.Test(t)
	return m
}

func (m *MockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")

	args := m.Called(r.Method, path, r.Header.Get("Authorization"), string(body))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(args.Int(0))
	_, _ = io.WriteString(w, args.String(1))
}

// Expect registers one backend answer and returns the call for further tuning.
func (m *MockBackend) Expect(method, path string, auth any, status int, body string) *mock.Call {
	return m.On("ServeHTTP", method, path, auth, mock.Anything).Return(status, body)
}

// Called is overridden so expectations are keyed as "ServeHTTP".
func (m *MockBackend) Called(arguments ...any) mock.Arguments {
	return m.MethodCalled("ServeHTTP", arguments...)
}

// ===================== TOKENS =====================

// Token mints a signed JWT that expires after ttl. The console never verifies
// it; only the exp claim is read.
func Token(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return signed
}

func Bearer(token string) string {
	return "Bearer " + token
}
