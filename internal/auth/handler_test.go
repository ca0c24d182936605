package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-lms/meridian-lms/internal/principal"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

type stubUsers struct{ users map[string]principal.User }

func (s *stubUsers) GetByEmail(_ context.Context, email string) (principal.User, error) {
	user, ok := s.users[email]
	if !ok {
		return principal.User{}, shared.ErrNotFound
	}
	return user, nil
}

type stubSessions struct{ created, deleted []string }

func (s *stubSessions) CreateSession(_ context.Context, id string, _ int64, _ time.Time, _, _ string) error {
	s.created = append(s.created, id)
	return nil
}

func (s *stubSessions) DeleteSession(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *stubSessions) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &stubUsers{users: map[string]principal.User{
		"staff@example.edu": {
			ID:           7,
			Email:        "staff@example.edu",
			PasswordHash: string(hash),
			Kinds:        []shared.PrincipalKind{shared.KindStaff},
			IsActive:     true,
		},
	}}
	sessions := &stubSessions{}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "meridian_session", time.Hour, false)
	return NewHandler(slog.Default(), NewService(users, sessions), sm), sessions
}

func postLogin(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	sess := &shared.Session{ID: "sess-1"}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	h.handleLogin(rr, req)
	return rr
}

func TestLoginSuccess(t *testing.T) {
	h, sessions := newTestHandler(t)

	rr := postLogin(h, `{"email":"staff@example.edu","password":"correct-horse-battery"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.UserID)
	assert.Equal(t, "staff", resp.Surface)
	assert.Equal(t, []string{"sess-1"}, sessions.created)
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postLogin(h, `{"email":"staff@example.edu","password":"not-the-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginUnknownAccountSameStatus(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postLogin(h, `{"email":"nobody@example.edu","password":"whatever-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "unknown accounts must be indistinguishable")
}

func TestLoginValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postLogin(h, `{"email":"not-an-email","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
