package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/almacen-erp/almacen-erp/internal/shared"
)

type memoryRepo struct {
	users map[string]User
}

var _ Repository = (*memoryRepo)(nil)

func (m *memoryRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func newTestService(t *testing.T) (*Service, *shared.SessionStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionStore(client, time.Hour)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memoryRepo{users: map[string]User{
		"ana": {ID: 7, Username: "ana", PasswordHash: string(hash), Role: RoleSeller, IsActive: true},
		"off": {ID: 8, Username: "off", PasswordHash: string(hash), Role: RoleSeller, IsActive: false},
	}}
	return NewService(repo, sessions), sessions
}

func TestLoginIssuesToken(t *testing.T) {
	svc, sessions := newTestService(t)

	user, token, err := svc.Login(context.Background(), "ana", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.NotEmpty(t, token)

	identity, err := sessions.Get(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, int64(7), identity.UserID)
	require.Equal(t, RoleSeller, identity.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "ana", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "off", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, sessions := newTestService(t)

	_, token, err := svc.Login(context.Background(), "ana", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), token))

	_, err = sessions.Get(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrSessionNotFound)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/auth/logout", nil)
	require.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc123")
	require.Equal(t, "abc123", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc123")
	require.Empty(t, TokenFromRequest(r))
}
