package admin

import (
	"testing"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newSessions(t *testing.T, password string) *DefaultSessionUsecase {
	t.Helper()
	hash := ""
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(b)
	}
	uc, err := NewDefaultSessionUsecase(hash, time.Hour)
	require.NoError(t, err)
	return uc
}

func TestLogin(t *testing.T) {
	password := gofakeit.Password(true, true, true, false, false, 16)

	cases := []struct {
		name       string
		configured string
		attempt    string
		wantErr    error
	}{
		{name: "right password: ok", configured: password, attempt: password},
		{name: "wrong password: fail", configured: password, attempt: password + "x", wantErr: domain.ErrUnauthorized},
		{name: "empty password: fail", configured: password, attempt: "", wantErr: domain.ErrUnauthorized},
		{name: "login disabled: fail", configured: "", attempt: password, wantErr: domain.ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newSessions(t, tc.configured)

			session, err := uc.Login(t.Context(), tc.attempt)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, session.Token, tokenLength)
			require.NoError(t, uc.Authenticate(t.Context(), session.Token))
		})
	}
}

func TestAuthenticate(t *testing.T) {
	uc := newSessions(t, "hunter2")
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	session, err := uc.Login(t.Context(), "hunter2")
	require.NoError(t, err)

	t.Run("unknown token: fail", func(t *testing.T) {
		require.ErrorIs(t, uc.Authenticate(t.Context(), "forged"), domain.ErrUnauthorized)
	})

	t.Run("empty token: fail", func(t *testing.T) {
		require.ErrorIs(t, uc.Authenticate(t.Context(), ""), domain.ErrUnauthorized)
	})

	t.Run("before expiry: ok", func(t *testing.T) {
		now = session.ExpiresAt.Add(-time.Second)
		require.NoError(t, uc.Authenticate(t.Context(), session.Token))
	})

	t.Run("at expiry: fail", func(t *testing.T) {
		now = session.ExpiresAt
		require.ErrorIs(t, uc.Authenticate(t.Context(), session.Token), domain.ErrUnauthorized)
		assert.Empty(t, uc.sessions)
	})
}

func TestLogout(t *testing.T) {
	uc := newSessions(t, "hunter2")

	session, err := uc.Login(t.Context(), "hunter2")
	require.NoError(t, err)
	uc.Logout(t.Context(), session.Token)

	require.ErrorIs(t, uc.Authenticate(t.Context(), session.Token), domain.ErrUnauthorized)
}

func TestNewSessionsRejectsPlainPassword(t *testing.T) {
	_, err := NewDefaultSessionUsecase("plain-text", time.Hour)
	require.Error(t, err)
}
