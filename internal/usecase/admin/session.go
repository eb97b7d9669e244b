// Package admin guards operator endpoints with short-lived sessions.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/crypto/bcrypt"
)

const tokenLength = 32

type SessionUsecase interface {
	Login(ctx context.Context, password string) (*domain.Session, error)
	Logout(ctx context.Context, token string)
	Authenticate(ctx context.Context, token string) error
}

// DefaultSessionUsecase keeps sessions in memory; a restart logs every operator out.
// Any token it does not know or that has expired is rejected.
type DefaultSessionUsecase struct {
	passwordHash []byte
	ttl          time.Duration
	now          func() time.Time
	newToken     func() string

	mu       sync.Mutex
	sessions map[string]time.Time
}

// NewDefaultSessionUsecase expects a bcrypt hash. An empty hash disables login.
func NewDefaultSessionUsecase(passwordHash string, ttl time.Duration) (*DefaultSessionUsecase, error) {
	newToken, err := nanoid.Standard(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("nanoid.Standard: %w", err)
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}

	return &DefaultSessionUsecase{
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
		now:          time.Now,
		newToken:     newToken,
		sessions:     make(map[string]time.Time),
	}, nil
}

func (uc *DefaultSessionUsecase) Login(_ context.Context, password string) (*domain.Session, error) {
	if len(uc.passwordHash) == 0 {
		slog.Warn("admin login attempted but no password is configured")
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(uc.passwordHash, []byte(password)); err != nil {
		slog.Warn("admin login failed")
		return nil, domain.ErrUnauthorized
	}

	now := uc.now()
	session := &domain.Session{Token: uc.newToken(), ExpiresAt: now.Add(uc.ttl)}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	for token, expiresAt := range uc.sessions {
		if !now.Before(expiresAt) {
			delete(uc.sessions, token)
		}
	}
	uc.sessions[session.Token] = session.ExpiresAt

	slog.Info("admin logged in", "expires_at", session.ExpiresAt)
	return session, nil
}

func (uc *DefaultSessionUsecase) Logout(_ context.Context, token string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.sessions, token)
}

func (uc *DefaultSessionUsecase) Authenticate(_ context.Context, token string) error {
	if token == "" {
		return domain.ErrUnauthorized
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	expiresAt, ok := uc.sessions[token]
	if !ok {
		return domain.ErrUnauthorized
	}
	if !uc.now().Before(expiresAt) {
		delete(uc.sessions, token)
		return domain.ErrUnauthorized
	}
	return nil
}
