package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

var (
	// ErrSessionNotFound indicates the provided refresh token does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// SessionStore persists issued refresh tokens so they can survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, refreshToken string) (Session, error)
	FindByID(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, refreshToken string) error
}

// Session represents a refresh token issued to a user. The id is embedded in
// access tokens minted for the session so revocation can be detected.
type Session struct {
	ID           string
	RefreshToken string
	UserID       string
	Elevated     bool
	ExpiresAt    time.Time
}

// Manager is the token service: it mints signed access tokens paired with
// opaque refresh tokens, rotates pairs on refresh, and revokes sessions.
type Manager struct {
	signingSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager that issues access and refresh tokens with the provided TTLs.
func NewManager(signingSecret []byte, issuer string, accessTTL, refreshTTL time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if len(signingSecret) == 0 {
		panic("auth: signing secret must not be empty")
	}
	return &Manager{
		signingSecret: signingSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a new pair of access and refresh tokens for the provided user.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.TokenPair, error) {
	if user.ID == "" {
		return models.TokenPair{}, errors.New("user id must be provided")
	}

	now := m.now()
	sessionID := uuid.NewString()

	refreshToken, err := randomToken()
	if err != nil {
		return models.TokenPair{}, err
	}

	accessExpiresAt := now.Add(m.accessTTL)
	refreshExpiresAt := now.Add(m.refreshTTL)

	accessToken, err := signAccessToken(m.signingSecret, m.issuer, user.ID, sessionID, user.Elevated, now, accessExpiresAt)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := m.store.Save(ctx, Session{
		ID:           sessionID,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Elevated:     user.Elevated,
		ExpiresAt:    refreshExpiresAt,
	}); err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Refresh exchanges a refresh token for a new session token pair. The old
// session is deleted before the replacement is issued, so a refresh token is
// usable at most once.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	if refreshToken == "" {
		return models.TokenPair{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, refreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}

	if m.now().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, refreshToken)
		return models.TokenPair{}, ErrRefreshTokenExpired
	}

	if err := m.store.Delete(ctx, refreshToken); err != nil {
		return models.TokenPair{}, err
	}

	return m.Issue(ctx, models.User{ID: session.UserID, Elevated: session.Elevated})
}

// Revoke removes the provided refresh token from the active session store.
func (m *Manager) Revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	_ = m.store.Delete(ctx, refreshToken)
}

// ActiveSession reports whether the session is present and unexpired. It
// implements SessionChecker for the verifier's revocation check.
func (m *Manager) ActiveSession(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}

	session, err := m.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	return !m.now().After(session.ExpiresAt), nil
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
