package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

func newTestManager(accessTTL, refreshTTL time.Duration) (*Manager, *InMemorySessionStore) {
	store := NewInMemorySessionStore()
	return NewManager(testSecret, testIssuer, accessTTL, refreshTTL, store), store
}

func TestManagerIssueAndRefresh(t *testing.T) {
	manager, store := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	refreshed, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}
	if refreshed.AccessToken == tokens.AccessToken {
		t.Fatal("expected new access token")
	}
	if store.Has(tokens.RefreshToken) {
		t.Fatal("old token should have been removed")
	}
}

func TestManagerIssuedAccessTokenVerifies(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), models.User{ID: "admin-1", Elevated: true})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewJWTVerifier(testSecret, testIssuer, manager)
	identity, err := verifier.Verify(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if identity.Subject != "admin-1" || !identity.Elevated {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)
	if _, err := manager.Issue(context.Background(), models.User{}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Millisecond)

	if _, err := manager.Refresh(context.Background(), ""); err != ErrSessionNotFound {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != ErrRefreshTokenExpired {
		t.Fatalf("expected refresh expired got %v", err)
	}

	tokens, err = manager.Issue(context.Background(), models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	manager.Revoke(context.Background(), tokens.RefreshToken)
	if _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerActiveSession(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewJWTVerifier(testSecret, testIssuer, manager)
	identity, err := verifier.Verify(context.Background(), tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	active, err := manager.ActiveSession(context.Background(), identity.SessionID)
	if err != nil || !active {
		t.Fatalf("expected active session, got active=%v err=%v", active, err)
	}

	manager.Revoke(context.Background(), tokens.RefreshToken)

	active, err = manager.ActiveSession(context.Background(), identity.SessionID)
	if err != nil {
		t.Fatalf("active session after revoke: %v", err)
	}
	if active {
		t.Fatal("expected session to be inactive after revoke")
	}
}
