package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ansaros/chesslessons-si-sub001/internal/config"
	"github.com/Ansaros/chesslessons-si-sub001/internal/streaming"
)

type poolStub struct{}

func (poolStub) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("no database in unit tests")
}

func (poolStub) Close() {}

type signerStub struct{}

func (signerStub) SignGetURL(_ context.Context, key string, _ streaming.SignOptions) (string, error) {
	return "https://store.example.com/" + key, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		TokenSigningSecret: "unit-test-secret",
		TokenIssuer:        "chesslessons",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    720 * time.Hour,
		SignedURLTTL:       time.Hour,
		CredentialFile:     filepath.Join(t.TempDir(), "credentials.json"),
	}
}

func TestBuildDependencies(t *testing.T) {
	deps, err := buildDependencies(context.Background(), poolStub{}, testConfig(t), signerStub{})
	if err != nil {
		t.Fatalf("build dependencies: %v", err)
	}

	if deps.Users == nil || deps.Sessions == nil || deps.Credentials == nil {
		t.Fatalf("auth wiring incomplete: %+v", deps)
	}
	if deps.Catalog == nil || deps.Entitlements == nil {
		t.Fatalf("catalog wiring incomplete: %+v", deps)
	}
	if deps.Verifier == nil || deps.Rotator == nil || deps.Policy == nil || deps.Issuer == nil {
		t.Fatalf("access wiring incomplete: %+v", deps)
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter")
	}
}

func TestBuildDependenciesWithoutCredentialFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.CredentialFile = ""

	deps, err := buildDependencies(context.Background(), poolStub{}, cfg, signerStub{})
	if err != nil {
		t.Fatalf("build dependencies: %v", err)
	}
	if deps.Credentials == nil {
		t.Fatal("expected in-memory credential store")
	}
}
