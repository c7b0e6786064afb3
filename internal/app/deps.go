package app

import (
	"context"
	"time"

	"github.com/Ansaros/chesslessons-si-sub001/internal/auth"
	"github.com/Ansaros/chesslessons-si-sub001/internal/config"
	"github.com/Ansaros/chesslessons-si-sub001/internal/db"
	"github.com/Ansaros/chesslessons-si-sub001/internal/handlers"
	"github.com/Ansaros/chesslessons-si-sub001/internal/middleware"
	"github.com/Ansaros/chesslessons-si-sub001/internal/policy"
	"github.com/Ansaros/chesslessons-si-sub001/internal/repositories"
	"github.com/Ansaros/chesslessons-si-sub001/internal/streaming"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, signer streaming.ObjectSigner) (handlers.Dependencies, error) {
	secret := []byte(cfg.TokenSigningSecret)

	sessionStore := repositories.NewPostgresSessionStore(pool)
	sessions := auth.NewManager(secret, cfg.TokenIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore)
	verifier := auth.NewJWTVerifier(secret, cfg.TokenIssuer, sessions)

	var vault auth.Vault
	if cfg.CredentialFile != "" {
		vault = auth.NewFileVault(cfg.CredentialFile)
	}
	credentials := auth.NewCredentialStore(vault)
	if err := credentials.Init(ctx); err != nil {
		return handlers.Dependencies{}, err
	}

	var exchanger auth.RefreshExchanger = sessions
	if cfg.IdentityRefreshURL != "" {
		exchanger = auth.NewIdentityClient(cfg.IdentityRefreshURL, nil)
	}
	rotator := auth.NewRefreshCoordinator(credentials, exchanger)

	return handlers.Dependencies{
		Users:        repositories.NewPostgresUserRepository(pool),
		Sessions:     sessions,
		Credentials:  credentials,
		AuthLimiter:  middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		Catalog:      repositories.NewPostgresVideoCatalog(pool),
		Entitlements: repositories.NewPostgresEntitlementRepository(pool),
		Verifier:     verifier,
		Rotator:      rotator,
		Policy:       policy.Engine{},
		Issuer:       streaming.NewIssuer(signer, cfg.ObjectStore.PublicBaseURL, cfg.SignedURLTTL),
	}, nil
}
