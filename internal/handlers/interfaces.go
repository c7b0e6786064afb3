package handlers

import (
	"context"

	"github.com/Ansaros/chesslessons-si-sub001/internal/auth"
	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager issues, refreshes, and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string)
}

// TokenVerifier validates an inbound bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

// CredentialRotator exchanges the stored refresh token for a new pair when
// an access token has expired.
type CredentialRotator interface {
	Rotate(ctx context.Context, staleAccess string) (models.TokenPair, error)
}

// CredentialBinder installs or clears the token pair held in the process
// session context.
type CredentialBinder interface {
	Set(ctx context.Context, pair models.TokenPair, persist bool) error
	Clear(ctx context.Context) error
}

// VideoCatalog supplies lesson video descriptors by id.
type VideoCatalog interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context) ([]models.Video, error)
}

// EntitlementSource supplies the purchase/subscription records for a user.
type EntitlementSource interface {
	ForUser(ctx context.Context, userID string) (models.Entitlements, error)
}

// AccessPolicy decides whether a principal may watch a video.
type AccessPolicy interface {
	Decide(principal *models.Principal, video models.Video) models.AccessDecision
}

// DeliveryIssuer mints a playable URL for an allowed decision.
type DeliveryIssuer interface {
	Issue(ctx context.Context, decision models.AccessDecision, video models.Video) (models.SignedDelivery, error)
}
