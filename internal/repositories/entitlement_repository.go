package repositories

import (
	"context"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// EntitlementRepository supplies the purchase and subscription records used
// by the access policy. This service only reads entitlements; the payment
// provider's effect lands in these tables out of band.
type EntitlementRepository interface {
	ForUser(ctx context.Context, userID string) (models.Entitlements, error)
}
