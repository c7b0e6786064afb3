package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// ErrReauthenticate signals that the stored credentials are gone and the
// caller must log in again. It is terminal for the current session: the
// credential store has already been cleared when this is returned.
var ErrReauthenticate = errors.New("re-authentication required")

// RefreshExchanger exchanges a refresh token for a new token pair. The
// in-process token service and the remote identity client both satisfy it.
type RefreshExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

// RefreshCoordinator rotates the stored credentials when an access token
// expires. Concurrent callers collapse into a single in-flight exchange and
// share its result, so at most one refresh exchange runs at a time.
type RefreshCoordinator struct {
	store     *CredentialStore
	exchanger RefreshExchanger
	group     singleflight.Group
}

// NewRefreshCoordinator constructs a coordinator over the given store and exchanger.
func NewRefreshCoordinator(store *CredentialStore, exchanger RefreshExchanger) *RefreshCoordinator {
	if store == nil {
		panic("auth: refresh coordinator requires a credential store")
	}
	if exchanger == nil {
		panic("auth: refresh coordinator requires an exchanger")
	}
	return &RefreshCoordinator{store: store, exchanger: exchanger}
}

// Rotate exchanges the stored refresh token for a new pair. staleAccess is
// the access token whose verification failed; if the store has already moved
// past it the current pair is returned without a new exchange. On exchange
// failure the store is cleared and ErrReauthenticate is returned.
func (c *RefreshCoordinator) Rotate(ctx context.Context, staleAccess string) (models.TokenPair, error) {
	v, err, _ := c.group.Do("rotate", func() (any, error) {
		current, ok := c.store.Current()
		if ok && staleAccess != "" && current.AccessToken != staleAccess {
			// Another episode rotated first; reuse its result.
			return current, nil
		}

		if !ok || current.RefreshToken == "" {
			_ = c.store.Clear(ctx)
			return nil, ErrReauthenticate
		}

		next, err := c.exchanger.Refresh(ctx, current.RefreshToken)
		if err != nil {
			_ = c.store.Clear(ctx)
			return nil, fmt.Errorf("%w: exchange refresh token: %v", ErrReauthenticate, err)
		}

		if err := c.store.Replace(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		return models.TokenPair{}, err
	}
	return v.(models.TokenPair), nil
}
