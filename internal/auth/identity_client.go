package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// IdentityClient performs refresh exchanges against a remote identity
// provider. It implements RefreshExchanger for deployments where token
// issuance lives in a separate service.
type IdentityClient struct {
	refreshURL string
	client     *http.Client
}

// NewIdentityClient constructs a client for the provider's refresh endpoint.
func NewIdentityClient(refreshURL string, client *http.Client) *IdentityClient {
	if refreshURL == "" {
		panic("auth: identity client requires a refresh URL")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &IdentityClient{refreshURL: refreshURL, client: client}
}

type refreshExchangeResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresAt  int64  `json:"access_expires_at"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

// Refresh posts the refresh token as a bearer credential and returns the
// rotated pair. Any non-200 response is an exchange failure.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, nil)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+refreshToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TokenPair{}, fmt.Errorf("identity provider refused refresh: status %d", resp.StatusCode)
	}

	var body refreshExchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if body.AccessToken == "" {
		return models.TokenPair{}, fmt.Errorf("identity provider returned empty access token")
	}

	pair := models.TokenPair{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
	}
	if body.AccessExpiresAt > 0 {
		pair.AccessExpiresAt = unixUTC(body.AccessExpiresAt)
	}
	if body.RefreshExpiresAt > 0 {
		pair.RefreshExpiresAt = unixUTC(body.RefreshExpiresAt)
	}
	return pair, nil
}
