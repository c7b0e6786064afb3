// Package streaming mints playable delivery URLs for allowed access decisions.
package streaming

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

// SignOptions controls a single signed GET request against the object store.
type SignOptions struct {
	Validity    time.Duration
	ContentType string
	Disposition string
}

// ObjectSigner produces signed, time-limited URLs for private objects. The
// store owns the cryptographic signing; the issuer owns the validity policy.
type ObjectSigner interface {
	SignGetURL(ctx context.Context, key string, opts SignOptions) (string, error)
}

// Issuer turns an allowed access decision into a delivery URL. Open-tier
// videos resolve to a stable public CDN URL; gated tiers get a freshly
// signed URL bounded by the configured validity window.
type Issuer struct {
	signer     ObjectSigner
	cdnBaseURL string
	window     time.Duration
	now        func() time.Time
}

// NewIssuer constructs an issuer with the given signing window. A
// non-positive window falls back to one hour.
func NewIssuer(signer ObjectSigner, cdnBaseURL string, window time.Duration) *Issuer {
	if signer == nil {
		panic("streaming: issuer requires an object signer")
	}
	if window <= 0 {
		window = time.Hour
	}
	return &Issuer{
		signer:     signer,
		cdnBaseURL: strings.TrimSuffix(cdnBaseURL, "/"),
		window:     window,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue mints a delivery URL for the video. The decision must be allowed;
// calling Issue with a denied decision is a programming error.
func (i *Issuer) Issue(ctx context.Context, decision models.AccessDecision, video models.Video) (models.SignedDelivery, error) {
	if !decision.Allowed {
		panic("streaming: issue called with a denied decision")
	}

	delivery := models.SignedDelivery{
		Title:           video.Title,
		DurationSeconds: video.DurationSeconds,
	}

	key := strings.TrimLeft(video.StorageKey, "/")
	if key == "" {
		return models.SignedDelivery{}, fmt.Errorf("video %s has no storage key", video.ID)
	}

	if video.Tier == models.TierOpen {
		delivery.URL = fmt.Sprintf("%s/%s", i.cdnBaseURL, key)
		return delivery, nil
	}

	contentType := video.MediaType
	if contentType == "" {
		contentType = "video/mp4"
	}

	issuedAt := i.now()
	url, err := i.signer.SignGetURL(ctx, key, SignOptions{
		Validity:    i.window,
		ContentType: contentType,
		Disposition: "inline",
	})
	if err != nil {
		return models.SignedDelivery{}, fmt.Errorf("sign delivery url for %s: %w", video.ID, err)
	}

	delivery.URL = url
	delivery.ExpiresAt = issuedAt.Add(i.window)
	return delivery, nil
}
