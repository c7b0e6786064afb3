package models

import "time"

// User represents an account within the ChessLessons platform.
type User struct {
	ID        string
	Email     string
	Password  string
	Elevated  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessTier classifies how a lesson video may be watched.
type AccessTier string

const (
	// TierOpen videos are freely watchable, including by anonymous visitors.
	TierOpen AccessTier = "open"
	// TierPurchase videos require a recorded one-time purchase.
	TierPurchase AccessTier = "purchase"
	// TierSubscription videos require an active subscription.
	TierSubscription AccessTier = "subscription"
)

// Video describes a lesson video in the catalog. The catalog owns these
// records; the access layer treats them as read-only input.
type Video struct {
	ID              string
	Title           string
	Tier            AccessTier
	PriceMinorUnits int64
	StorageKey      string
	MediaType       string
	DurationSeconds int
	CreatedAt       time.Time
}

// TokenPair groups the bearer credentials held for the current session. At
// most one pair is current at any time; rotation replaces it atomically.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Entitlements captures what a user is recorded as having paid for.
type Entitlements struct {
	Purchased          map[string]struct{}
	SubscriptionActive bool
}

// HasPurchased reports whether the entitlement set includes the video id.
func (e Entitlements) HasPurchased(videoID string) bool {
	_, ok := e.Purchased[videoID]
	return ok
}

// Principal is the identity derived from a verified token together with its
// entitlements. Reconstructed per request, never persisted.
type Principal struct {
	Subject      string
	Elevated     bool
	Entitlements Entitlements
}

// DenyReason explains why an access decision refused playback.
type DenyReason string

const (
	DenyUnauthenticated DenyReason = "unauthenticated"
	DenyNotPurchased    DenyReason = "not_purchased"
	DenyNoSubscription  DenyReason = "no_subscription"
)

// AccessDecision is the outcome of evaluating a principal against a video.
// Entitlements can change between requests (a purchase can complete
// concurrently), so decisions are produced fresh per call and never cached.
type AccessDecision struct {
	Allowed         bool
	Reason          DenyReason
	PriceMinorUnits int64
}

// Allow returns a positive access decision.
func Allow() AccessDecision {
	return AccessDecision{Allowed: true}
}

// Deny returns a refusal carrying the given reason.
func Deny(reason DenyReason) AccessDecision {
	return AccessDecision{Reason: reason}
}

// SignedDelivery is a playable URL handed back to an allowed caller. A zero
// ExpiresAt marks a public, non-expiring CDN URL; any other value is a hard
// cutoff enforced by the signing mechanism.
type SignedDelivery struct {
	URL             string
	ExpiresAt       time.Time
	Title           string
	DurationSeconds int
}
