// Package policy decides whether a principal may watch a lesson video.
package policy

import "github.com/Ansaros/chesslessons-si-sub001/internal/models"

// Engine evaluates access rules for video resources. It is stateless and
// safe for concurrent use.
type Engine struct{}

// Decide evaluates the principal against the video. A nil principal is an
// anonymous visitor. Rules are evaluated in order; the first match wins:
//
//  1. Open-tier videos are allowed for everyone, authenticated or not.
//  2. Anonymous visitors are denied everything else.
//  3. Elevated principals bypass entitlement checks.
//  4. Purchase-tier videos require a recorded purchase of that video.
//  5. Subscription-tier videos require an active subscription.
func (Engine) Decide(principal *models.Principal, video models.Video) models.AccessDecision {
	if video.Tier == models.TierOpen {
		return models.Allow()
	}

	if principal == nil {
		return models.Deny(models.DenyUnauthenticated)
	}

	if principal.Elevated {
		return models.Allow()
	}

	switch video.Tier {
	case models.TierPurchase:
		if principal.Entitlements.HasPurchased(video.ID) {
			return models.Allow()
		}
		decision := models.Deny(models.DenyNotPurchased)
		decision.PriceMinorUnits = video.PriceMinorUnits
		return decision
	case models.TierSubscription:
		if principal.Entitlements.SubscriptionActive {
			return models.Allow()
		}
		return models.Deny(models.DenyNoSubscription)
	default:
		// Unknown tiers fail closed.
		return models.Deny(models.DenyNoSubscription)
	}
}
