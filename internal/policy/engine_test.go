package policy

import (
	"testing"

	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
)

func principalWith(purchased []string, subscribed bool) *models.Principal {
	set := make(map[string]struct{}, len(purchased))
	for _, id := range purchased {
		set[id] = struct{}{}
	}
	return &models.Principal{
		Subject: "user-1",
		Entitlements: models.Entitlements{
			Purchased:          set,
			SubscriptionActive: subscribed,
		},
	}
}

func TestDecide(t *testing.T) {
	openVideo := models.Video{ID: "v-open", Tier: models.TierOpen}
	paidVideo := models.Video{ID: "v-paid", Tier: models.TierPurchase, PriceMinorUnits: 1999}
	subVideo := models.Video{ID: "v-sub", Tier: models.TierSubscription}

	cases := []struct {
		name        string
		principal   *models.Principal
		video       models.Video
		wantAllowed bool
		wantReason  models.DenyReason
		wantPrice   int64
	}{
		{
			name:        "open tier allows anonymous",
			principal:   nil,
			video:       openVideo,
			wantAllowed: true,
		},
		{
			name:        "open tier allows authenticated without entitlements",
			principal:   principalWith(nil, false),
			video:       openVideo,
			wantAllowed: true,
		},
		{
			name:       "anonymous denied purchase tier",
			principal:  nil,
			video:      paidVideo,
			wantReason: models.DenyUnauthenticated,
		},
		{
			name:       "anonymous denied subscription tier",
			principal:  nil,
			video:      subVideo,
			wantReason: models.DenyUnauthenticated,
		},
		{
			name:        "purchase tier allowed when purchased",
			principal:   principalWith([]string{"v-paid"}, false),
			video:       paidVideo,
			wantAllowed: true,
		},
		{
			name:       "purchase tier denied with price when not purchased",
			principal:  principalWith([]string{"other"}, false),
			video:      paidVideo,
			wantReason: models.DenyNotPurchased,
			wantPrice:  1999,
		},
		{
			name:        "subscription tier allowed for active subscriber",
			principal:   principalWith(nil, true),
			video:       subVideo,
			wantAllowed: true,
		},
		{
			name:       "subscription tier denied without subscription",
			principal:  principalWith([]string{"v-paid"}, false),
			video:      subVideo,
			wantReason: models.DenyNoSubscription,
		},
		{
			name:        "subscription does not grant purchase tier",
			principal:   principalWith(nil, true),
			video:       paidVideo,
			wantReason:  models.DenyNotPurchased,
			wantPrice:   1999,
			wantAllowed: false,
		},
	}

	engine := Engine{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := engine.Decide(tc.principal, tc.video)
			if decision.Allowed != tc.wantAllowed {
				t.Fatalf("allowed = %v, want %v", decision.Allowed, tc.wantAllowed)
			}
			if !tc.wantAllowed && decision.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", decision.Reason, tc.wantReason)
			}
			if decision.PriceMinorUnits != tc.wantPrice {
				t.Fatalf("price = %d, want %d", decision.PriceMinorUnits, tc.wantPrice)
			}
		})
	}
}

func TestDecideElevatedBypass(t *testing.T) {
	admin := &models.Principal{Subject: "admin-1", Elevated: true}
	engine := Engine{}

	for _, video := range []models.Video{
		{ID: "v-paid", Tier: models.TierPurchase, PriceMinorUnits: 500},
		{ID: "v-sub", Tier: models.TierSubscription},
	} {
		if decision := engine.Decide(admin, video); !decision.Allowed {
			t.Fatalf("elevated principal denied %s: %+v", video.ID, decision)
		}
	}
}

func TestDecideIsFreshPerCall(t *testing.T) {
	engine := Engine{}
	video := models.Video{ID: "v-paid", Tier: models.TierPurchase, PriceMinorUnits: 100}
	principal := principalWith(nil, false)

	if decision := engine.Decide(principal, video); decision.Allowed {
		t.Fatal("expected denial before purchase")
	}

	// A purchase completing between requests must be visible immediately.
	principal.Entitlements.Purchased["v-paid"] = struct{}{}
	if decision := engine.Decide(principal, video); !decision.Allowed {
		t.Fatal("expected allowance after purchase")
	}
}
