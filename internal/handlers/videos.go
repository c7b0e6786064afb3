package handlers

import (
	"errors"
	"net/http"

	"github.com/Ansaros/chesslessons-si-sub001/internal/auth"
	"github.com/Ansaros/chesslessons-si-sub001/internal/logging"
	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
	"github.com/Ansaros/chesslessons-si-sub001/internal/repositories"
)

// VideoHandler is the boundary gateway for lesson playback: it sequences
// token verification, credential rotation, the access decision, and signed
// URL issuance for GET /api/v1/videos/{id}.
type VideoHandler struct {
	Catalog      VideoCatalog
	Entitlements EntitlementSource
	Verifier     TokenVerifier
	Rotator      CredentialRotator
	Policy       AccessPolicy
	Issuer       DeliveryIssuer
}

type deliveryResponse struct {
	DeliveryURL     string `json:"deliveryUrl"`
	ExpiresAt       int64  `json:"expiresAt"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
}

type refusalResponse struct {
	Error             string `json:"error"`
	Reason            string `json:"reason,omitempty"`
	NeedsPurchase     bool   `json:"needsPurchase,omitempty"`
	NeedsSubscription bool   `json:"needsSubscription,omitempty"`
	Price             int64  `json:"price,omitempty"`
	Reauthenticate    bool   `json:"reauthenticate,omitempty"`
}

// Stream handles GET /api/v1/videos/{id}.
func (h VideoHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, span := logging.StartSpan(r.Context(), "videos.stream")
	defer span.End()
	r = r.WithContext(ctx)
	logger := logging.FromContext(ctx)

	id := r.PathValue("id")
	if id == "" {
		respondJSON(ctx, w, http.StatusNotFound, refusalResponse{Error: "video not found"})
		return
	}

	video, err := h.Catalog.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, refusalResponse{Error: "video not found"})
			return
		}
		logger.Error("catalog lookup failed", "videoId", id, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, refusalResponse{Error: "unable to load video"})
		return
	}

	principal, status, refusal := h.authenticate(r)
	if refusal != nil {
		respondJSON(ctx, w, status, *refusal)
		return
	}

	decision := h.Policy.Decide(principal, video)
	if !decision.Allowed {
		h.refuse(w, r, decision)
		return
	}

	delivery, err := h.Issuer.Issue(ctx, decision, video)
	if err != nil {
		logger.Error("delivery issuance failed", "videoId", id, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, refusalResponse{Error: "unable to prepare video delivery"})
		return
	}

	resp := deliveryResponse{
		DeliveryURL:     delivery.URL,
		Title:           delivery.Title,
		DurationSeconds: delivery.DurationSeconds,
	}
	if !delivery.ExpiresAt.IsZero() {
		resp.ExpiresAt = delivery.ExpiresAt.Unix()
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}

// authenticate resolves the request's principal and, on refusal, the status
// to send. A missing Authorization header yields an anonymous principal; any
// presented token must verify. An expired token gets exactly one rotation
// before the retried verification, and a second expiry is terminal for the
// session. Failures of the collaborators themselves (liveness store,
// entitlement store) are server errors, not authentication refusals.
func (h VideoHandler) authenticate(r *http.Request) (*models.Principal, int, *refusalResponse) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	bearer, ok := bearerToken(r)
	if !ok {
		return nil, 0, nil
	}

	identity, err := h.Verifier.Verify(ctx, bearer)
	if err != nil {
		var verr *auth.VerificationError
		if !errors.As(err, &verr) {
			logger.Error("token verification failed upstream", "error", err)
			return nil, http.StatusInternalServerError, &refusalResponse{Error: "authentication unavailable"}
		}

		if verr.Kind != auth.KindExpired {
			logger.Warn("rejected bearer token", "kind", string(verr.Kind))
			return nil, http.StatusUnauthorized, &refusalResponse{Error: "invalid credentials"}
		}

		if h.Rotator == nil {
			return nil, http.StatusUnauthorized, &refusalResponse{Error: "session expired", Reauthenticate: true}
		}

		expired := verr.Identity

		pair, rerr := h.Rotator.Rotate(ctx, bearer)
		if rerr != nil {
			logger.Warn("credential rotation failed", "error", rerr)
			return nil, http.StatusUnauthorized, &refusalResponse{Error: "session expired", Reauthenticate: true}
		}

		identity, err = h.Verifier.Verify(ctx, pair.AccessToken)
		if err != nil {
			// One refresh per request; a still-expired token means the
			// session is beyond recovery.
			logger.Warn("verification failed after rotation", "error", err)
			return nil, http.StatusUnauthorized, &refusalResponse{Error: "session expired", Reauthenticate: true}
		}

		// The rotated pair must belong to the principal who presented the
		// expired token. The credential slot is process-wide, so without
		// this check a caller could ride another user's session.
		if expired.Subject == "" || identity.Subject != expired.Subject {
			logger.Warn("rotated credentials belong to a different principal",
				"expiredSubject", expired.Subject, "rotatedSubject", identity.Subject)
			return nil, http.StatusUnauthorized, &refusalResponse{Error: "session expired", Reauthenticate: true}
		}
	}

	entitlements, err := h.Entitlements.ForUser(ctx, identity.Subject)
	if err != nil {
		logger.Error("entitlement lookup failed", "userId", identity.Subject, "error", err)
		return nil, http.StatusInternalServerError, &refusalResponse{Error: "unable to load entitlements"}
	}

	return &models.Principal{
		Subject:      identity.Subject,
		Elevated:     identity.Elevated,
		Entitlements: entitlements,
	}, 0, nil
}

func (h VideoHandler) refuse(w http.ResponseWriter, r *http.Request, decision models.AccessDecision) {
	ctx := r.Context()

	switch decision.Reason {
	case models.DenyUnauthenticated:
		respondJSON(ctx, w, http.StatusUnauthorized, refusalResponse{
			Error:  "authentication required",
			Reason: string(decision.Reason),
		})
	case models.DenyNotPurchased:
		respondJSON(ctx, w, http.StatusForbidden, refusalResponse{
			Error:         "purchase required",
			Reason:        string(decision.Reason),
			NeedsPurchase: true,
			Price:         decision.PriceMinorUnits,
		})
	case models.DenyNoSubscription:
		respondJSON(ctx, w, http.StatusForbidden, refusalResponse{
			Error:             "subscription required",
			Reason:            string(decision.Reason),
			NeedsSubscription: true,
		})
	default:
		respondJSON(ctx, w, http.StatusForbidden, refusalResponse{
			Error:  "access denied",
			Reason: string(decision.Reason),
		})
	}
}

type catalogEntry struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Tier            string `json:"tier"`
	Price           int64  `json:"price"`
	DurationSeconds int    `json:"durationSeconds"`
}

// List handles GET /api/v1/videos with a public view of the catalog.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videos, err := h.Catalog.List(ctx)
	if err != nil {
		logger.Error("catalog list failed", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, refusalResponse{Error: "unable to load catalog"})
		return
	}

	entries := make([]catalogEntry, 0, len(videos))
	for _, video := range videos {
		entries = append(entries, catalogEntry{
			ID:              video.ID,
			Title:           video.Title,
			Tier:            string(video.Tier),
			Price:           video.PriceMinorUnits,
			DurationSeconds: video.DurationSeconds,
		})
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": entries})
}
