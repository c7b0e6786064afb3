package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerificationKind classifies why a bearer token failed verification. Only
// KindExpired triggers the refresh path; every other kind fails the request
// immediately with no retry.
type VerificationKind string

const (
	KindMalformed VerificationKind = "malformed"
	KindExpired   VerificationKind = "expired"
	KindRevoked   VerificationKind = "revoked"
)

// VerificationError reports a failed token verification. For KindExpired,
// Identity carries the signature-checked claims of the expired token so the
// refresh path can bind the rotated credentials to the same principal; it is
// zero for every other kind.
type VerificationError struct {
	Kind     VerificationKind
	Identity Identity
	Err      error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token verification failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("token verification failed (%s)", e.Kind)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Identity is the authenticated principal identity carried by an access
// token. Elevated is resolved here, once, from the token claims and never
// re-derived downstream.
type Identity struct {
	Subject   string
	Elevated  bool
	SessionID string
}

// TokenVerifier validates an inbound bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// SessionChecker reports whether the session an access token was minted for
// is still active. Lookups are read-only.
type SessionChecker interface {
	ActiveSession(ctx context.Context, sessionID string) (bool, error)
}

// accessClaims is the claim set minted into access tokens.
type accessClaims struct {
	Elevated  bool   `json:"elv,omitempty"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 access tokens issued by the token service.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	sessions SessionChecker
}

// NewJWTVerifier constructs a verifier for tokens signed with the shared
// secret. A nil sessions checker disables revocation checks.
func NewJWTVerifier(secret []byte, issuer string, sessions SessionChecker) *JWTVerifier {
	if len(secret) == 0 {
		panic("auth: verifier requires a signing secret")
	}
	return &JWTVerifier{secret: secret, issuer: issuer, sessions: sessions}
}

// Verify checks the token's signature, expiry, and session liveness, and
// returns the authenticated identity. The check has no side effects.
func (v *JWTVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(v.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// The parser verifies the signature before validating claims,
			// so an expiry failure means the claims are authentic.
			return Identity{}, &VerificationError{
				Kind: KindExpired,
				Identity: Identity{
					Subject:   claims.Subject,
					Elevated:  claims.Elevated,
					SessionID: claims.SessionID,
				},
				Err: err,
			}
		}
		return Identity{}, &VerificationError{Kind: KindMalformed, Err: err}
	}

	if !parsed.Valid || claims.Subject == "" || claims.SessionID == "" {
		return Identity{}, &VerificationError{Kind: KindMalformed, Err: errors.New("incomplete claims")}
	}

	if v.sessions != nil {
		active, err := v.sessions.ActiveSession(ctx, claims.SessionID)
		if err != nil {
			return Identity{}, fmt.Errorf("check session liveness: %w", err)
		}
		if !active {
			return Identity{}, &VerificationError{Kind: KindRevoked}
		}
	}

	return Identity{
		Subject:   claims.Subject,
		Elevated:  claims.Elevated,
		SessionID: claims.SessionID,
	}, nil
}

// signAccessToken mints the HS256 access token embedded in issued pairs.
func signAccessToken(secret []byte, issuer, userID, sessionID string, elevated bool, issuedAt, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		Elevated:  elevated,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
