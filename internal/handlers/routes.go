package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{
		Users:       deps.Users,
		Sessions:    deps.Sessions,
		Credentials: deps.Credentials,
		Limiter:     deps.AuthLimiter,
	}
	videos := VideoHandler{
		Catalog:      deps.Catalog,
		Entitlements: deps.Entitlements,
		Verifier:     deps.Verifier,
		Rotator:      deps.Rotator,
		Policy:       deps.Policy,
		Issuer:       deps.Issuer,
	}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/token/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", auth.Logout)
	mux.HandleFunc("/api/v1/videos", videos.List)
	mux.HandleFunc("/api/v1/videos/{id}", videos.Stream)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users        UserStore
	Sessions     SessionManager
	Credentials  CredentialBinder
	AuthLimiter  RateLimiter
	Catalog      VideoCatalog
	Entitlements EntitlementSource
	Verifier     TokenVerifier
	Rotator      CredentialRotator
	Policy       AccessPolicy
	Issuer       DeliveryIssuer
}
