package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ansaros/chesslessons-si-sub001/internal/auth"
	"github.com/Ansaros/chesslessons-si-sub001/internal/models"
	"github.com/Ansaros/chesslessons-si-sub001/internal/repositories"
)

type userStoreStub struct {
	users     map[string]models.User
	created   []models.User
	createErr error
}

func (s *userStoreStub) Create(_ context.Context, user models.User) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, user)
	if s.users == nil {
		s.users = map[string]models.User{}
	}
	s.users[user.Email] = user
	return nil
}

func (s *userStoreStub) FindByEmail(_ context.Context, email string) (models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

type sessionManagerStub struct {
	pair       models.TokenPair
	issueErr   error
	refreshErr error
	issued     []string
	revoked    []string
}

func (s *sessionManagerStub) Issue(_ context.Context, user models.User) (models.TokenPair, error) {
	if s.issueErr != nil {
		return models.TokenPair{}, s.issueErr
	}
	s.issued = append(s.issued, user.ID)
	return s.pair, nil
}

func (s *sessionManagerStub) Refresh(_ context.Context, refreshToken string) (models.TokenPair, error) {
	if s.refreshErr != nil {
		return models.TokenPair{}, s.refreshErr
	}
	return s.pair, nil
}

func (s *sessionManagerStub) Revoke(_ context.Context, refreshToken string) {
	s.revoked = append(s.revoked, refreshToken)
}

type binderStub struct {
	pair    models.TokenPair
	persist bool
	bound   bool
	cleared bool
	err     error
}

func (b *binderStub) Set(_ context.Context, pair models.TokenPair, persist bool) error {
	if b.err != nil {
		return b.err
	}
	b.pair = pair
	b.persist = persist
	b.bound = true
	return nil
}

func (b *binderStub) Clear(context.Context) error {
	if b.err != nil {
		return b.err
	}
	b.cleared = true
	b.bound = false
	return nil
}

type limiterStub struct {
	allow bool
	keys  []string
}

func (l *limiterStub) Allow(key string) bool {
	l.keys = append(l.keys, key)
	return l.allow
}

func sessionPair() models.TokenPair {
	now := time.Now().UTC().Truncate(time.Second)
	return models.TokenPair{
		AccessToken:      "access-token",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:     "refresh-token",
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hashed)
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestLoginSuccessBindsCredentials(t *testing.T) {
	users := &userStoreStub{users: map[string]models.User{
		"player@example.com": {ID: "user-1", Email: "player@example.com", Password: mustHash(t, "correct horse")},
	}}
	sessions := &sessionManagerStub{pair: sessionPair()}
	binder := &binderStub{}
	handler := AuthHandler{Users: users, Sessions: sessions, Credentials: binder}

	rec := httptest.NewRecorder()
	handler.Login(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"Player@Example.com","password":"correct horse","persist":true}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "access-token" || resp.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}

	if !binder.bound || !binder.persist {
		t.Fatalf("expected persisted credential binding, got bound=%v persist=%v", binder.bound, binder.persist)
	}
	if binder.pair.AccessToken != "access-token" {
		t.Fatalf("bound pair = %+v", binder.pair)
	}
}

func TestLoginWithoutPersistence(t *testing.T) {
	users := &userStoreStub{users: map[string]models.User{
		"player@example.com": {ID: "user-1", Email: "player@example.com", Password: mustHash(t, "correct horse")},
	}}
	binder := &binderStub{}
	handler := AuthHandler{Users: users, Sessions: &sessionManagerStub{pair: sessionPair()}, Credentials: binder}

	rec := httptest.NewRecorder()
	handler.Login(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"player@example.com","password":"correct horse"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !binder.bound || binder.persist {
		t.Fatalf("expected in-memory binding only, got bound=%v persist=%v", binder.bound, binder.persist)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := &userStoreStub{users: map[string]models.User{
		"player@example.com": {ID: "user-1", Email: "player@example.com", Password: mustHash(t, "correct horse")},
	}}
	handler := AuthHandler{Users: users, Sessions: &sessionManagerStub{pair: sessionPair()}}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"wrong password", `{"email":"player@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"unknown account", `{"email":"ghost@example.com","password":"whatever"}`, http.StatusUnauthorized},
		{"missing fields", `{"email":"player@example.com"}`, http.StatusBadRequest},
		{"malformed body", `{"email":`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Login(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", tc.body))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	limiter := &limiterStub{allow: false}
	handler := AuthHandler{Users: &userStoreStub{}, Sessions: &sessionManagerStub{}, Limiter: limiter}

	rec := httptest.NewRecorder()
	handler.Login(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.c","password":"p"}`))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if len(limiter.keys) != 1 || !strings.HasPrefix(limiter.keys[0], "login:") {
		t.Fatalf("limiter keys = %v", limiter.keys)
	}
}

func TestSignUpCreatesAccount(t *testing.T) {
	users := &userStoreStub{}
	sessions := &sessionManagerStub{pair: sessionPair()}
	binder := &binderStub{}
	handler := AuthHandler{Users: users, Sessions: sessions, Credentials: binder}

	rec := httptest.NewRecorder()
	handler.SignUp(rec, jsonRequest(http.MethodPost, "/api/v1/auth/signup", `{"email":"new@example.com","password":"long enough","persist":true}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(users.created) != 1 {
		t.Fatalf("created users = %d, want 1", len(users.created))
	}

	created := users.created[0]
	if created.Email != "new@example.com" || created.ID == "" {
		t.Fatalf("created user = %+v", created)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("long enough")); err != nil {
		t.Fatalf("stored password is not a valid hash: %v", err)
	}
	if !binder.bound || !binder.persist {
		t.Fatalf("expected persisted binding, got bound=%v persist=%v", binder.bound, binder.persist)
	}
}

func TestSignUpValidation(t *testing.T) {
	users := &userStoreStub{users: map[string]models.User{
		"taken@example.com": {ID: "user-1", Email: "taken@example.com"},
	}}
	handler := AuthHandler{Users: users, Sessions: &sessionManagerStub{pair: sessionPair()}}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"existing account", `{"email":"taken@example.com","password":"long enough"}`, http.StatusConflict},
		{"short password", `{"email":"new@example.com","password":"short"}`, http.StatusBadRequest},
		{"invalid email", `{"email":"not-an-email","password":"long enough"}`, http.StatusBadRequest},
		{"missing fields", `{}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.SignUp(rec, jsonRequest(http.MethodPost, "/api/v1/auth/signup", tc.body))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	sessions := &sessionManagerStub{pair: sessionPair()}
	handler := AuthHandler{Sessions: sessions}

	r := jsonRequest(http.MethodPost, "/api/v1/auth/token/refresh", "")
	r.Header.Set("Authorization", "Bearer old-refresh-token")

	rec := httptest.NewRecorder()
	handler.Refresh(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "access-token" || resp.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected tokens: %+v", resp)
	}
	if resp.AccessExpiresAt <= time.Now().Unix() {
		t.Fatalf("access expiry %d not in the future", resp.AccessExpiresAt)
	}
}

func TestRefreshFailures(t *testing.T) {
	cases := []struct {
		name   string
		bearer string
		err    error
		want   int
	}{
		{"missing token", "", nil, http.StatusBadRequest},
		{"unknown session", "stale", auth.ErrSessionNotFound, http.StatusUnauthorized},
		{"expired refresh token", "stale", auth.ErrRefreshTokenExpired, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthHandler{Sessions: &sessionManagerStub{refreshErr: tc.err}}

			r := jsonRequest(http.MethodPost, "/api/v1/auth/token/refresh", "")
			if tc.bearer != "" {
				r.Header.Set("Authorization", "Bearer "+tc.bearer)
			}

			rec := httptest.NewRecorder()
			handler.Refresh(rec, r)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestLogoutRevokesAndClears(t *testing.T) {
	sessions := &sessionManagerStub{}
	binder := &binderStub{bound: true}
	handler := AuthHandler{Sessions: sessions, Credentials: binder}

	r := jsonRequest(http.MethodPost, "/api/v1/auth/logout", "")
	r.Header.Set("Authorization", "Bearer refresh-token")

	rec := httptest.NewRecorder()
	handler.Logout(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "refresh-token" {
		t.Fatalf("revoked = %v", sessions.revoked)
	}
	if !binder.cleared {
		t.Fatal("expected credentials cleared")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := bearerToken(r)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("bearerToken(%q) = %q, %v; want %q, %v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}
