package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/olivethotokunefor/Mentora/internal/auth"
	"github.com/olivethotokunefor/Mentora/internal/domain"
	"github.com/olivethotokunefor/Mentora/internal/event"
	"github.com/olivethotokunefor/Mentora/internal/repository"
	"github.com/olivethotokunefor/Mentora/internal/service"
	apperrors "github.com/olivethotokunefor/Mentora/pkg/errors"
	"github.com/olivethotokunefor/Mentora/pkg/health"
	pkgkafka "github.com/olivethotokunefor/Mentora/pkg/kafka"
)

// ============================================================================
// In-memory fakes
// ============================================================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperrors.DuplicateEmail()
		}
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return apperrors.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile // keyed by user ID
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*domain.Profile)}
}

func (f *fakeProfileRepo) Create(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Username == profile.Username {
			return apperrors.DuplicateUsername()
		}
	}
	cp := *profile
	f.profiles[profile.UserID] = &cp
	return nil
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, profile *domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[profile.UserID]; !ok {
		return apperrors.NotFound("profile", profile.UserID)
	}
	for uid, p := range f.profiles {
		if uid != profile.UserID && p.Username == profile.Username {
			return apperrors.DuplicateUsername()
		}
	}
	cp := *profile
	f.profiles[profile.UserID] = &cp
	return nil
}

type fakeRefreshRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken // keyed by token hash
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = &domain.RefreshToken{
		ID:        tokenHash,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (f *fakeRefreshRepo) GetByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[tokenHash]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *tok
	return &cp, nil
}

func (f *fakeRefreshRepo) Rotate(_ context.Context, oldHash, userID, newHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.tokens[oldHash]
	if !ok || tok.RevokedAt != nil {
		return repository.ErrTokenConsumed
	}
	now := time.Now().UTC()
	tok.RevokedAt = &now
	f.tokens[newHash] = &domain.RefreshToken{
		ID:        newHash,
		UserID:    userID,
		TokenHash: newHash,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	return nil
}

func (f *fakeRefreshRepo) Revoke(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, ok := f.tokens[tokenHash]; ok && tok.RevokedAt == nil {
		now := time.Now().UTC()
		tok.RevokedAt = &now
	}
	return nil
}

// ============================================================================
// Test setup
// ============================================================================

const testCookieName = "refresh_token"

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := handlerTestLogger()
	tokens := auth.NewTokenManager("test-secret-key-for-testing", 15*time.Minute)
	hasher := auth.NewHasher(bcrypt.MinCost)

	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)

	svc := service.NewSessionService(
		newFakeUserRepo(), newFakeProfileRepo(), newFakeRefreshRepo(),
		tokens, hasher, 7*24*time.Hour, producer, logger,
	)

	return NewRouter(svc, tokens, health.NewHandler(), logger, RouterConfig{
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
			Environment:    "development",
		},
		Cookie: CookieSettings{
			Name:   testCookieName,
			TTL:    7 * 24 * time.Hour,
			Secure: false,
		},
		AuthRateLimitRPS: 1000,
		AuthRateBurst:    1000,
	})
}

type envelope struct {
	Data  map[string]json.RawMessage `json:"data"`
	Error *errorResponse             `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func postJSON(router http.Handler, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, router http.Handler, email, password, username string) *httptest.ResponseRecorder {
	t.Helper()
	return postJSON(router, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"username": username,
	})
}

func login(t *testing.T, router http.Handler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	return postJSON(router, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", testCookieName)
	return nil
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rec)
	var token string
	require.NoError(t, json.Unmarshal(env.Data["access_token"], &token))
	require.NotEmpty(t, token)
	return token
}

// ============================================================================
// Full session lifecycle
// ============================================================================

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	// Register.
	rec := register(t, router, "mira@example.com", "secret123", "mira")
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Data, "id")
	assert.Contains(t, env.Data, "email")

	// Login sets the refresh cookie and returns an access token.
	rec = login(t, router, "mira@example.com", "secret123")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	var token string
	require.NoError(t, json.Unmarshal(env.Data["access_token"], &token))
	require.NotEmpty(t, token)

	// The refresh token never appears in the JSON body.
	assert.NotContains(t, env.Data, "refresh_token")

	cookie := refreshCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/v1/auth", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotEmpty(t, cookie.Value)

	// Authenticated identity lookup.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.Contains(t, env.Data, "user")
	assert.Contains(t, env.Data, "profile")

	// Refresh rotates the cookie.
	rec = postJSON(router, "/api/v1/auth/refresh", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	accessToken(t, rec)
	rotated := refreshCookie(t, rec)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	// Replaying the consumed cookie fails closed.
	rec = postJSON(router, "/api/v1/auth/refresh", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	// Logout revokes the live token and clears the cookie.
	rec = postJSON(router, "/api/v1/auth/logout", nil, rotated)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := refreshCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// The revoked token no longer refreshes.
	rec = postJSON(router, "/api/v1/auth/refresh", nil, rotated)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_DuplicateEmailReturns400(t *testing.T) {
	router := newTestRouter(t)

	rec := register(t, router, "mira@example.com", "secret123", "mira")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = register(t, router, "mira@example.com", "secret123", "other")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_EMAIL", env.Error.Code)
}

func TestRegister_DuplicateUsernameReturns400(t *testing.T) {
	router := newTestRouter(t)

	rec := register(t, router, "mira@example.com", "secret123", "mira")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = register(t, router, "other@example.com", "secret123", "mira")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_USERNAME", env.Error.Code)

	// The rolled-back email is claimable again.
	rec = register(t, router, "other@example.com", "secret123", "lena")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegister_ValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(router, "/api/v1/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "short",
		"username": "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "Email")
	assert.Contains(t, env.Error.Fields, "Password")
	assert.Contains(t, env.Error.Fields, "Username")
}

func TestRegister_MalformedJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestRegister_WrongContentTypeReturns415(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("email=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

// ============================================================================
// Login
// ============================================================================

func TestLogin_WrongPasswordAndUnknownEmailAreIndistinguishable(t *testing.T) {
	router := newTestRouter(t)

	rec := register(t, router, "mira@example.com", "secret123", "mira")
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPass := login(t, router, "mira@example.com", "wrong-password")
	unknown := login(t, router, "nobody@example.com", "secret123")

	require.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())

	env := decodeEnvelope(t, wrongPass)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

// ============================================================================
// Refresh and logout edge cases
// ============================================================================

func TestRefresh_MissingCookieReturns401(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(router, "/api/v1/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
}

func TestRefresh_FabricatedCookieReturns401(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(router, "/api/v1/auth/refresh", nil, &http.Cookie{
		Name:  testCookieName,
		Value: "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_WithoutCookieStillSucceeds(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(router, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var success bool
	require.NoError(t, json.Unmarshal(env.Data["success"], &success))
	assert.True(t, success)
}

func TestLogout_IsIdempotent(t *testing.T) {
	router := newTestRouter(t)

	rec := register(t, router, "mira@example.com", "secret123", "mira")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = login(t, router, "mira@example.com", "secret123")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := refreshCookie(t, rec)

	first := postJSON(router, "/api/v1/auth/logout", nil, cookie)
	second := postJSON(router, "/api/v1/auth/logout", nil, cookie)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
}

// ============================================================================
// Auth guard
// ============================================================================

func TestMe_RequiresBearerToken(t *testing.T) {
	router := newTestRouter(t)

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token abc123",
		"lowercase":      "bearer abc123",
		"garbage token":  "Bearer not-a-jwt",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			env := decodeEnvelope(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
		})
	}
}

func TestMe_RejectsTokenSignedWithOtherSecret(t *testing.T) {
	router := newTestRouter(t)

	other := auth.NewTokenManager("some-other-secret", 15*time.Minute)
	token, err := other.GenerateAccessToken("user-123", "mira@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
