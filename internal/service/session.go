package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olivethotokunefor/Mentora/internal/auth"
	"github.com/olivethotokunefor/Mentora/internal/domain"
	"github.com/olivethotokunefor/Mentora/internal/event"
	"github.com/olivethotokunefor/Mentora/internal/repository"
	apperrors "github.com/olivethotokunefor/Mentora/pkg/errors"
)

// refreshTokenBytes is the entropy of a raw refresh token (256 bits).
const refreshTokenBytes = 32

// SessionService owns the session state machine: registration, login,
// refresh rotation, logout, and identity resolution. It holds no in-process
// mutable state; the store is the sole point of coordination.
type SessionService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	refreshRepo repository.RefreshTokenRepository
	tokens      *auth.TokenManager
	hasher      *auth.Hasher
	refreshTTL  time.Duration
	producer    *event.Producer
	logger      *slog.Logger
}

// NewSessionService creates a new session service.
func NewSessionService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	refreshRepo repository.RefreshTokenRepository,
	tokens *auth.TokenManager,
	hasher *auth.Hasher,
	refreshTTL time.Duration,
	producer *event.Producer,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		refreshRepo: refreshRepo,
		tokens:      tokens,
		hasher:      hasher,
		refreshTTL:  refreshTTL,
		producer:    producer,
		logger:      logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the parameters for updating a profile. Nil fields
// are left unchanged.
type UpdateProfileInput struct {
	Username       *string
	AvatarURL      *string
	Bio            *string
	SkillsCanHelp  []string
	SkillsNeedHelp []string
}

// --- Operations ---

// Register creates a new user account with a starting profile. The email
// pre-check is advisory; the unique index on users.email is authoritative,
// and a duplicate-key failure surfaces as DuplicateEmail even when the
// pre-check passed. If profile creation fails after the user row is written
// the user row is deleted again so the two never diverge.
func (s *SessionService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if input.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, apperrors.InvalidInput("password is required")
	}
	if input.Username == "" {
		return nil, apperrors.InvalidInput("username is required")
	}

	if _, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.DuplicateEmail()
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Email:          user.Email,
		Username:       input.Username,
		AvatarURL:      "",
		Points:         domain.StartingPoints,
		Bio:            "",
		SkillsCanHelp:  []string{},
		SkillsNeedHelp: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		// Compensating rollback: without a profile the account is unusable,
		// and leaving the user row would make the email unclaimable.
		if delErr := s.userRepo.Delete(ctx, user.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back user after profile creation failure",
				slog.String("user_id", user.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user, profile.Username); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Login authenticates a user with email and password. Unknown email and
// wrong password return the same InvalidCredentials error so the response
// cannot distinguish them. On success it mints an access token and issues a
// fresh refresh token record.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidCredentials()
		}
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, nil, apperrors.InvalidCredentials()
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return user, pair, nil
}

// Refresh validates the presented refresh token, atomically rotates it, and
// mints a new access token. Every failure mode (missing, unknown, revoked,
// expired, lost rotation race) collapses to one Unauthenticated error at the
// boundary; the specific reason is logged, and reuse of an already-revoked
// token is flagged as a possible theft signal.
func (s *SessionService) Refresh(ctx context.Context, rawToken string) (*domain.TokenPair, error) {
	if rawToken == "" {
		return nil, apperrors.Unauthenticated()
	}

	oldHash := hashToken(rawToken)
	record, err := s.refreshRepo.GetByHash(ctx, oldHash)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "refresh rejected: token not found")
			return nil, apperrors.Unauthenticated()
		}
		return nil, fmt.Errorf("look up refresh token: %w", err)
	}

	if record.Revoked() {
		s.logger.WarnContext(ctx, "refresh rejected: revoked token reuse, possible token theft",
			slog.String("user_id", record.UserID),
			slog.String("token_id", record.ID),
		)
		return nil, apperrors.Unauthenticated()
	}

	if record.Expired(time.Now().UTC()) {
		s.logger.InfoContext(ctx, "refresh rejected: token expired",
			slog.String("user_id", record.UserID),
		)
		return nil, apperrors.Unauthenticated()
	}

	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.InfoContext(ctx, "refresh rejected: user no longer exists",
				slog.String("user_id", record.UserID),
			)
			return nil, apperrors.Unauthenticated()
		}
		return nil, fmt.Errorf("look up user for refresh: %w", err)
	}

	newRaw, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.refreshTTL)
	if err := s.refreshRepo.Rotate(ctx, oldHash, user.ID, hashToken(newRaw), expiresAt); err != nil {
		if errors.Is(err, repository.ErrTokenConsumed) {
			s.logger.WarnContext(ctx, "refresh rejected: lost rotation race or replay",
				slog.String("user_id", user.ID),
				slog.String("token_id", record.ID),
			)
			return nil, apperrors.Unauthenticated()
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.InfoContext(ctx, "refresh token rotated",
		slog.String("user_id", user.ID),
	)

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRaw,
	}, nil
}

// Logout revokes the presented refresh token. Idempotent: an empty token or
// one that matches no record is a no-op.
func (s *SessionService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}

	if err := s.refreshRepo.Revoke(ctx, hashToken(rawToken)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "refresh token revoked on logout")
	return nil
}

// Me resolves the identity and profile for a verified user ID. NotFound
// covers the tombstone case where the user vanished after the access token
// was minted.
func (s *SessionService) Me(ctx context.Context, userID string) (*domain.User, *domain.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("user", userID)
		}
		return nil, nil, fmt.Errorf("look up user: %w", err)
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("profile", userID)
		}
		return nil, nil, fmt.Errorf("look up profile: %w", err)
	}

	return user, profile, nil
}

// GetProfile retrieves the profile for the given user.
func (s *SessionService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies the non-nil fields of input to the user's profile.
func (s *SessionService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil {
		if *input.Username == "" {
			return nil, apperrors.InvalidInput("username must not be empty")
		}
		profile.Username = *input.Username
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = *input.AvatarURL
	}
	if input.Bio != nil {
		profile.Bio = *input.Bio
	}
	if input.SkillsCanHelp != nil {
		profile.SkillsCanHelp = input.SkillsCanHelp
	}
	if input.SkillsNeedHelp != nil {
		profile.SkillsNeedHelp = input.SkillsNeedHelp
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	// Publish update event (non-blocking on failure).
	if err := s.producer.PublishProfileUpdated(ctx, profile); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish profile.updated event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("user_id", userID),
	)

	return profile, nil
}

// --- Helpers ---

// issueTokenPair mints an access token and persists a fresh refresh token
// record, returning the raw refresh value. The raw value is never stored.
func (s *SessionService) issueTokenPair(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	rawRefresh, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(s.refreshTTL)
	if err := s.refreshRepo.Create(ctx, user.ID, hashToken(rawRefresh), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
	}, nil
}

// newRefreshToken generates an opaque random token string.
func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken returns the SHA-256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
