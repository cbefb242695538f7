package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/olivethotokunefor/Mentora/internal/domain"
	apperrors "github.com/olivethotokunefor/Mentora/pkg/errors"
)

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile. The username column is unique; a violation
// maps to ErrDuplicateUsername.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, user_id, email, username, avatar_url, points, bio, skills_can_help, skills_need_help, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Email,
		p.Username,
		p.AvatarURL,
		p.Points,
		p.Bio,
		p.SkillsCanHelp,
		p.SkillsNeedHelp,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.DuplicateUsername()
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	return nil
}

// GetByUserID retrieves the profile belonging to the given user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT id, user_id, email, username, avatar_url, points, bio, skills_can_help, skills_need_help, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`

	var p domain.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Email,
		&p.Username,
		&p.AvatarURL,
		&p.Points,
		&p.Bio,
		&p.SkillsCanHelp,
		&p.SkillsNeedHelp,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	return &p, nil
}

// Update modifies an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE profiles
		SET username = $1, avatar_url = $2, bio = $3, skills_can_help = $4, skills_need_help = $5, updated_at = $6
		WHERE user_id = $7`

	ct, err := r.db.Exec(ctx, query,
		p.Username,
		p.AvatarURL,
		p.Bio,
		p.SkillsCanHelp,
		p.SkillsNeedHelp,
		p.UpdatedAt,
		p.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.DuplicateUsername()
		}
		return fmt.Errorf("update profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", p.UserID)
	}

	return nil
}
