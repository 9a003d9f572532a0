package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"presence-gateway/internal/models"
)

type UserRepository interface {
	// GetProfile returns sql.ErrNoRows for unknown or deleted users.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, `
SELECT user_id, username, COALESCE(display_name, '') AS display_name,
       COALESCE(avatar_url, '') AS avatar_url, COALESCE(goal33, '') AS goal33
FROM users
WHERE user_id=$1
`, userID)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
