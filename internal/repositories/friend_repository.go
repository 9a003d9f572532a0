package repositories

import (
	"context"
	"errors"
	"log"

	"github.com/jmoiron/sqlx"

	"presence-gateway/internal/rabbitmq"
)

var ErrSelfFriendship = errors.New("cannot befriend yourself")

type FriendRepository interface {
	AddFriendship(ctx context.Context, userID, friendID string) error
	ListFriends(ctx context.Context, userID string) ([]string, error)
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

type friendRepository struct {
	db        *sqlx.DB
	publisher rabbitmq.Publisher
}

func NewFriendRepository(db *sqlx.DB, publisher rabbitmq.Publisher) FriendRepository {
	return &friendRepository{db: db, publisher: publisher}
}

// AddFriendship records the edge in both directions. The unique
// constraint makes repeated syncs of the same pair a no-op, so callers
// need no locking; the operation is commutative and repeatable.
func (r *friendRepository) AddFriendship(ctx context.Context, userID, friendID string) error {
	if userID == friendID {
		return ErrSelfFriendship
	}

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.insertEdge(ctx, tx, userID, friendID); err != nil {
			return err
		}
		return r.insertEdge(ctx, tx, friendID, userID)
	})
	if err != nil {
		return err
	}

	r.logPublish(ctx, "friendship.synced", map[string]any{
		"user_id":   userID,
		"friend_id": friendID,
	})
	return nil
}

func (r *friendRepository) ListFriends(ctx context.Context, userID string) ([]string, error) {
	var friends []string
	err := r.db.SelectContext(ctx, &friends, `
SELECT friend_id
FROM friendships
WHERE user_id=$1
ORDER BY friend_id
`, userID)
	return friends, err
}

func (r *friendRepository) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
SELECT EXISTS(
SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2
)
`, userID, otherID)
	return exists, err
}

func (r *friendRepository) insertEdge(ctx context.Context, tx *sqlx.Tx, userID, friendID string) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO friendships (user_id, friend_id) VALUES ($1, $2)
ON CONFLICT (user_id, friend_id) DO NOTHING
`, userID, friendID)
	return err
}

func (r *friendRepository) withTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *friendRepository) logPublish(ctx context.Context, eventType string, payload any) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, eventType, payload); err != nil {
		log.Printf("warning: failed to publish %s: %v", eventType, err)
	}
}
