package db

import (
	"context"
	"fmt"
)

// RelationshipRepository manages directed friendship edges.
type RelationshipRepository struct {
	db *DB
}

// NewRelationshipRepository creates a RelationshipRepository over the shared pool.
func NewRelationshipRepository(db *DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// FriendIDs returns the ids the user follows.
func (r *RelationshipRepository) FriendIDs(ctx context.Context, userID int32) ([]int32, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT friend_id FROM relationships WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying friends of %d: %w", userID, err)
	}
	defer rows.Close()

	var out []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning friend id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Add inserts the edge, ignoring duplicates.
func (r *RelationshipRepository) Add(ctx context.Context, userID, friendID int32) error {
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO relationships (user_id, friend_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, userID, friendID)
	if err != nil {
		return fmt.Errorf("adding friend %d for %d: %w", friendID, userID, err)
	}
	return nil
}

// Remove deletes the edge.
func (r *RelationshipRepository) Remove(ctx context.Context, userID, friendID int32) error {
	_, err := r.db.pool.Exec(ctx,
		`DELETE FROM relationships WHERE user_id = $1 AND friend_id = $2`, userID, friendID)
	if err != nil {
		return fmt.Errorf("removing friend %d for %d: %w", friendID, userID, err)
	}
	return nil
}
