package db

import (
	"context"
	"fmt"
)

// ChannelRow is a persisted chat channel definition.
type ChannelRow struct {
	ID          int32
	Name        string
	ChannelType string
	Description string
}

// ChannelRepository loads the static channel list.
type ChannelRepository struct {
	db *DB
}

// NewChannelRepository creates a ChannelRepository over the shared pool.
func NewChannelRepository(db *DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// List returns all persisted channels.
func (r *ChannelRepository) List(ctx context.Context) ([]ChannelRow, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT id, name, channel_type, description FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	var out []ChannelRow
	for rows.Next() {
		var c ChannelRow
		if err := rows.Scan(&c.ID, &c.Name, &c.ChannelType, &c.Description); err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
