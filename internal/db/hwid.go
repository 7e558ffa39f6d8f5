package db

import (
	"context"
	"fmt"

	"github.com/miosrv/mio/internal/model"
)

// HWIDRepository stores machine fingerprints and finds collisions.
type HWIDRepository struct {
	db *DB
}

// NewHWIDRepository creates an HWIDRepository over the shared pool.
func NewHWIDRepository(db *DB) *HWIDRepository {
	return &HWIDRepository{db: db}
}

// Upsert stores the user's last-known fingerprint.
func (r *HWIDRepository) Upsert(ctx context.Context, rec *model.HWIDRecord) error {
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO hwid_records (user_id, plain, mac, uid, disk)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id) DO UPDATE SET plain = $2, mac = $3, uid = $4, disk = $5`,
		rec.UserID, rec.Plain, rec.MAC, rec.UID, rec.Disk)
	if err != nil {
		return fmt.Errorf("upserting hwid for %d: %w", rec.UserID, err)
	}
	return nil
}

// CollidingUsers returns the distinct ids of other users sharing any
// of the fingerprint components.
func (r *HWIDRepository) CollidingUsers(ctx context.Context, rec *model.HWIDRecord) ([]int32, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT DISTINCT user_id FROM hwid_records
		 WHERE user_id != $1 AND (mac = $2 OR uid = $3 OR disk = $4 OR plain = $5)`,
		rec.UserID, rec.MAC, rec.UID, rec.Disk, rec.Plain)
	if err != nil {
		return nil, fmt.Errorf("querying hwid collisions for %d: %w", rec.UserID, err)
	}
	defer rows.Close()

	var out []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning colliding user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
