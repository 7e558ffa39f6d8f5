package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/miosrv/mio/internal/model"
)

// PunishmentRepository stores moderation actions.
type PunishmentRepository struct {
	db *DB
}

// NewPunishmentRepository creates a PunishmentRepository over the shared pool.
func NewPunishmentRepository(db *DB) *PunishmentRepository {
	return &PunishmentRepository{db: db}
}

// Insert stores a punishment, allocating its UUID and date.
func (r *PunishmentRepository) Insert(ctx context.Context, p *model.Punishment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Date.IsZero() {
		p.Date = time.Now()
	}
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO punishments (id, date, applied_by, applied_to, type, level, expires, expires_at, note)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Date, p.AppliedBy, p.AppliedTo, p.PunishmentType, p.Level,
		p.Expires, p.ExpiresAt, p.Note)
	if err != nil {
		return fmt.Errorf("inserting punishment for %d: %w", p.AppliedTo, err)
	}
	return nil
}

// LiftAll expires every punishment applied to the user, used when a
// restriction is lifted.
func (r *PunishmentRepository) LiftAll(ctx context.Context, userID int32) error {
	epoch := time.Unix(0, 0)
	_, err := r.db.pool.Exec(ctx,
		`UPDATE punishments SET expires = TRUE, expires_at = $1 WHERE applied_to = $2`,
		epoch, userID)
	if err != nil {
		return fmt.Errorf("lifting punishments for %d: %w", userID, err)
	}
	return nil
}
