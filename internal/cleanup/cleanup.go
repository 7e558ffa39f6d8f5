// Package cleanup implements the janitor component: it removes
// restricted and long-inactive users from the Redis ranking boards.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/ranking"
)

// inactivityWindow is how long a user may stay away before dropping
// off the boards. Their stats rows stay; a later submission re-ranks
// them.
const inactivityWindow = 60 * 24 * time.Hour

// Janitor runs the board cleanup.
type Janitor struct {
	users *db.UserRepository
	rank  *ranking.Client
}

// New creates a Janitor over the shared infrastructure.
func New(database *db.DB, rank *ranking.Client) *Janitor {
	return &Janitor{users: db.NewUserRepository(database), rank: rank}
}

// Run performs one full cleanup pass and returns how many users were
// removed from the boards.
func (j *Janitor) Run(ctx context.Context) (int, error) {
	removed := 0

	restricted, err := j.users.GetRestricted(ctx)
	if err != nil {
		return removed, fmt.Errorf("loading restricted users: %w", err)
	}
	for i := range restricted {
		j.rank.RemoveAllRankings(ctx, &restricted[i])
		removed++
	}
	slog.Info("cleared restricted users from rankings", "count", len(restricted))

	inactive, err := j.users.GetInactive(ctx, time.Now().Add(-inactivityWindow))
	if err != nil {
		return removed, fmt.Errorf("loading inactive users: %w", err)
	}
	for i := range inactive {
		j.rank.RemoveAllRankings(ctx, &inactive[i])
		removed++
	}
	slog.Info("cleared inactive users from rankings", "count", len(inactive))

	return removed, nil
}
