package db

import (
	"context"
	"fmt"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

// StatsRepository manages the per-(user, mode) aggregate rows.
type StatsRepository struct {
	db *DB
}

// NewStatsRepository creates a StatsRepository over the shared pool.
func NewStatsRepository(db *DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Get fetches the aggregate row, inserting a zero row when absent so
// every (user, mode) pair always has exactly one.
func (r *StatsRepository) Get(ctx context.Context, userID int32, mode osu.Mode) (*model.UserStats, error) {
	s := model.UserStats{UserID: userID, Mode: mode}
	err := r.db.pool.QueryRow(ctx,
		`INSERT INTO user_stats (user_id, mode) VALUES ($1, $2)
		 ON CONFLICT (user_id, mode) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING ranked_score, total_score, avg_accuracy, playcount, performance, max_combo`,
		userID, int16(mode),
	).Scan(&s.RankedScore, &s.TotalScore, &s.AvgAccuracy, &s.Playcount, &s.Performance, &s.MaxCombo)
	if err != nil {
		return nil, fmt.Errorf("querying stats for %d mode %d: %w", userID, mode, err)
	}
	return &s, nil
}

// AddPlay applies the per-submission totals: total score, playcount
// and, when exceeded, max combo.
func (r *StatsRepository) AddPlay(ctx context.Context, e Executor, userID int32, mode osu.Mode, totalScore int64, maxCombo int32) error {
	_, err := e.Exec(ctx,
		`INSERT INTO user_stats (user_id, mode, total_score, playcount, max_combo)
		 VALUES ($1, $2, $3, 1, $4)
		 ON CONFLICT (user_id, mode) DO UPDATE SET
		   total_score = user_stats.total_score + $3,
		   playcount   = user_stats.playcount + 1,
		   max_combo   = GREATEST(user_stats.max_combo, $4)`,
		userID, int16(mode), totalScore, maxCombo)
	if err != nil {
		return fmt.Errorf("adding play for %d mode %d: %w", userID, mode, err)
	}
	return nil
}

// SetAggregates stores the recomputed weighted performance, average
// accuracy and ranked score for the mode. Runs on the given executor
// so the submission pipeline can keep it inside its transaction.
func (r *StatsRepository) SetAggregates(ctx context.Context, e Executor, userID int32, mode osu.Mode, performance, avgAccuracy float64, rankedScore int64) error {
	_, err := e.Exec(ctx,
		`INSERT INTO user_stats (user_id, mode, performance, avg_accuracy, ranked_score)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, mode) DO UPDATE SET
		   performance  = $3,
		   avg_accuracy = $4,
		   ranked_score = $5`,
		userID, int16(mode), performance, avgAccuracy, rankedScore)
	if err != nil {
		return fmt.Errorf("setting aggregates for %d mode %d: %w", userID, mode, err)
	}
	return nil
}
