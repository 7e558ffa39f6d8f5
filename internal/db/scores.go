package db

import (
	"context"
	"fmt"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

const scoreColumns = `s.id, s.user_id, s.beatmap_checksum, s.play_mode, s.total_score,
	 s.max_combo, s.count_300, s.count_100, s.count_50, s.count_geki, s.count_katu,
	 s.count_miss, s.mods, s.is_perfect, s.status, s.submitted_at, s.performance`

// ScoreRepository manages score rows and leaderboard queries.
type ScoreRepository struct {
	db *DB
}

// NewScoreRepository creates a ScoreRepository over the shared pool.
func NewScoreRepository(db *DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

func scanScore(row interface{ Scan(...any) error }, s *model.Score) error {
	var mode int16
	var mods int32
	var status int32
	err := row.Scan(&s.ID, &s.UserID, &s.BeatmapChecksum, &mode, &s.TotalScore,
		&s.MaxCombo, &s.Count300, &s.Count100, &s.Count50, &s.CountGeki, &s.CountKatu,
		&s.CountMiss, &mods, &s.IsPerfect, &status, &s.SubmittedAt, &s.Performance)
	if err != nil {
		return err
	}
	s.PlayMode = osu.Mode(mode)
	s.Mods = osu.Mods(mods)
	s.Status = osu.ScoreStatus(status)
	return nil
}

// Insert stores a score row and returns its id. Runs on the given
// executor so the submission pipeline can use a transaction.
func (r *ScoreRepository) Insert(ctx context.Context, e Executor, s *model.Score) (int32, error) {
	var id int32
	err := e.QueryRow(ctx,
		`INSERT INTO scores (user_id, beatmap_checksum, play_mode, total_score, max_combo,
		   count_300, count_100, count_50, count_geki, count_katu, count_miss,
		   mods, is_perfect, status, submitted_at, performance)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		 RETURNING id`,
		s.UserID, s.BeatmapChecksum, int16(s.PlayMode), s.TotalScore, s.MaxCombo,
		s.Count300, s.Count100, s.Count50, s.CountGeki, s.CountKatu, s.CountMiss,
		int32(s.Mods), s.IsPerfect, int32(s.Status), s.SubmittedAt, s.Performance,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting score for user %d: %w", s.UserID, err)
	}
	return id, nil
}

// Demote moves a previous best back to its non-best status.
func (r *ScoreRepository) Demote(ctx context.Context, e Executor, scoreID int32, to osu.ScoreStatus) error {
	_, err := e.Exec(ctx,
		`UPDATE scores SET status = $1 WHERE id = $2`, int32(to), scoreID)
	if err != nil {
		return fmt.Errorf("demoting score %d: %w", scoreID, err)
	}
	return nil
}

// effectiveMode resolves the stored play mode for a query: the Relax
// mod bit reroutes standard to mode 4.
func effectiveMode(mode osu.Mode, mods osu.Mods) int16 {
	return int16(osu.EffectiveMode(mode, mods))
}

// bestSortColumn is the board ordering for a (mode, mods) slice:
// relax boards rank by performance, everything else by total score.
func bestSortColumn(mode osu.Mode, mods osu.Mods) string {
	if osu.EffectiveMode(mode, mods) == osu.ModeRelax {
		return "s.performance"
	}
	return "s.total_score"
}

// UserBest returns the user's best score on the beatmap within the
// (mode, relax partition, status) slice, with its leaderboard rank.
// Restricted holders are hidden, matching the boards. Returns
// nil, nil when the user has no best there.
func (r *ScoreRepository) UserBest(ctx context.Context, checksum string, userID int32, mode osu.Mode, mods osu.Mods, status osu.ScoreStatus) (*model.UserScore, error) {
	return r.userBest(ctx, checksum, userID, mode, mods, status, false)
}

// PriorBest is UserBest without the restriction filter. The
// submission pipeline must see a restricted user's existing best so
// it can demote it instead of inserting a duplicate; only the display
// queries hide restricted rows.
func (r *ScoreRepository) PriorBest(ctx context.Context, checksum string, userID int32, mode osu.Mode, mods osu.Mods, status osu.ScoreStatus) (*model.UserScore, error) {
	return r.userBest(ctx, checksum, userID, mode, mods, status, true)
}

func (r *ScoreRepository) userBest(ctx context.Context, checksum string, userID int32, mode osu.Mode, mods osu.Mods, status osu.ScoreStatus, includeRestricted bool) (*model.UserScore, error) {
	restriction := "AND u.permissions & 8 = 0"
	if includeRestricted {
		restriction = ""
	}
	sortCol := bestSortColumn(mode, mods)
	rows, err := r.db.pool.Query(ctx,
		`WITH ranked AS (
		   SELECT `+scoreColumns+`, `+prefixedUserColumns("u")+`,
		     row_number() OVER (ORDER BY `+sortCol+` DESC, s.submitted_at ASC) AS rank
		   FROM scores s
		   JOIN users u ON s.user_id = u.id
		   WHERE s.beatmap_checksum = $1
		     AND s.status = $2
		     AND s.play_mode = $3
		     `+restriction+`
		 )
		 SELECT * FROM ranked WHERE user_id = $4 LIMIT 1`,
		checksum, int32(status), effectiveMode(mode, mods), userID)
	if err != nil {
		return nil, fmt.Errorf("querying user best on %q: %w", checksum, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var us model.UserScore
	if err := scanUserScore(rows, &us); err != nil {
		return nil, fmt.Errorf("scanning user best: %w", err)
	}
	return &us, nil
}

// Leaderboard returns the dense-ranked rows of a beatmap within the
// (mode, relax partition, status) slice. Relax sorts by performance,
// everything else by total score; ties break on submission time.
func (r *ScoreRepository) Leaderboard(ctx context.Context, checksum string, mode osu.Mode, mods osu.Mods, status osu.ScoreStatus, limit int) ([]model.UserScore, error) {
	sortCol := bestSortColumn(mode, mods)
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+scoreColumns+`, `+prefixedUserColumns("u")+`,
		   row_number() OVER (ORDER BY `+sortCol+` DESC, s.submitted_at ASC) AS rank
		 FROM scores s
		 JOIN users u ON s.user_id = u.id
		 WHERE s.beatmap_checksum = $1
		   AND s.status = $2
		   AND s.play_mode = $3
		   AND u.permissions & 8 = 0
		 ORDER BY `+sortCol+` DESC, s.submitted_at ASC
		 LIMIT $4`,
		checksum, int32(status), effectiveMode(mode, mods), limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard for %q: %w", checksum, err)
	}
	defer rows.Close()

	var out []model.UserScore
	for rows.Next() {
		var us model.UserScore
		if err := scanUserScore(rows, &us); err != nil {
			return nil, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		out = append(out, us)
	}
	return out, rows.Err()
}

// BestScores returns the user's Best scores for a mode ordered by
// performance descending, deduplicated by checksum keeping the
// highest-performance entry. This is the weighted-PP input set. Runs
// on the given executor so it sees rows inserted in an open
// transaction.
func (r *ScoreRepository) BestScores(ctx context.Context, e Executor, userID int32, mode osu.Mode, limit int) ([]model.Score, error) {
	rows, err := e.Query(ctx,
		`SELECT DISTINCT ON (s.beatmap_checksum) `+scoreColumns+`
		 FROM scores s
		 WHERE s.user_id = $1 AND s.status = $2 AND s.play_mode = $3
		 ORDER BY s.beatmap_checksum, s.performance DESC`,
		userID, int32(osu.ScoreBest), int16(mode))
	if err != nil {
		return nil, fmt.Errorf("querying best scores for %d: %w", userID, err)
	}
	defer rows.Close()

	var out []model.Score
	for rows.Next() {
		var s model.Score
		if err := scanScore(rows, &s); err != nil {
			return nil, fmt.Errorf("scanning best score: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DISTINCT ON forces checksum ordering; re-sort by performance.
	sortByPerformance(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByPerformance(scores []model.Score) {
	for i := 1; i < len(scores); i++ {
		for j := i; j > 0 && scores[j].Performance > scores[j-1].Performance; j-- {
			scores[j], scores[j-1] = scores[j-1], scores[j]
		}
	}
}

// WithBeatmapByID fetches one score joined with its author and
// beatmap, used by the recalculation terminal.
func (r *ScoreRepository) WithBeatmapByID(ctx context.Context, id int32) (*model.UserScoreWithBeatmap, error) {
	row := r.db.pool.QueryRow(ctx,
		`SELECT `+scoreColumns+`, `+prefixedUserColumns("u")+`, `+beatmapColumns("b")+`
		 FROM scores s
		 JOIN users u ON s.user_id = u.id
		 JOIN beatmaps b ON s.beatmap_checksum = b.checksum
		 WHERE s.id = $1`, id)

	var out model.UserScoreWithBeatmap
	if err := scanScoreUserBeatmap(row, &out); err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying score %d: %w", id, err)
	}
	return &out, nil
}

// UnrankBestOnBeatmaps flips Best scores on the given checksums back
// to Unranked, forcing resubmission ranking after a status change.
func (r *ScoreRepository) UnrankBestOnBeatmaps(ctx context.Context, checksums []string) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE scores SET status = $1 WHERE beatmap_checksum = ANY($2) AND status = $3`,
		int32(osu.ScoreUnranked), checksums, int32(osu.ScoreBest))
	if err != nil {
		return fmt.Errorf("unranking best scores: %w", err)
	}
	return nil
}

// UpdatePerformance stores a recalculated performance value.
func (r *ScoreRepository) UpdatePerformance(ctx context.Context, scoreID int32, performance float64) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE scores SET performance = $1 WHERE id = $2`, performance, scoreID)
	if err != nil {
		return fmt.Errorf("updating performance of score %d: %w", scoreID, err)
	}
	return nil
}

func scanUserScore(row interface{ Scan(...any) error }, us *model.UserScore) error {
	var mode int16
	var mods, status int32
	err := row.Scan(
		&us.Score.ID, &us.Score.UserID, &us.Score.BeatmapChecksum, &mode, &us.Score.TotalScore,
		&us.Score.MaxCombo, &us.Score.Count300, &us.Score.Count100, &us.Score.Count50,
		&us.Score.CountGeki, &us.Score.CountKatu, &us.Score.CountMiss, &mods,
		&us.Score.IsPerfect, &status, &us.Score.SubmittedAt, &us.Score.Performance,
		&us.User.ID, &us.User.Username, &us.User.UsernameSafe, &us.User.Password,
		&us.User.Country, &us.User.Permissions, &us.User.Flags, &us.User.CreatedAt,
		&us.User.LastSeen, &us.User.DonorUntil, &us.User.BackgroundURL,
		&us.User.UsernameHistory, &us.User.UserpageContent, &us.User.Coins,
		&us.Rank,
	)
	if err != nil {
		return err
	}
	us.Score.PlayMode = osu.Mode(mode)
	us.Score.Mods = osu.Mods(mods)
	us.Score.Status = osu.ScoreStatus(status)
	return nil
}

func scanScoreUserBeatmap(row interface{ Scan(...any) error }, out *model.UserScoreWithBeatmap) error {
	var mode, bmMode int16
	var mods, status, bmStatus int32
	err := row.Scan(
		&out.Score.ID, &out.Score.UserID, &out.Score.BeatmapChecksum, &mode, &out.Score.TotalScore,
		&out.Score.MaxCombo, &out.Score.Count300, &out.Score.Count100, &out.Score.Count50,
		&out.Score.CountGeki, &out.Score.CountKatu, &out.Score.CountMiss, &mods,
		&out.Score.IsPerfect, &status, &out.Score.SubmittedAt, &out.Score.Performance,
		&out.User.ID, &out.User.Username, &out.User.UsernameSafe, &out.User.Password,
		&out.User.Country, &out.User.Permissions, &out.User.Flags, &out.User.CreatedAt,
		&out.User.LastSeen, &out.User.DonorUntil, &out.User.BackgroundURL,
		&out.User.UsernameHistory, &out.User.UserpageContent, &out.User.Coins,
		&out.Beatmap.BeatmapID, &out.Beatmap.ParentID, &out.Beatmap.Checksum,
		&out.Beatmap.Artist, &out.Beatmap.Title, &out.Beatmap.Version, &out.Beatmap.Creator,
		&out.Beatmap.AR, &out.Beatmap.OD, &out.Beatmap.CS, &out.Beatmap.HP,
		&out.Beatmap.Stars, &out.Beatmap.BPM, &out.Beatmap.MaxCombo,
		&out.Beatmap.HitLength, &out.Beatmap.TotalLength, &bmMode, &bmStatus,
		&out.Beatmap.Frozen, &out.Beatmap.UpdatedAt,
	)
	if err != nil {
		return err
	}
	out.Score.PlayMode = osu.Mode(mode)
	out.Score.Mods = osu.Mods(mods)
	out.Score.Status = osu.ScoreStatus(status)
	out.Beatmap.GameMode = osu.Mode(bmMode)
	out.Beatmap.Status = osu.BeatmapStatus(bmStatus)
	return nil
}
