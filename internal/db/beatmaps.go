package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

// BeatmapRepository manages beatmap metadata rows.
type BeatmapRepository struct {
	db *DB
}

// NewBeatmapRepository creates a BeatmapRepository over the shared pool.
func NewBeatmapRepository(db *DB) *BeatmapRepository {
	return &BeatmapRepository{db: db}
}

func scanBeatmap(row interface{ Scan(...any) error }) (*model.Beatmap, error) {
	var b model.Beatmap
	var mode int16
	var status int32
	err := row.Scan(&b.BeatmapID, &b.ParentID, &b.Checksum, &b.Artist, &b.Title,
		&b.Version, &b.Creator, &b.AR, &b.OD, &b.CS, &b.HP, &b.Stars, &b.BPM,
		&b.MaxCombo, &b.HitLength, &b.TotalLength, &mode, &status, &b.Frozen, &b.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, err
	}
	b.GameMode = osu.Mode(mode)
	b.Status = osu.BeatmapStatus(status)
	return &b, nil
}

// ByChecksum retrieves a beatmap by md5. Returns nil, nil when absent.
func (r *BeatmapRepository) ByChecksum(ctx context.Context, checksum string) (*model.Beatmap, error) {
	b, err := scanBeatmap(r.db.pool.QueryRow(ctx,
		`SELECT `+beatmapColumns("b")+` FROM beatmaps b WHERE b.checksum = $1`, checksum))
	if err != nil {
		return nil, fmt.Errorf("querying beatmap %q: %w", checksum, err)
	}
	return b, nil
}

// ByID retrieves a beatmap by beatmap id.
func (r *BeatmapRepository) ByID(ctx context.Context, id int32) (*model.Beatmap, error) {
	b, err := scanBeatmap(r.db.pool.QueryRow(ctx,
		`SELECT `+beatmapColumns("b")+` FROM beatmaps b WHERE b.beatmap_id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("querying beatmap %d: %w", id, err)
	}
	return b, nil
}

// ByTerm resolves a beatmap by numeric id or checksum.
func (r *BeatmapRepository) ByTerm(ctx context.Context, term string) (*model.Beatmap, error) {
	if id, err := strconv.ParseInt(term, 10, 32); err == nil {
		return r.ByID(ctx, int32(id))
	}
	return r.ByChecksum(ctx, term)
}

// BySet retrieves all difficulties of a beatmap set.
func (r *BeatmapRepository) BySet(ctx context.Context, parentID int32) ([]model.Beatmap, error) {
	rows, err := r.db.pool.Query(ctx,
		`SELECT `+beatmapColumns("b")+` FROM beatmaps b WHERE b.parent_id = $1`, parentID)
	if err != nil {
		return nil, fmt.Errorf("querying beatmap set %d: %w", parentID, err)
	}
	defer rows.Close()

	var out []model.Beatmap
	for rows.Next() {
		b, err := scanBeatmap(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning beatmap: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Upsert stores a fetched beatmap. A frozen row keeps its status.
func (r *BeatmapRepository) Upsert(ctx context.Context, b *model.Beatmap) error {
	_, err := r.db.pool.Exec(ctx,
		`INSERT INTO beatmaps (beatmap_id, parent_id, checksum, artist, title, version,
		   creator, ar, od, cs, hp, stars, bpm, max_combo, hit_length, total_length,
		   game_mode, status, frozen, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		 ON CONFLICT (beatmap_id) DO UPDATE SET
		   parent_id = $2, checksum = $3, artist = $4, title = $5, version = $6,
		   creator = $7, ar = $8, od = $9, cs = $10, hp = $11, stars = $12, bpm = $13,
		   max_combo = $14, hit_length = $15, total_length = $16, game_mode = $17,
		   status = CASE WHEN beatmaps.frozen THEN beatmaps.status ELSE $18 END,
		   updated_at = $20`,
		b.BeatmapID, b.ParentID, b.Checksum, b.Artist, b.Title, b.Version,
		b.Creator, b.AR, b.OD, b.CS, b.HP, b.Stars, b.BPM, b.MaxCombo,
		b.HitLength, b.TotalLength, int16(b.GameMode), int32(b.Status), b.Frozen,
		time.Now())
	if err != nil {
		return fmt.Errorf("upserting beatmap %d: %w", b.BeatmapID, err)
	}
	return nil
}

// SetStatusByChecksum updates one difficulty's status.
func (r *BeatmapRepository) SetStatusByChecksum(ctx context.Context, checksum string, status osu.BeatmapStatus) error {
	_, err := r.db.pool.Exec(ctx,
		`UPDATE beatmaps SET status = $1, frozen = TRUE, updated_at = $2 WHERE checksum = $3`,
		int32(status), time.Now(), checksum)
	if err != nil {
		return fmt.Errorf("updating status of %q: %w", checksum, err)
	}
	return nil
}

// SetStatusBySet updates the status of every difficulty in a set and
// returns the affected checksums.
func (r *BeatmapRepository) SetStatusBySet(ctx context.Context, parentID int32, status osu.BeatmapStatus) ([]string, error) {
	rows, err := r.db.pool.Query(ctx,
		`UPDATE beatmaps SET status = $1, frozen = TRUE, updated_at = $2
		 WHERE parent_id = $3 RETURNING checksum`,
		int32(status), time.Now(), parentID)
	if err != nil {
		return nil, fmt.Errorf("updating status of set %d: %w", parentID, err)
	}
	defer rows.Close()

	var checksums []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning checksum: %w", err)
		}
		checksums = append(checksums, c)
	}
	return checksums, rows.Err()
}
