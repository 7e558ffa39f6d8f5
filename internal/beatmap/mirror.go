package beatmap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

// mirrorSet is the beatmapset document returned by the mirror API.
type mirrorSet struct {
	ID       int32        `json:"id"`
	Title    string       `json:"title"`
	Artist   string       `json:"artist"`
	Creator  string       `json:"creator"`
	Beatmaps []mirrorDiff `json:"beatmaps"`
}

type mirrorDiff struct {
	ID               int32   `json:"id"`
	Checksum         string  `json:"checksum"`
	Version          string  `json:"version"`
	AR               float64 `json:"ar"`
	Accuracy         float64 `json:"accuracy"` // od
	CS               float64 `json:"cs"`
	Drain            float64 `json:"drain"` // hp
	DifficultyRating float64 `json:"difficulty_rating"`
	ModeInt          int32   `json:"mode_int"`
	BPM              float64 `json:"bpm"`
	MaxCombo         int32   `json:"max_combo"`
	HitLength        int32   `json:"hit_length"`
	TotalLength      int32   `json:"total_length"`
	Ranked           int32   `json:"ranked"`
}

func (s *mirrorSet) toModel(d *mirrorDiff) *model.Beatmap {
	return &model.Beatmap{
		BeatmapID:   d.ID,
		ParentID:    s.ID,
		Checksum:    d.Checksum,
		Artist:      s.Artist,
		Title:       s.Title,
		Version:     d.Version,
		Creator:     s.Creator,
		AR:          d.AR,
		OD:          d.Accuracy,
		CS:          d.CS,
		HP:          d.Drain,
		Stars:       d.DifficultyRating,
		BPM:         d.BPM,
		MaxCombo:    d.MaxCombo,
		HitLength:   d.HitLength,
		TotalLength: d.TotalLength,
		GameMode:    osu.ModeFromID(uint8(d.ModeInt)),
		Status:      osu.BeatmapStatusFromMirror(d.Ranked),
	}
}

func (r *Resolver) mirrorFetch(ctx context.Context, path string) (*mirrorSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.mirrorURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building mirror request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mirror returned %d for %s", resp.StatusCode, path)
	}
	var set mirrorSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decoding mirror response for %s: %w", path, err)
	}
	return &set, nil
}

// mirrorByChecksum fetches the set containing the difficulty with the
// given md5 and returns that difficulty.
func (r *Resolver) mirrorByChecksum(ctx context.Context, checksum string) (*model.Beatmap, error) {
	set, err := r.mirrorFetch(ctx, "/api/v1/beatmaps/md5/"+checksum)
	if err != nil {
		return nil, err
	}
	for i := range set.Beatmaps {
		if set.Beatmaps[i].Checksum == checksum {
			return set.toModel(&set.Beatmaps[i]), nil
		}
	}
	return nil, fmt.Errorf("mirror set has no difficulty with checksum %s", checksum)
}

// mirrorByID fetches a difficulty by its beatmap id.
func (r *Resolver) mirrorByID(ctx context.Context, id int32) (*model.Beatmap, error) {
	set, err := r.mirrorFetch(ctx, fmt.Sprintf("/api/v1/beatmapsets/beatmap/%d", id))
	if err != nil {
		return nil, err
	}
	for i := range set.Beatmaps {
		if set.Beatmaps[i].ID == id {
			return set.toModel(&set.Beatmaps[i]), nil
		}
	}
	return nil, fmt.Errorf("mirror set has no difficulty with id %d", id)
}

// fetchBytes downloads an arbitrary URL, returning nil on any
// non-200 response.
func (r *Resolver) fetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}
