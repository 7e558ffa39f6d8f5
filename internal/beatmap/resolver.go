// Package beatmap resolves beatmap metadata and files. Lookups go to
// local storage first, then to the configured mirror; .osu files are
// cached on disk under the data directory.
package beatmap

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

// officialHost serves beatmap files and the update endpoint.
const officialHost = "https://osu.ppy.sh"

// Store is the storage surface the resolver needs. Satisfied by
// db.BeatmapRepository.
type Store interface {
	ByChecksum(ctx context.Context, checksum string) (*model.Beatmap, error)
	ByID(ctx context.Context, id int32) (*model.Beatmap, error)
	Upsert(ctx context.Context, b *model.Beatmap) error
}

// Fallback classifies a checksum that neither storage nor the mirror
// recognizes.
type Fallback int

const (
	FallbackNone        Fallback = iota
	FallbackUnsubmitted          // map is unknown everywhere
	FallbackNeedsUpdate          // official copy exists with a different md5
)

// Resolver ties storage, the mirror and the on-disk file cache.
type Resolver struct {
	store     Store
	mirrorURL string
	official  string
	dir       string
	client    *http.Client
}

// New creates a Resolver. dir is the beatmap file cache directory.
func New(store Store, mirrorURL, dir string) *Resolver {
	return &Resolver{
		store:     store,
		mirrorURL: mirrorURL,
		official:  officialHost,
		dir:       dir,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ByChecksum resolves a beatmap by md5, persisting a mirror hit.
// Returns nil, nil when neither storage nor the mirror knows it.
func (r *Resolver) ByChecksum(ctx context.Context, checksum string) (*model.Beatmap, error) {
	b, err := r.store.ByChecksum(ctx, checksum)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}
	b, err = r.mirrorByChecksum(ctx, checksum)
	if err != nil {
		slog.Warn("fetching beatmap from mirror", "checksum", checksum, "err", err)
		return nil, nil
	}
	if err := r.store.Upsert(ctx, b); err != nil {
		return nil, fmt.Errorf("persisting beatmap %d: %w", b.BeatmapID, err)
	}
	return b, nil
}

// ByID resolves a beatmap by id, persisting a mirror hit.
func (r *Resolver) ByID(ctx context.Context, id int32) (*model.Beatmap, error) {
	b, err := r.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}
	b, err = r.mirrorByID(ctx, id)
	if err != nil {
		slog.Warn("fetching beatmap from mirror", "beatmap", id, "err", err)
		return nil, nil
	}
	if err := r.store.Upsert(ctx, b); err != nil {
		return nil, fmt.Errorf("persisting beatmap %d: %w", b.BeatmapID, err)
	}
	return b, nil
}

// File returns the .osu bytes for a beatmap id, downloading and
// caching on first access.
func (r *Resolver) File(ctx context.Context, id int32) ([]byte, error) {
	path := filepath.Join(r.dir, fmt.Sprintf("%d.osu", id))
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}
	data, err := r.fetchBytes(ctx, fmt.Sprintf("%s/osu/%d", r.official, id))
	if err != nil {
		return nil, fmt.Errorf("downloading beatmap %d: %w", id, err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating beatmap cache dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("caching beatmap %d: %w", id, err)
	}
	return data, nil
}

// CheckFilename decides what to tell a client whose checksum nobody
// recognizes: fetch the official copy by filename and compare md5.
func (r *Resolver) CheckFilename(ctx context.Context, filename, presentedChecksum string) Fallback {
	data, err := r.fetchBytes(ctx, r.official+"/web/maps/"+url.PathEscape(filename))
	if err != nil || len(data) == 0 {
		return FallbackUnsubmitted
	}
	sum := md5.Sum(data)
	if hex.EncodeToString(sum[:]) != presentedChecksum {
		return FallbackNeedsUpdate
	}
	return FallbackUnsubmitted
}

// UpdateFile proxies the official update endpoint for a filename.
func (r *Resolver) UpdateFile(ctx context.Context, filename string) ([]byte, error) {
	return r.fetchBytes(ctx, r.official+"/web/maps/"+url.PathEscape(filename))
}

// Title renders the leaderboard header line for a beatmap.
func Title(b *model.Beatmap) string {
	return fmt.Sprintf("%s - %s", b.Artist, b.Title)
}

// Status maps the fallback onto the beatmap status a leaderboard
// response reports for it.
func (f Fallback) Status() osu.BeatmapStatus {
	if f == FallbackNeedsUpdate {
		return osu.BeatmapNeedUpdate
	}
	return osu.BeatmapNotSubmitted
}
