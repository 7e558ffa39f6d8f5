package beatmap

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

type stubStore struct {
	byChecksum map[string]*model.Beatmap
	byID       map[int32]*model.Beatmap
	upserted   []*model.Beatmap
}

func (s *stubStore) ByChecksum(_ context.Context, checksum string) (*model.Beatmap, error) {
	return s.byChecksum[checksum], nil
}

func (s *stubStore) ByID(_ context.Context, id int32) (*model.Beatmap, error) {
	return s.byID[id], nil
}

func (s *stubStore) Upsert(_ context.Context, b *model.Beatmap) error {
	s.upserted = append(s.upserted, b)
	return nil
}

func newStubStore() *stubStore {
	return &stubStore{
		byChecksum: map[string]*model.Beatmap{},
		byID:       map[int32]*model.Beatmap{},
	}
}

const mirrorSetJSON = `{
	"id": 100,
	"title": "Song",
	"artist": "Artist",
	"creator": "Mapper",
	"beatmaps": [{
		"id": 200,
		"checksum": "abcdef",
		"version": "Hard",
		"ar": 9, "accuracy": 8, "cs": 4, "drain": 5,
		"difficulty_rating": 5.2, "mode_int": 0, "bpm": 180,
		"max_combo": 700, "hit_length": 120, "total_length": 150,
		"ranked": 1
	}]
}`

func TestByChecksumLocalHit(t *testing.T) {
	store := newStubStore()
	store.byChecksum["abcdef"] = &model.Beatmap{BeatmapID: 200, Checksum: "abcdef"}
	r := New(store, "http://unused.invalid", t.TempDir())

	b, err := r.ByChecksum(context.Background(), "abcdef")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, int32(200), b.BeatmapID)
	assert.Empty(t, store.upserted)
}

func TestByChecksumMirrorFallback(t *testing.T) {
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/beatmaps/md5/abcdef", r.URL.Path)
		_, _ = w.Write([]byte(mirrorSetJSON))
	}))
	defer mirror.Close()

	store := newStubStore()
	r := New(store, mirror.URL, t.TempDir())

	b, err := r.ByChecksum(context.Background(), "abcdef")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, int32(200), b.BeatmapID)
	assert.Equal(t, int32(100), b.ParentID)
	assert.Equal(t, osu.BeatmapRanked, b.Status)
	assert.Equal(t, "Artist", b.Artist)
	require.Len(t, store.upserted, 1)
}

func TestByChecksumUnknownEverywhere(t *testing.T) {
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer mirror.Close()

	r := New(newStubStore(), mirror.URL, t.TempDir())
	b, err := r.ByChecksum(context.Background(), "ffff")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestMirrorFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(prev)

	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer mirror.Close()

	store := newStubStore()
	r := New(store, mirror.URL, t.TempDir())

	b, err := r.ByChecksum(context.Background(), "abcdef")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = r.ByID(context.Background(), 200)
	require.NoError(t, err)
	assert.Nil(t, b)

	assert.Empty(t, store.upserted)
	assert.Contains(t, logs.String(), "fetching beatmap from mirror")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestByIDMirrorFallback(t *testing.T) {
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/beatmapsets/beatmap/200", r.URL.Path)
		_, _ = w.Write([]byte(mirrorSetJSON))
	}))
	defer mirror.Close()

	store := newStubStore()
	r := New(store, mirror.URL, t.TempDir())

	b, err := r.ByID(context.Background(), 200)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Hard", b.Version)
}

func TestFileDownloadAndCache(t *testing.T) {
	hits := 0
	official := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/osu/200", r.URL.Path)
		_, _ = w.Write([]byte("osu file format v14"))
	}))
	defer official.Close()

	dir := t.TempDir()
	r := New(newStubStore(), "http://unused.invalid", dir)
	r.official = official.URL

	data, err := r.File(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, "osu file format v14", string(data))

	cached, err := os.ReadFile(filepath.Join(dir, "200.osu"))
	require.NoError(t, err)
	assert.Equal(t, data, cached)

	// Second read comes from disk.
	_, err = r.File(context.Background(), 200)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestCheckFilename(t *testing.T) {
	content := []byte("osu file format v14\n[HitObjects]\n1,1,1,1,0\n")
	sum := md5.Sum(content)
	official := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/web/maps/known.osu" {
			_, _ = w.Write(content)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer official.Close()

	r := New(newStubStore(), "http://unused.invalid", t.TempDir())
	r.official = official.URL

	// Client copy matches the official file: truly unsubmitted here.
	fb := r.CheckFilename(context.Background(), "known.osu", hex.EncodeToString(sum[:]))
	assert.Equal(t, FallbackUnsubmitted, fb)
	assert.Equal(t, osu.BeatmapNotSubmitted, fb.Status())

	// Client copy is stale.
	fb = r.CheckFilename(context.Background(), "known.osu", "0000")
	assert.Equal(t, FallbackNeedsUpdate, fb)
	assert.Equal(t, osu.BeatmapNeedUpdate, fb.Status())

	// Official host has never heard of it.
	fb = r.CheckFilename(context.Background(), "missing.osu", "0000")
	assert.Equal(t, FallbackUnsubmitted, fb)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Artist - Song", Title(&model.Beatmap{Artist: "Artist", Title: "Song"}))
}
