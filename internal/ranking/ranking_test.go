package ranking

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewFromClient(rdb)
}

func TestUpsertAndRank(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	alice := &model.User{ID: 1, Country: "DE"}
	bob := &model.User{ID: 2, Country: "PL"}

	require.NoError(t, c.UpsertRanking(ctx, alice, osu.ModeStd, 300))
	require.NoError(t, c.UpsertRanking(ctx, bob, osu.ModeStd, 500))

	rank, err := c.GlobalRank(ctx, bob.ID, osu.ModeStd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank)

	rank, err = c.GlobalRank(ctx, alice.ID, osu.ModeStd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)

	// Country boards are independent.
	rank, err = c.CountryRank(ctx, alice.ID, "DE", osu.ModeStd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rank)
}

func TestRemoveRanking(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	u := &model.User{ID: 7, Country: "DE"}
	require.NoError(t, c.UpsertRanking(ctx, u, osu.ModeRelax, 1000))
	require.NoError(t, c.RemoveRanking(ctx, u, osu.ModeRelax))

	rank, err := c.GlobalRank(ctx, u.ID, osu.ModeRelax)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rank)
}

func TestRemoveAllRankings(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	u := &model.User{ID: 9, Country: "DE"}
	for _, m := range osu.AllModes() {
		require.NoError(t, c.UpsertRanking(ctx, u, m, 100))
	}
	c.RemoveAllRankings(ctx, u)
	for _, m := range osu.AllModes() {
		rank, err := c.GlobalRank(ctx, u.ID, m)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rank, "mode %v", m)
	}
}

func TestUnrankedUserHasZeroRank(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	rank, err := c.GlobalRank(ctx, 404, osu.ModeStd)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rank)
}

func TestIdentityCache(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	id, err := c.CachedUserID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(0), id)

	require.NoError(t, c.CacheUserID(ctx, "alice", 42))
	id, err = c.CachedUserID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(42), id)
}

func TestPasswordCache(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	h, err := c.CachedPasswordHash(ctx, "alice", "deadbeef")
	require.NoError(t, err)
	assert.Empty(t, h)

	require.NoError(t, c.CachePasswordHash(ctx, "alice", "deadbeef", "$2b$stored"))
	h, err = c.CachedPasswordHash(ctx, "alice", "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "$2b$stored", h)
}

func TestGradeCount(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	n, err := c.GradeCount(ctx, 1, osu.ModeStd, "SH")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), n)

	require.NoError(t, c.SetGradeCount(ctx, 1, osu.ModeStd, "SH", 3))
	n, err = c.GradeCount(ctx, 1, osu.ModeStd, "SH")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
