// Package ranking keeps the Redis-backed sorted-set leaderboards and
// the identity caches in front of the user table.
package ranking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

// Client wraps the shared Redis connection.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis using a redis:// URL.
func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing connection, used by tests.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func leaderboardKey(mode osu.Mode) string {
	return fmt.Sprintf("leaderboard:%d:performance", mode)
}

func countryKey(mode osu.Mode, country string) string {
	return fmt.Sprintf("leaderboard:%d:performance:%s", mode, country)
}

// UpsertRanking places the user on the global and country boards with
// the given integer performance score.
func (c *Client) UpsertRanking(ctx context.Context, user *model.User, mode osu.Mode, performance int64) error {
	member := fmt.Sprint(user.ID)
	z := redis.Z{Score: float64(performance), Member: member}
	if err := c.rdb.ZAdd(ctx, leaderboardKey(mode), z).Err(); err != nil {
		return fmt.Errorf("updating global ranking for %d: %w", user.ID, err)
	}
	if err := c.rdb.ZAdd(ctx, countryKey(mode, user.Country), z).Err(); err != nil {
		return fmt.Errorf("updating country ranking for %d: %w", user.ID, err)
	}
	return nil
}

// RemoveRanking drops the user from the mode's boards.
func (c *Client) RemoveRanking(ctx context.Context, user *model.User, mode osu.Mode) error {
	member := fmt.Sprint(user.ID)
	if err := c.rdb.ZRem(ctx, leaderboardKey(mode), member).Err(); err != nil {
		return fmt.Errorf("removing global ranking for %d: %w", user.ID, err)
	}
	if err := c.rdb.ZRem(ctx, countryKey(mode, user.Country), member).Err(); err != nil {
		return fmt.Errorf("removing country ranking for %d: %w", user.ID, err)
	}
	return nil
}

// RemoveAllRankings drops the user from every mode's boards, used by
// the cleanup job and on restriction.
func (c *Client) RemoveAllRankings(ctx context.Context, user *model.User) {
	for _, mode := range osu.AllModes() {
		if err := c.RemoveRanking(ctx, user, mode); err != nil {
			slog.Warn("removing ranking", "user", user.ID, "mode", mode, "err", err)
		}
	}
}

// GlobalRank returns the 1-based rank of the user, 0 when unranked.
func (c *Client) GlobalRank(ctx context.Context, userID int32, mode osu.Mode) (int64, error) {
	rank, err := c.rdb.ZRevRank(ctx, leaderboardKey(mode), fmt.Sprint(userID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying global rank for %d: %w", userID, err)
	}
	return rank + 1, nil
}

// CountryRank returns the 1-based country rank, 0 when unranked.
func (c *Client) CountryRank(ctx context.Context, userID int32, country string, mode osu.Mode) (int64, error) {
	rank, err := c.rdb.ZRevRank(ctx, countryKey(mode, country), fmt.Sprint(userID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying country rank for %d: %w", userID, err)
	}
	return rank + 1, nil
}

// Top returns up to limit user ids from the global board, best first.
func (c *Client) Top(ctx context.Context, mode osu.Mode, offset, limit int64) ([]redis.Z, error) {
	entries, err := c.rdb.ZRevRangeWithScores(ctx, leaderboardKey(mode), offset, offset+limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("querying top of mode %d: %w", mode, err)
	}
	return entries, nil
}
