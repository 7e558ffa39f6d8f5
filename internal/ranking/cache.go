package ranking

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/miosrv/mio/internal/osu"
)

// Identity cache keys. Entries carry no TTL: a password change must
// clear the password keys for the affected user.

func userIDKey(safe string) string {
	return fmt.Sprintf("user:%s:id", safe)
}

func passwordKey(safe, presented string) string {
	return fmt.Sprintf("user:%s:password:%s", safe, presented)
}

func gradeKey(userID int32, mode osu.Mode, grade string) string {
	return fmt.Sprintf("user:%d:grades:%d:%s", userID, mode, grade)
}

// GradeLetters is every rank letter tracked by the grade counters.
var GradeLetters = []string{"XH", "SH", "X", "S", "A", "B", "C", "D"}

// CachedUserID returns the cached id for a normalized username, or 0
// on miss.
func (c *Client) CachedUserID(ctx context.Context, safe string) (int32, error) {
	v, err := c.rdb.Get(ctx, userIDKey(safe)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading id cache for %q: %w", safe, err)
	}
	id, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing cached id for %q: %w", safe, err)
	}
	return int32(id), nil
}

// CacheUserID stores the id for a normalized username.
func (c *Client) CacheUserID(ctx context.Context, safe string, id int32) error {
	if err := c.rdb.Set(ctx, userIDKey(safe), fmt.Sprint(id), 0).Err(); err != nil {
		return fmt.Errorf("caching id for %q: %w", safe, err)
	}
	return nil
}

// CachedPasswordHash returns the stored hash cached under the
// presented credential, "" on miss.
func (c *Client) CachedPasswordHash(ctx context.Context, safe, presented string) (string, error) {
	v, err := c.rdb.Get(ctx, passwordKey(safe, presented)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading password cache for %q: %w", safe, err)
	}
	return v, nil
}

// CachePasswordHash remembers that the presented credential verified
// against the stored hash.
func (c *Client) CachePasswordHash(ctx context.Context, safe, presented, storedHash string) error {
	if err := c.rdb.Set(ctx, passwordKey(safe, presented), storedHash, 0).Err(); err != nil {
		return fmt.Errorf("caching password for %q: %w", safe, err)
	}
	return nil
}

// GradeCount reads the cached grade counter, -1 on miss.
func (c *Client) GradeCount(ctx context.Context, userID int32, mode osu.Mode, grade string) (int64, error) {
	v, err := c.rdb.Get(ctx, gradeKey(userID, mode, grade)).Result()
	if err == redis.Nil {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("reading grade count for %d: %w", userID, err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1, fmt.Errorf("parsing grade count for %d: %w", userID, err)
	}
	return n, nil
}

// ClearGradeCounts drops the cached counters of a (user, mode) so the
// next read recomputes them from the best scores.
func (c *Client) ClearGradeCounts(ctx context.Context, userID int32, mode osu.Mode) error {
	keys := make([]string, len(GradeLetters))
	for i, g := range GradeLetters {
		keys[i] = gradeKey(userID, mode, g)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing grade counts for %d: %w", userID, err)
	}
	return nil
}

// SetGradeCount stores a recomputed grade counter.
func (c *Client) SetGradeCount(ctx context.Context, userID int32, mode osu.Mode, grade string, count int64) error {
	if err := c.rdb.Set(ctx, gradeKey(userID, mode, grade), fmt.Sprint(count), 0).Err(); err != nil {
		return fmt.Errorf("caching grade count for %d: %w", userID, err)
	}
	return nil
}
