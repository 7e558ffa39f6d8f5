// Package testutil holds shared helpers for package tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/miosrv/mio/internal/ranking"
)

// Ranking returns a ranking client backed by an in-process redis that
// is torn down with the test.
func Ranking(tb testing.TB) *ranking.Client {
	tb.Helper()
	mr := miniredis.RunT(tb)
	return ranking.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}
