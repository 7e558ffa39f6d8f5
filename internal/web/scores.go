package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/beatmap"
	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/score"
)

const leaderboardSize = 50

// handleGetScores serves the in-game leaderboard view.
func (s *Server) handleGetScores(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := s.auth.Authenticate(ctx, c.Query("us"), c.Query("ha"))
	if err != nil {
		slog.Error("authenticating leaderboard fetch", "err", err)
		c.String(http.StatusOK, score.ResponseErrNo)
		return
	}
	if user == nil {
		c.String(http.StatusOK, score.ResponseErrPass)
		return
	}

	checksum := c.Query("c")
	bm, err := s.maps.ByChecksum(ctx, checksum)
	if err != nil {
		slog.Error("resolving beatmap for leaderboard", "checksum", checksum, "err", err)
		c.String(http.StatusOK, score.ResponseErrNo)
		return
	}
	if bm == nil {
		switch s.maps.CheckFilename(ctx, c.Query("f"), checksum) {
		case beatmap.FallbackNeedsUpdate:
			c.String(http.StatusOK, "1|false")
		default:
			c.String(http.StatusOK, "-1|false")
		}
		return
	}

	mode := osu.ModeFromID(parseUint8(c.Query("m")))
	mods := osu.Mods(parseUint32(c.Query("mods")))

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|false|%d|%d|0\n", int32(bm.Status), bm.BeatmapID, bm.ParentID)
	sb.WriteString("0\n")
	fmt.Fprintf(&sb, "%s\n", beatmap.Title(bm))

	// Unranked and worse states carry no board.
	if bm.Status <= osu.BeatmapPending {
		sb.WriteString("0\n\n")
		c.String(http.StatusOK, sb.String())
		return
	}

	bestStatus := osu.BestStatusFor(bm.Status)
	rows, err := s.scores.Leaderboard(ctx, checksum, mode, mods, bestStatus, leaderboardSize)
	if err != nil {
		slog.Error("querying leaderboard", "checksum", checksum, "err", err)
		c.String(http.StatusOK, score.ResponseErrNo)
		return
	}
	personal, err := s.scores.UserBest(ctx, checksum, user.ID, mode, mods, bestStatus)
	if err != nil {
		slog.Error("querying personal best", "checksum", checksum, "err", err)
		c.String(http.StatusOK, score.ResponseErrNo)
		return
	}

	fmt.Fprintf(&sb, "%d\n", len(rows))
	sb.WriteString(personalBestLine(personal))
	for _, row := range rows {
		sb.WriteString(score.Row(&row))
		sb.WriteByte('\n')
	}

	c.String(http.StatusOK, sb.String())
}

func personalBestLine(us *model.UserScore) string {
	if us == nil {
		return "\n"
	}
	return score.Row(us) + "\n"
}

func parseUint8(s string) uint8 {
	v, _ := strconv.ParseUint(s, 10, 8)
	return uint8(v)
}

func parseUint32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 10, 32)
	return uint32(v)
}
