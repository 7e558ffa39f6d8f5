package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/ranking"
)

type userResponse struct {
	ID        int32            `json:"id"`
	Username  string           `json:"username"`
	Country   string           `json:"country"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
	Stats     statsBlock       `json:"stats"`
	Grades    map[string]int64 `json:"grades"`
}

type statsBlock struct {
	Mode        string  `json:"mode"`
	RankedScore int64   `json:"ranked_score"`
	TotalScore  int64   `json:"total_score"`
	AvgAccuracy float64 `json:"avg_accuracy"`
	Playcount   int32   `json:"playcount"`
	Performance float64 `json:"performance"`
	MaxCombo    int32   `json:"max_combo"`
	GlobalRank  int64   `json:"global_rank"`
	CountryRank int64   `json:"country_rank"`
}

// handleUser serves one user's profile with the requested mode's
// aggregates. Restricted profiles are visible only to themselves and
// managers.
func (s *Server) handleUser(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, apiError{Error: "invalid_request", Hint: "id", Message: "Invalid user id."})
		return
	}
	user, err := s.users.GetByID(ctx, int32(id))
	if err != nil {
		slog.Error("querying user profile", "user", id, "err", err)
		c.JSON(http.StatusInternalServerError, apiError{Error: "server_error", Message: "Something went wrong."})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, apiError{Error: "not_found", Hint: "id", Message: "User not found."})
		return
	}
	if user.IsRestricted() && !mayViewRestricted(currentUser(c), user) {
		c.JSON(http.StatusForbidden, apiError{Error: "forbidden", Message: "This profile is not available."})
		return
	}

	mode := parseMode(c.Query("mode"))
	stats, err := s.stats.Get(ctx, user.ID, mode)
	if err != nil {
		slog.Error("querying user stats", "user", id, "err", err)
		c.JSON(http.StatusInternalServerError, apiError{Error: "server_error", Message: "Something went wrong."})
		return
	}

	globalRank, err := s.rank.GlobalRank(ctx, user.ID, mode)
	if err != nil {
		slog.Warn("querying global rank", "user", id, "err", err)
	}
	countryRank, err := s.rank.CountryRank(ctx, user.ID, user.Country, mode)
	if err != nil {
		slog.Warn("querying country rank", "user", id, "err", err)
	}
	grades, err := s.gradeCounts(ctx, user.ID, mode)
	if err != nil {
		slog.Warn("querying grade counts", "user", id, "err", err)
	}

	c.JSON(http.StatusOK, userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Country:   user.Country,
		CreatedAt: user.CreatedAt,
		LastSeen:  user.LastSeen,
		Stats: statsBlock{
			Mode:        mode.String(),
			RankedScore: stats.RankedScore,
			TotalScore:  stats.TotalScore,
			AvgAccuracy: stats.AvgAccuracy,
			Playcount:   stats.Playcount,
			Performance: stats.Performance,
			MaxCombo:    stats.MaxCombo,
			GlobalRank:  globalRank,
			CountryRank: countryRank,
		},
		Grades: grades,
	})
}

// gradeCounts serves the cached per-letter counters, recomputing the
// whole set from the user's best scores on any miss.
func (s *Server) gradeCounts(ctx context.Context, userID int32, mode osu.Mode) (map[string]int64, error) {
	out := make(map[string]int64, len(ranking.GradeLetters))
	miss := false
	for _, g := range ranking.GradeLetters {
		n, err := s.rank.GradeCount(ctx, userID, mode, g)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			miss = true
			break
		}
		out[g] = n
	}
	if !miss {
		return out, nil
	}

	best, err := s.scores.BestScores(ctx, s.exec, userID, mode, 0)
	if err != nil {
		return nil, err
	}
	for _, g := range ranking.GradeLetters {
		out[g] = 0
	}
	for i := range best {
		out[best[i].Grade()]++
	}
	for _, g := range ranking.GradeLetters {
		if err := s.rank.SetGradeCount(ctx, userID, mode, g, out[g]); err != nil {
			return out, err
		}
	}
	return out, nil
}

func mayViewRestricted(viewer, target *model.User) bool {
	if viewer == nil {
		return false
	}
	return viewer.ID == target.ID || viewer.IsManager()
}

type rankingEntry struct {
	Rank        int64   `json:"rank"`
	UserID      int32   `json:"user_id"`
	Username    string  `json:"username"`
	Country     string  `json:"country"`
	Performance float64 `json:"performance"`
}

const rankingsPageSize = 50

// handleRankings serves a page of the global performance board.
func (s *Server) handleRankings(c *gin.Context) {
	ctx := c.Request.Context()
	mode := parseMode(c.Param("mode"))

	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * rankingsPageSize

	entries, err := s.rank.Top(ctx, mode, offset, rankingsPageSize)
	if err != nil {
		slog.Error("querying rankings", "mode", mode, "err", err)
		c.JSON(http.StatusInternalServerError, apiError{Error: "server_error", Message: "Something went wrong."})
		return
	}

	out := make([]rankingEntry, 0, len(entries))
	for i, e := range entries {
		member, ok := e.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 32)
		if err != nil {
			continue
		}
		user, err := s.users.GetByID(ctx, int32(id))
		if err != nil || user == nil {
			slog.Warn("resolving ranked user", "user", id, "err", err)
			continue
		}
		out = append(out, rankingEntry{
			Rank:        offset + int64(i) + 1,
			UserID:      user.ID,
			Username:    user.Username,
			Country:     user.Country,
			Performance: e.Score,
		})
	}

	c.JSON(http.StatusOK, gin.H{"mode": mode.String(), "page": page, "rankings": out})
}

// parseMode accepts both numeric ids and names.
func parseMode(s string) osu.Mode {
	switch s {
	case "taiko", "1":
		return osu.ModeTaiko
	case "ctb", "catch", "2":
		return osu.ModeCtb
	case "mania", "3":
		return osu.ModeMania
	case "relax", "rx", "4":
		return osu.ModeRelax
	default:
		return osu.ModeStd
	}
}
