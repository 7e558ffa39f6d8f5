package model

import (
	"time"

	"github.com/miosrv/mio/internal/osu"
)

// Score is a stored play.
type Score struct {
	ID              int32
	UserID          int32
	BeatmapChecksum string
	PlayMode        osu.Mode
	TotalScore      int64
	MaxCombo        int32
	Count300        int32
	Count100        int32
	Count50         int32
	CountGeki       int32
	CountKatu       int32
	CountMiss       int32
	Mods            osu.Mods
	IsPerfect       bool
	Status          osu.ScoreStatus
	SubmittedAt     time.Time
	Performance     float64
}

// Play extracts the pure scoring inputs of the row.
func (s *Score) Play() osu.Play {
	return osu.Play{
		Count300:  s.Count300,
		Count100:  s.Count100,
		Count50:   s.Count50,
		CountGeki: s.CountGeki,
		CountKatu: s.CountKatu,
		CountMiss: s.CountMiss,
		Mods:      s.Mods,
		Mode:      s.PlayMode,
		Failed:    s.Status == osu.ScoreFailed,
	}
}

// Accuracy returns the play accuracy in percent.
func (s *Score) Accuracy() float64 { return s.Play().Accuracy() }

// Grade returns the rank letter for the play.
func (s *Score) Grade() string { return s.Play().Grade() }

// UserScore is a leaderboard row: score joined with its author and
// the 1-based rank within the filtered leaderboard.
type UserScore struct {
	Score Score
	User  User
	Rank  int64
}

// UserScoreWithBeatmap additionally carries the beatmap, used by the
// stats recomputation and the recalculation terminal.
type UserScoreWithBeatmap struct {
	Score   Score
	User    User
	Beatmap Beatmap
	Rank    int32
}

// UserStats is the per-(user, mode) aggregate row.
type UserStats struct {
	UserID      int32
	Mode        osu.Mode
	RankedScore int64
	TotalScore  int64
	AvgAccuracy float64 // fraction in [0,1]
	Playcount   int32
	Performance float64
	MaxCombo    int32
}
