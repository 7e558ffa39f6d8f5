// Package score implements the submission pipeline: decrypting the
// client's record, classifying it against the user's prior best,
// persisting it, and recomputing the user's aggregates and rankings.
package score

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

// Submission is the decrypted, parsed score record.
type Submission struct {
	BeatmapChecksum string
	PlayerName      string
	ScoreChecksum   string
	Count300        int32
	Count100        int32
	Count50         int32
	CountGeki       int32
	CountKatu       int32
	CountMiss       int32
	TotalScore      int64
	MaxCombo        int32
	Perfect         bool
	GradeLetter     string
	Mods            osu.Mods
	Failed          bool
	PlayMode        osu.Mode
}

const submissionFields = 16

// Parse splits the decrypted plaintext into its 16 colon-delimited
// fields. The pass field is "True" when the play completed; Failed is
// its inverse.
func Parse(plaintext string) (*Submission, error) {
	fields := strings.Split(plaintext, ":")
	if len(fields) < submissionFields {
		return nil, fmt.Errorf("submission has %d fields, want %d", len(fields), submissionFields)
	}

	var s Submission
	s.BeatmapChecksum = fields[0]
	s.PlayerName = strings.TrimRight(fields[1], " ")
	s.ScoreChecksum = fields[2]

	ints := make([]int64, 8)
	for i, idx := range []int{3, 4, 5, 6, 7, 8, 9, 10} {
		v, err := strconv.ParseInt(fields[idx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing field %d: %w", idx, err)
		}
		ints[i] = v
	}
	s.Count300 = int32(ints[0])
	s.Count100 = int32(ints[1])
	s.Count50 = int32(ints[2])
	s.CountGeki = int32(ints[3])
	s.CountKatu = int32(ints[4])
	s.CountMiss = int32(ints[5])
	s.TotalScore = ints[6]
	s.MaxCombo = int32(ints[7])

	s.Perfect = fields[11] == "True"
	s.GradeLetter = fields[12]

	mods, err := strconv.ParseUint(fields[13], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parsing mods: %w", err)
	}
	s.Mods = osu.Mods(mods)

	s.Failed = fields[14] == "False"

	mode, err := strconv.ParseUint(fields[15], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("parsing playmode: %w", err)
	}
	s.PlayMode = osu.ModeFromID(uint8(mode))
	return &s, nil
}

// EffectiveMode resolves the leaderboard mode for the submission.
func (s *Submission) EffectiveMode() osu.Mode {
	return osu.EffectiveMode(s.PlayMode, s.Mods)
}

// Play extracts the pure scoring inputs.
func (s *Submission) Play() osu.Play {
	return osu.Play{
		Count300:  s.Count300,
		Count100:  s.Count100,
		Count50:   s.Count50,
		CountGeki: s.CountGeki,
		CountKatu: s.CountKatu,
		CountMiss: s.CountMiss,
		Mods:      s.Mods,
		Mode:      s.PlayMode,
		Failed:    s.Failed,
	}
}

// Row builds the storage row for the submission. The stored play mode
// is the effective one so Relax lands on its own leaderboard.
func (s *Submission) Row(userID int32, status osu.ScoreStatus, performance float64, at time.Time) *model.Score {
	return &model.Score{
		UserID:          userID,
		BeatmapChecksum: s.BeatmapChecksum,
		PlayMode:        s.EffectiveMode(),
		TotalScore:      s.TotalScore,
		MaxCombo:        s.MaxCombo,
		Count300:        s.Count300,
		Count100:        s.Count100,
		Count50:         s.Count50,
		CountGeki:       s.CountGeki,
		CountKatu:       s.CountKatu,
		CountMiss:       s.CountMiss,
		Mods:            s.Mods,
		IsPerfect:       s.Perfect,
		Status:          status,
		SubmittedAt:     at,
		Performance:     performance,
	}
}
