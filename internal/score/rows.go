package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
)

// Row renders one leaderboard entry in the client's 16-field pipe
// format. Relax entries display rounded pp in the score column.
func Row(us *model.UserScore) string {
	display := fmt.Sprintf("%d", us.Score.TotalScore)
	if us.Score.Mods&osu.ModRelax != 0 {
		display = fmt.Sprintf("%d", int64(math.Round(us.Score.Performance)))
	}
	perfect := "False"
	if us.Score.IsPerfect {
		perfect = "True"
	}
	fields := []string{
		fmt.Sprintf("%d", us.Score.ID),
		us.User.Username,
		display,
		fmt.Sprintf("%d", us.Score.MaxCombo),
		fmt.Sprintf("%d", us.Score.Count50),
		fmt.Sprintf("%d", us.Score.Count100),
		fmt.Sprintf("%d", us.Score.Count300),
		fmt.Sprintf("%d", us.Score.CountMiss),
		fmt.Sprintf("%d", us.Score.CountKatu),
		fmt.Sprintf("%d", us.Score.CountGeki),
		perfect,
		fmt.Sprintf("%d", uint32(us.Score.Mods)),
		fmt.Sprintf("%d", us.User.ID),
		fmt.Sprintf("%d", us.Rank),
		fmt.Sprintf("%d", us.Score.SubmittedAt.Unix()),
		"1",
	}
	return strings.Join(fields, "|")
}
