// Package recalc implements the recalculation terminal: an
// interactive stdin tool that re-runs the performance calculator over
// selected scores and re-derives the affected user aggregates.
package recalc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/miosrv/mio/internal/beatmap"
	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/performance"
	"github.com/miosrv/mio/internal/score"
)

const helpText = `Commands:
  HELP                     show this text
  ADD SCORE <id>           queue one score
  ADD USER <id>            queue the user's best scores, all modes
  ADD BEATMAP <checksum>   queue the beatmap's best scores, all modes
  REM <id>                 remove a score from the queue
  PREVIEW                  show old vs recalculated pp for the queue
  PROCESS                  apply the recalculation and refresh stats
  QUIT                     exit`

// Terminal is the interactive recalculation loop.
type Terminal struct {
	db     *db.DB
	scores *db.ScoreRepository
	users  *db.UserRepository
	maps   *beatmap.Resolver
	engine *score.Engine

	queue  []int32
	queued map[int32]bool
	in     io.Reader
	out    io.Writer
}

// New creates a Terminal reading commands from in and printing to out.
func New(database *db.DB, maps *beatmap.Resolver, engine *score.Engine, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		db:     database,
		scores: db.NewScoreRepository(database),
		users:  db.NewUserRepository(database),
		maps:   maps,
		engine: engine,
		queued: make(map[int32]bool),
		in:     in,
		out:    out,
	}
}

// Run reads commands until QUIT or EOF.
func (t *Terminal) Run(ctx context.Context) error {
	fmt.Fprintln(t.out, "recalculation terminal; HELP for commands")
	scanner := bufio.NewScanner(t.in)
	for {
		fmt.Fprint(t.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "HELP":
			fmt.Fprintln(t.out, helpText)
		case "ADD":
			t.add(ctx, fields[1:])
		case "REM":
			t.remove(fields[1:])
		case "PREVIEW":
			t.preview(ctx)
		case "PROCESS":
			t.process(ctx)
		case "QUIT", "EXIT":
			return nil
		default:
			fmt.Fprintf(t.out, "unknown command %q; HELP for commands\n", fields[0])
		}
	}
}

func (t *Terminal) enqueue(id int32) {
	if t.queued[id] {
		return
	}
	t.queued[id] = true
	t.queue = append(t.queue, id)
}

func (t *Terminal) add(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(t.out, "usage: ADD SCORE|USER|BEATMAP <target>")
		return
	}
	switch strings.ToUpper(args[0]) {
	case "SCORE":
		id, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			fmt.Fprintln(t.out, "score id must be a number")
			return
		}
		row, err := t.scores.WithBeatmapByID(ctx, int32(id))
		if err != nil {
			fmt.Fprintf(t.out, "error: %v\n", err)
			return
		}
		if row == nil {
			fmt.Fprintf(t.out, "score %d does not exist\n", id)
			return
		}
		t.enqueue(int32(id))
		fmt.Fprintf(t.out, "queued score %d (%d total)\n", id, len(t.queue))

	case "USER":
		user, err := t.users.FindByTerm(ctx, args[1])
		if err != nil {
			fmt.Fprintf(t.out, "error: %v\n", err)
			return
		}
		if user == nil {
			fmt.Fprintf(t.out, "user %q does not exist\n", args[1])
			return
		}
		added := 0
		for _, mode := range osu.AllModes() {
			best, err := t.scores.BestScores(ctx, t.db.Pool(), user.ID, mode, 0)
			if err != nil {
				fmt.Fprintf(t.out, "error: %v\n", err)
				return
			}
			for _, s := range best {
				t.enqueue(s.ID)
				added++
			}
		}
		fmt.Fprintf(t.out, "queued %d scores of %s (%d total)\n", added, user.Username, len(t.queue))

	case "BEATMAP":
		added := 0
		for _, mode := range osu.AllModes() {
			rows, err := t.scores.Leaderboard(ctx, args[1], mode, 0, osu.ScoreBest, 1000)
			if err != nil {
				fmt.Fprintf(t.out, "error: %v\n", err)
				return
			}
			for _, r := range rows {
				t.enqueue(r.Score.ID)
				added++
			}
		}
		fmt.Fprintf(t.out, "queued %d scores on %s (%d total)\n", added, args[1], len(t.queue))

	default:
		fmt.Fprintln(t.out, "usage: ADD SCORE|USER|BEATMAP <target>")
	}
}

func (t *Terminal) remove(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(t.out, "usage: REM <score id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		fmt.Fprintln(t.out, "score id must be a number")
		return
	}
	if !t.queued[int32(id)] {
		fmt.Fprintf(t.out, "score %d is not queued\n", id)
		return
	}
	delete(t.queued, int32(id))
	for i, q := range t.queue {
		if q == int32(id) {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			break
		}
	}
	fmt.Fprintf(t.out, "removed score %d (%d total)\n", id, len(t.queue))
}

// recalculate recomputes one queued score's pp from its beatmap file.
func (t *Terminal) recalculate(ctx context.Context, row *model.UserScoreWithBeatmap) (float64, error) {
	data, err := t.maps.File(ctx, row.Beatmap.BeatmapID)
	if err != nil {
		return 0, fmt.Errorf("fetching beatmap %d: %w", row.Beatmap.BeatmapID, err)
	}
	return performance.Calculate(data, row.Score.Play(), row.Score.MaxCombo), nil
}

func (t *Terminal) preview(ctx context.Context) {
	if len(t.queue) == 0 {
		fmt.Fprintln(t.out, "queue is empty")
		return
	}
	for _, id := range t.queue {
		row, err := t.scores.WithBeatmapByID(ctx, id)
		if err != nil || row == nil {
			fmt.Fprintf(t.out, "score %d: unavailable\n", id)
			continue
		}
		pp, err := t.recalculate(ctx, row)
		if err != nil {
			fmt.Fprintf(t.out, "score %d: %v\n", id, err)
			continue
		}
		fmt.Fprintf(t.out, "score %d (%s on %s): %.2fpp -> %.2fpp\n",
			id, row.User.Username, beatmap.Title(&row.Beatmap), row.Score.Performance, pp)
	}
}

func (t *Terminal) process(ctx context.Context) {
	if len(t.queue) == 0 {
		fmt.Fprintln(t.out, "queue is empty")
		return
	}

	type userMode struct {
		userID int32
		mode   osu.Mode
	}
	touched := make(map[userMode]*model.User)

	updated := 0
	for _, id := range t.queue {
		row, err := t.scores.WithBeatmapByID(ctx, id)
		if err != nil || row == nil {
			slog.Warn("skipping unavailable score", "score", id, "err", err)
			continue
		}
		pp, err := t.recalculate(ctx, row)
		if err != nil {
			slog.Warn("skipping score without beatmap file", "score", id, "err", err)
			continue
		}
		if err := t.scores.UpdatePerformance(ctx, id, pp); err != nil {
			fmt.Fprintf(t.out, "score %d: %v\n", id, err)
			continue
		}
		updated++
		user := row.User
		touched[userMode{user.ID, row.Score.PlayMode}] = &user
	}

	for um, user := range touched {
		if err := t.engine.RecomputeStats(ctx, user, um.mode); err != nil {
			fmt.Fprintf(t.out, "refreshing stats of %d: %v\n", um.userID, err)
		}
	}

	fmt.Fprintf(t.out, "updated %d scores, refreshed %d user/mode pairs\n", updated, len(touched))
	t.queue = nil
	t.queued = make(map[int32]bool)
}
