package score

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/miosrv/mio/internal/auth"
	"github.com/miosrv/mio/internal/beatmap"
	"github.com/miosrv/mio/internal/config"
	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/performance"
	"github.com/miosrv/mio/internal/ranking"
	"github.com/miosrv/mio/internal/webhook"
)

// Client-facing error bodies.
const (
	ResponseErrNo   = "error: no"
	ResponseErrPass = "error: pass"
)

// Engine runs the submission pipeline and the stats recomputation it
// shares with the recalculation tooling.
type Engine struct {
	db          *db.DB
	scores      *db.ScoreRepository
	stats       *db.StatsRepository
	users       *db.UserRepository
	punishments *db.PunishmentRepository
	maps        *beatmap.Resolver
	rank        *ranking.Client
	auth        *auth.Authenticator
	gateway     *GatewayClient
	alerts      *webhook.Notifier
	cfg         *config.Mio
}

// NewEngine wires the submission pipeline.
func NewEngine(database *db.DB, maps *beatmap.Resolver, rank *ranking.Client, authn *auth.Authenticator, gateway *GatewayClient, alerts *webhook.Notifier, cfg *config.Mio) *Engine {
	return &Engine{
		db:          database,
		scores:      db.NewScoreRepository(database),
		stats:       db.NewStatsRepository(database),
		users:       db.NewUserRepository(database),
		punishments: db.NewPunishmentRepository(database),
		maps:        maps,
		rank:        rank,
		auth:        authn,
		gateway:     gateway,
		alerts:      alerts,
		cfg:         cfg,
	}
}

// SubmitRequest carries the multipart fields of a submission.
type SubmitRequest struct {
	OsuVer    string
	ScoreB64  string
	IVB64     string
	Pass      string
	Quit      bool
	Replay    []byte
	HasReplay bool
}

// Submit processes one score submission and returns the response body
// the client expects: an error string or the chart payload.
func (e *Engine) Submit(ctx context.Context, req *SubmitRequest) string {
	plaintext, err := Decrypt(req.OsuVer, req.ScoreB64, req.IVB64)
	if err != nil {
		slog.Warn("decrypting submission", "err", err)
		return ResponseErrNo
	}
	sub, err := Parse(plaintext)
	if err != nil {
		slog.Warn("parsing submission", "err", err)
		return ResponseErrNo
	}

	user, err := e.auth.Authenticate(ctx, sub.PlayerName, req.Pass)
	if err != nil {
		slog.Error("authenticating submission", "err", err)
		return ResponseErrNo
	}
	if user == nil {
		return ResponseErrPass
	}

	bm, err := e.maps.ByChecksum(ctx, sub.BeatmapChecksum)
	if err != nil {
		slog.Error("resolving beatmap", "checksum", sub.BeatmapChecksum, "err", err)
		return ResponseErrNo
	}
	if bm == nil {
		slog.Warn("submission for unknown beatmap", "checksum", sub.BeatmapChecksum)
		return ResponseErrNo
	}

	mode := sub.EffectiveMode()
	pp := e.calculatePP(ctx, bm, sub)

	// PriorBest sees restricted holders too; their best must be
	// demoted like anyone else's, it is merely hidden from boards.
	bestStatus := osu.BestStatusFor(bm.Status)
	prior, err := e.scores.PriorBest(ctx, bm.Checksum, user.ID, sub.PlayMode, sub.Mods, bestStatus)
	if err != nil {
		slog.Error("querying prior best", "err", err)
		return ResponseErrNo
	}

	status, demotePrior := classify(prior, bm.Status, sub.Failed, req.Quit, pp)
	row := sub.Row(user.ID, status, pp, time.Now())

	statsBefore, err := e.stats.Get(ctx, user.ID, mode)
	if err != nil {
		slog.Error("loading stats", "err", err)
		return ResponseErrNo
	}
	rankBefore, err := e.rank.GlobalRank(ctx, user.ID, mode)
	if err != nil {
		slog.Warn("querying rank before submission", "err", err)
	}

	var scoreID int32
	var newPP float64
	err = e.db.WithTx(ctx, func(tx pgx.Tx) error {
		if demotePrior {
			if err := e.scores.Demote(ctx, tx, prior.Score.ID, prior.Score.Status.Demoted()); err != nil {
				return err
			}
		}
		id, err := e.scores.Insert(ctx, tx, row)
		if err != nil {
			return err
		}
		scoreID = id
		if status != osu.ScoreFailed {
			if err := e.stats.AddPlay(ctx, tx, user.ID, mode, sub.TotalScore, sub.MaxCombo); err != nil {
				return err
			}
		}
		newPP, err = e.recomputeAggregates(ctx, tx, user, mode)
		return err
	})
	if err != nil {
		slog.Error("persisting submission", "user", user.ID, "err", err)
		return ResponseErrNo
	}
	row.ID = scoreID

	e.persistReplay(ctx, req, sub, user, scoreID)
	e.updateRankings(ctx, user, mode, newPP)

	if status == osu.ScoreBest || status == osu.ScoreLovedBest {
		if err := e.rank.ClearGradeCounts(ctx, user.ID, mode); err != nil {
			slog.Warn("clearing grade counts", "user", user.ID, "err", err)
		}
	}

	rankAfter, err := e.rank.GlobalRank(ctx, user.ID, mode)
	if err != nil {
		slog.Warn("querying rank after submission", "err", err)
	}
	statsAfter, err := e.stats.Get(ctx, user.ID, mode)
	if err != nil {
		slog.Error("reloading stats", "err", err)
		return ResponseErrNo
	}

	newScore, err := e.scores.UserBest(ctx, bm.Checksum, user.ID, sub.PlayMode, sub.Mods, status)
	if err != nil {
		slog.Error("reloading submitted score", "err", err)
		return ResponseErrNo
	}
	beatmapRank := int64(0)
	if newScore != nil {
		beatmapRank = newScore.Rank
	}

	e.fanOut(ctx, user, bm, row, mode, pp, beatmapRank, statsBefore, statsAfter)

	return e.buildCharts(user, bm, prior, row, scoreID, rankBefore, rankAfter, beatmapRank, statsBefore, statsAfter)
}

// calculatePP fetches the beatmap file and runs the pure calculator.
// A missing file yields 0, matching the calculator's contract.
func (e *Engine) calculatePP(ctx context.Context, bm *model.Beatmap, sub *Submission) float64 {
	data, err := e.maps.File(ctx, bm.BeatmapID)
	if err != nil {
		slog.Warn("fetching beatmap file", "beatmap", bm.BeatmapID, "err", err)
		return 0
	}
	return performance.Calculate(data, sub.Play(), sub.MaxCombo)
}

// classify decides the new score's status and whether the prior best
// must be demoted.
func classify(prior *model.UserScore, bmStatus osu.BeatmapStatus, failed, quit bool, pp float64) (osu.ScoreStatus, bool) {
	if failed || quit {
		return osu.ScoreFailed, false
	}
	best := osu.BestStatusFor(bmStatus)
	if prior == nil {
		return best, false
	}
	if pp > prior.Score.Performance {
		return best, true
	}
	return osu.ScoreUnranked, false
}

// recomputeAggregates recomputes weighted pp, average accuracy and
// ranked score over the user's deduplicated best scores.
func (e *Engine) recomputeAggregates(ctx context.Context, ex db.Executor, user *model.User, mode osu.Mode) (float64, error) {
	best, err := e.scores.BestScores(ctx, ex, user.ID, mode, 0)
	if err != nil {
		return 0, err
	}

	var weighted, accSum float64
	var rankedScore int64
	for i, s := range best {
		weighted += s.Performance * math.Pow(0.95, float64(i))
		accSum += s.Accuracy()
		rankedScore += s.TotalScore
	}
	weighted = math.Round(weighted)

	avgAcc := 0.0
	if len(best) > 0 {
		avgAcc = accSum / float64(len(best)) / 100
	}
	if err := e.stats.SetAggregates(ctx, ex, user.ID, mode, weighted, avgAcc, rankedScore); err != nil {
		return 0, err
	}
	return weighted, nil
}

// RecomputeStats re-derives a user's aggregates for a mode and syncs
// the Redis boards, used by the gateway refresh and the recalculation
// terminal.
func (e *Engine) RecomputeStats(ctx context.Context, user *model.User, mode osu.Mode) error {
	pp, err := e.recomputeAggregates(ctx, e.db.Pool(), user, mode)
	if err != nil {
		return fmt.Errorf("recomputing stats for %d: %w", user.ID, err)
	}
	e.updateRankings(ctx, user, mode, pp)
	return nil
}

// updateRankings syncs the Redis boards after a stats change.
// Restricted users are removed instead of upserted.
func (e *Engine) updateRankings(ctx context.Context, user *model.User, mode osu.Mode, pp float64) {
	if user.IsRestricted() {
		if err := e.rank.RemoveRanking(ctx, user, mode); err != nil {
			slog.Warn("removing restricted user from rankings", "user", user.ID, "err", err)
		}
		return
	}
	if err := e.rank.UpsertRanking(ctx, user, mode, int64(pp)); err != nil {
		slog.Warn("updating rankings", "user", user.ID, "err", err)
	}
}

// persistReplay stores the uploaded replay, or restricts the user
// when a passed play arrives without one.
func (e *Engine) persistReplay(ctx context.Context, req *SubmitRequest, sub *Submission, user *model.User, scoreID int32) {
	if req.HasReplay {
		dir := e.cfg.ReplaysDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("creating replays dir", "err", err)
			return
		}
		path := filepath.Join(dir, fmt.Sprintf("%d.osr_frames", scoreID))
		if err := os.WriteFile(path, req.Replay, 0o644); err != nil {
			slog.Error("writing replay", "score", scoreID, "err", err)
		}
		return
	}
	if sub.Failed || req.Quit {
		return
	}
	e.restrict(ctx, user, "Hasn't sent a replay file.")
}

// restrict inserts a CRITICAL restriction, flips the permission bit
// and tells the gateway so the live session reacts.
func (e *Engine) restrict(ctx context.Context, user *model.User, note string) {
	p := &model.Punishment{
		AppliedBy:      1,
		AppliedTo:      user.ID,
		PunishmentType: model.PunishmentRestriction,
		Level:          model.PunishmentCritical,
		Note:           note,
	}
	if err := e.punishments.Insert(ctx, p); err != nil {
		slog.Error("inserting punishment", "user", user.ID, "err", err)
	}
	if err := e.users.SetRestricted(ctx, user.ID, true); err != nil {
		slog.Error("restricting user", "user", user.ID, "err", err)
	}
	user.Permissions |= model.PermRestricted
	e.alerts.PunishmentAlert(ctx, user.Username, user.ID, model.PunishmentRestriction, model.PunishmentCritical, note)
	e.gateway.Update(ctx, "user:restricted", user.ID)
}

// fanOut handles the post-commit notifications: session refresh,
// rank-1 announcements, the pp cap and the relax pp popup.
func (e *Engine) fanOut(ctx context.Context, user *model.User, bm *model.Beatmap, row *model.Score, mode osu.Mode, pp float64, beatmapRank int64, before, after *model.UserStats) {
	e.gateway.Update(ctx, "user:refresh", user.ID)

	isBest := row.Status == osu.ScoreBest || row.Status == osu.ScoreLovedBest
	if beatmapRank == 1 && !user.IsRestricted() && isBest {
		if performance.CapReached(pp, mode, user.IsVerified()) {
			e.restrict(ctx, user, fmt.Sprintf("user has reached pp cap (score_id: %d).", row.ID))
			return
		}
		ppSuffix := ""
		if bm.Status == osu.BeatmapRanked {
			ppSuffix = fmt.Sprintf(" (%.2fpp)", pp)
		}
		msg := fmt.Sprintf("[https://%s/users/%d %s] has just achieved #1%s on [https://%s/b/%d %s - %s [%s]] (%s)",
			e.cfg.ServerURL, user.ID, user.Username, ppSuffix,
			e.cfg.ServerURL, bm.BeatmapID, bm.Artist, bm.Title, bm.Version, mode)
		e.gateway.Notify(ctx, msg, "chat", "#announce")
	}

	if mode == osu.ModeRelax && row.Status == osu.ScoreBest {
		msg := fmt.Sprintf("Submitted %.2fpp (+%.2f)", pp, after.Performance-before.Performance)
		e.gateway.Notify(ctx, msg, "notification", user.Username)
	}
}

// buildCharts renders the two-record response payload.
func (e *Engine) buildCharts(user *model.User, bm *model.Beatmap, prior *model.UserScore, row *model.Score, scoreID int32, rankBefore, rankAfter, beatmapRank int64, before, after *model.UserStats) string {
	beatmapChart := &Chart{
		ID:          "beatmap",
		URL:         fmt.Sprintf("https://%s/b/%d", e.cfg.ServerURL, bm.BeatmapID),
		Name:        "Beatmap Ranking",
		ScoreID:     scoreID,
		RankAfter:   beatmapRank,
		ComboAfter:  row.MaxCombo,
		AccAfter:    row.Accuracy(),
		RankedAfter: row.TotalScore,
		TotalAfter:  row.TotalScore,
		PPAfter:     row.Performance,
	}
	if prior != nil {
		beatmapChart.RankBefore = prior.Rank
		beatmapChart.ComboBefore = prior.Score.MaxCombo
		beatmapChart.AccBefore = prior.Score.Accuracy()
		beatmapChart.RankedBefore = prior.Score.TotalScore
		beatmapChart.TotalBefore = prior.Score.TotalScore
		beatmapChart.PPBefore = prior.Score.Performance
	}

	overall := &Chart{
		ID:           "overall",
		URL:          fmt.Sprintf("https://%s/u/%d", e.cfg.ServerURL, user.ID),
		Name:         "Overall Ranking",
		ScoreID:      scoreID,
		RankBefore:   rankBefore,
		RankAfter:    rankAfter,
		ComboBefore:  before.MaxCombo,
		ComboAfter:   after.MaxCombo,
		AccBefore:    before.AvgAccuracy * 100,
		AccAfter:     after.AvgAccuracy * 100,
		RankedBefore: before.RankedScore,
		RankedAfter:  after.RankedScore,
		TotalBefore:  before.TotalScore,
		TotalAfter:   after.TotalScore,
		PPBefore:     before.Performance,
		PPAfter:      after.Performance,
	}
	return BuildChart(bm, beatmapChart, overall)
}
