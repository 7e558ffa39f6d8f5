package bancho

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/packet"
)

// statsPacket renders the stats update for a presence from its stored
// aggregates and live Redis rank.
func (g *Gateway) statsPacket(ctx context.Context, p *Presence) ([]byte, error) {
	action := p.Status()
	mode := osu.EffectiveMode(osu.ModeFromID(action.Mode), osu.Mods(action.Mods))

	stats, err := g.stats.Get(ctx, p.User.ID, mode)
	if err != nil {
		return nil, fmt.Errorf("loading stats for %d: %w", p.User.ID, err)
	}
	rank, err := g.rank.GlobalRank(ctx, p.User.ID, mode)
	if err != nil {
		slog.Warn("querying rank for stats packet", "user", p.User.ID, "err", err)
	}

	return packet.UserStats(packet.UserStatsData{
		UserID:      p.User.ID,
		Action:      action.OnlineStatus,
		Description: action.Description,
		BeatmapMD5:  action.BeatmapMD5,
		Mods:        action.Mods,
		Mode:        action.Mode,
		BeatmapID:   action.BeatmapID,
		RankedScore: stats.RankedScore,
		Accuracy:    float32(stats.AvgAccuracy),
		Playcount:   stats.Playcount,
		TotalScore:  stats.TotalScore,
		Rank:        int32(rank),
		Performance: int16(stats.Performance),
	}), nil
}

// presencePacket renders the presence advertisement for a session.
func (g *Gateway) presencePacket(ctx context.Context, p *Presence) []byte {
	action := p.Status()
	mode := osu.EffectiveMode(osu.ModeFromID(action.Mode), osu.Mods(action.Mods))

	rank, err := g.rank.GlobalRank(ctx, p.User.ID, mode)
	if err != nil {
		slog.Warn("querying rank for presence packet", "user", p.User.ID, "err", err)
	}

	privileges := uint8(1)
	if p.User.IsManager() {
		privileges |= 4
	}

	return packet.UserPresence(packet.UserPresenceData{
		UserID:      p.User.ID,
		Username:    p.User.Username,
		UTCOffset:   p.UTCOffset,
		CountryCode: p.CountryByte,
		Privileges:  privileges,
		Longitude:   p.Lon,
		Latitude:    p.Lat,
		Rank:        int32(rank),
	})
}
