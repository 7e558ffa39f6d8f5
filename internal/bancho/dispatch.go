package bancho

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/miosrv/mio/internal/packet"
)

// Spam moderation: this many identical consecutive messages earns
// this much silence.
const (
	repeatThreshold = 5
	repeatSilence   = 600 * time.Second
)

// handleFrames runs one packet batch through the dispatch table.
// Responses accumulate on the presence queue.
func (g *Gateway) handleFrames(ctx context.Context, p *Presence, body []byte) {
	p.Touch()

	frames, err := packet.ReadFrames(body)
	if err != nil {
		slog.Warn("reading frames", "user", p.User.ID, "err", err)
	}
	for _, f := range frames {
		g.dispatch(ctx, p, f)
	}
}

func (g *Gateway) dispatch(ctx context.Context, p *Presence, f packet.Frame) {
	switch f.ID {
	case packet.OsuPing:
		// Touch already happened; nothing to answer.

	case packet.OsuUserChangeAction:
		g.handleChangeAction(ctx, p, f.Payload)

	case packet.OsuUserLogout:
		g.registry.Dispose(p.Token, g.channels)

	case packet.OsuUserRequestStatusUpdate:
		if stats, err := g.statsPacket(ctx, p); err != nil {
			slog.Error("building stats", "user", p.User.ID, "err", err)
		} else {
			p.Enqueue(stats)
		}

	case packet.OsuUserChannelJoin:
		g.handleChannelJoin(p, f.Payload)

	case packet.OsuUserChannelPart:
		g.handleChannelPart(p, f.Payload)

	case packet.OsuSendPublicMessage:
		g.handlePublicMessage(ctx, p, f.Payload)

	case packet.OsuSendPrivateMessage:
		g.handlePrivateMessage(ctx, p, f.Payload)

	case packet.OsuUserStatsRequest:
		g.handleStatsRequest(ctx, p, f.Payload)

	case packet.OsuUserPresenceRequest:
		g.handlePresenceRequest(ctx, p, f.Payload)

	case packet.OsuFriendAdd:
		g.handleFriend(ctx, p, f.Payload, true)

	case packet.OsuFriendRemove:
		g.handleFriend(ctx, p, f.Payload, false)

	case packet.OsuSpectateStart:
		g.handleSpectateStart(p, f.Payload)

	case packet.OsuSpectateStop:
		g.handleSpectateStop(p)

	case packet.OsuSpectateFrames:
		g.handleSpectateFrames(p, f.Payload)

	case packet.OsuCantSpectate:
		if host := p.Spectating(); host != nil {
			host.Enqueue(packet.SpectatorCantSpectate(p.User.ID))
		}

	case packet.OsuErrorReport:
		slog.Warn("client error report", "user", p.User.ID)

	default:
		slog.Debug("unhandled packet", "id", f.ID, "user", p.User.ID)
	}
}

func (g *Gateway) handleChangeAction(ctx context.Context, p *Presence, payload []byte) {
	action, err := packet.ParseChangeAction(payload)
	if err != nil {
		slog.Warn("parsing change action", "user", p.User.ID, "err", err)
		return
	}
	p.SetStatus(action)

	stats, err := g.statsPacket(ctx, p)
	if err != nil {
		slog.Error("building stats", "user", p.User.ID, "err", err)
		return
	}
	p.Enqueue(stats)
	if !p.User.IsRestricted() {
		g.registry.Broadcast(stats, p.User.ID)
	}
}

func (g *Gateway) handleChannelJoin(p *Presence, payload []byte) {
	name, err := packet.NewReader(payload).ReadString()
	if err != nil {
		return
	}
	if name == "#spectator" {
		host := p.Spectating()
		if host == nil {
			host = p
		}
		g.channels.CreatePrivate(spectatorChannel(host.User.ID), "Spectator chat")
		g.channels.Join(spectatorChannel(host.User.ID), p)
		return
	}
	if !g.channels.Join(name, p) {
		slog.Debug("join of unknown channel", "channel", name, "user", p.User.ID)
	}
}

func (g *Gateway) handleChannelPart(p *Presence, payload []byte) {
	name, err := packet.NewReader(payload).ReadString()
	if err != nil {
		return
	}
	if name == "#spectator" {
		host := p.Spectating()
		if host == nil {
			host = p
		}
		name = spectatorChannel(host.User.ID)
	}
	g.channels.Part(name, p)
}

func (g *Gateway) handlePublicMessage(ctx context.Context, p *Presence, payload []byte) {
	msg, err := packet.ParseMessage(payload)
	if err != nil {
		slog.Warn("parsing message", "user", p.User.ID, "err", err)
		return
	}
	if p.SilencedFor() > 0 {
		return
	}
	if p.TrackRepeat(msg.Content, repeatThreshold) {
		p.Silence(repeatSilence)
		p.Enqueue(packet.SilenceEnd(int32(repeatSilence.Seconds())))
		g.registry.Broadcast(packet.UserSilenced(p.User.ID))
		return
	}

	if !g.channels.SendPublic(p, msg) {
		return
	}
	if strings.HasPrefix(msg.Content, "!") {
		g.bot.HandlePublic(ctx, p, msg)
	}
}

func (g *Gateway) handlePrivateMessage(ctx context.Context, p *Presence, payload []byte) {
	msg, err := packet.ParseMessage(payload)
	if err != nil {
		slog.Warn("parsing message", "user", p.User.ID, "err", err)
		return
	}
	if p.SilencedFor() > 0 {
		return
	}
	if bot := g.registry.Bot(); bot != nil && msg.Target == bot.User.Username {
		g.bot.HandlePrivate(ctx, p, msg)
		return
	}
	g.channels.SendPrivate(p, msg)
}

func (g *Gateway) handleStatsRequest(ctx context.Context, p *Presence, payload []byte) {
	ids, err := packet.NewReader(payload).ReadInt32List()
	if err != nil {
		return
	}
	for _, id := range ids {
		if id == p.User.ID {
			continue
		}
		other := g.registry.ByID(id)
		if other == nil || other.User.IsRestricted() {
			continue
		}
		if stats, err := g.statsPacket(ctx, other); err == nil {
			p.Enqueue(stats)
		}
	}
}

func (g *Gateway) handlePresenceRequest(ctx context.Context, p *Presence, payload []byte) {
	ids, err := packet.NewReader(payload).ReadInt32List()
	if err != nil {
		return
	}
	for _, id := range ids {
		other := g.registry.ByID(id)
		if other == nil || other.User.IsRestricted() {
			continue
		}
		p.Enqueue(g.presencePacket(ctx, other))
	}
}

func (g *Gateway) handleFriend(ctx context.Context, p *Presence, payload []byte, add bool) {
	id, err := packet.NewReader(payload).ReadInt32()
	if err != nil {
		return
	}
	if add {
		g.logError("adding friend", g.friends.Add(ctx, p.User.ID, id))
	} else {
		g.logError("removing friend", g.friends.Remove(ctx, p.User.ID, id))
	}
}

func (g *Gateway) handleSpectateStart(p *Presence, payload []byte) {
	hostID, err := packet.NewReader(payload).ReadInt32()
	if err != nil {
		return
	}
	host := g.registry.ByID(hostID)
	if host == nil || host == p {
		return
	}
	if current := p.Spectating(); current != nil {
		g.detachSpectator(current, p)
	}

	host.AddSpectator(p)
	host.Enqueue(packet.SpectatorJoined(p.User.ID))
	for _, fellow := range host.Spectators() {
		if fellow.User.ID != p.User.ID {
			fellow.Enqueue(packet.FellowSpectatorJoined(p.User.ID))
		}
	}

	room := spectatorChannel(host.User.ID)
	g.channels.CreatePrivate(room, "Spectator chat")
	g.channels.Join(room, host)
	g.channels.Join(room, p)
}

func (g *Gateway) handleSpectateStop(p *Presence) {
	host := p.Spectating()
	if host == nil {
		return
	}
	g.detachSpectator(host, p)
}

func (g *Gateway) detachSpectator(host, p *Presence) {
	host.RemoveSpectator(p)
	host.Enqueue(packet.SpectatorLeft(p.User.ID))
	for _, fellow := range host.Spectators() {
		fellow.Enqueue(packet.FellowSpectatorLeft(p.User.ID))
	}
	g.channels.Part(spectatorChannel(host.User.ID), p)
}

func (g *Gateway) handleSpectateFrames(p *Presence, payload []byte) {
	spectators := p.Spectators()
	if len(spectators) == 0 {
		return
	}
	out := packet.SpectateFrames(payload)
	for _, s := range spectators {
		s.Enqueue(out)
	}
}
