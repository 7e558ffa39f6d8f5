package bancho

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/miosrv/mio/internal/beatmap"
	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/packet"
	"github.com/miosrv/mio/internal/performance"
)

// npLink extracts the beatmap id from a /np action message.
var npLink = regexp.MustCompile(`/b/(\d+)|#/(\d+)`)

// Bot is the in-server chat assistant. It answers commands and keeps
// a per-user memory of the last announced beatmap.
type Bot struct {
	g *Gateway

	mu      sync.Mutex
	lastMap map[int32]int32
}

// NewBot creates the bot over the gateway.
func NewBot(g *Gateway) *Bot {
	return &Bot{g: g, lastMap: make(map[int32]int32)}
}

// DM enqueues a private message from the bot to the target presence.
func (b *Bot) DM(target *Presence, message string) {
	bot := b.g.registry.Bot()
	if bot == nil {
		return
	}
	target.Enqueue(packet.SendMessage(packet.Message{
		Sender:   bot.User.Username,
		Content:  message,
		Target:   target.User.Username,
		SenderID: bot.User.ID,
	}))
}

// Announce posts a message from the bot into a public channel.
func (b *Bot) Announce(channel, message string) {
	bot := b.g.registry.Bot()
	if bot == nil {
		return
	}
	c := b.g.channels.Get(channel)
	if c == nil {
		return
	}
	out := packet.SendMessage(packet.Message{
		Sender:   bot.User.Username,
		Content:  message,
		Target:   channel,
		SenderID: bot.User.ID,
	})
	for _, member := range c.membersSnapshot() {
		member.Enqueue(out)
	}
}

// HandlePrivate processes a direct message to the bot: a /np action
// records the beatmap, a bang command runs and replies in the DM.
func (b *Bot) HandlePrivate(ctx context.Context, sender *Presence, msg packet.Message) {
	if strings.HasPrefix(msg.Content, "\x01ACTION") {
		b.handleNowPlaying(ctx, sender, msg.Content)
		return
	}
	if reply := b.run(ctx, sender, msg.Content); reply != "" {
		b.DM(sender, reply)
	}
}

// HandlePublic processes a bang command issued in a channel and
// replies there.
func (b *Bot) HandlePublic(ctx context.Context, sender *Presence, msg packet.Message) {
	if reply := b.run(ctx, sender, msg.Content); reply != "" {
		b.Announce(msg.Target, reply)
	}
}

func (b *Bot) run(ctx context.Context, sender *Presence, content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	args := fields[1:]

	switch fields[0] {
	case "!help":
		return "Commands: !roll [max], !with <mods>, !acc <percent>, !map <ranked|loved|unranked> <set|map>, !restrict <user> [note]. Send me a /np first for the map commands."
	case "!roll":
		return b.roll(sender, args)
	case "!with":
		return b.with(ctx, sender, args)
	case "!acc":
		return b.accuracy(ctx, sender, args)
	case "!map":
		return b.moderateMap(ctx, sender, args)
	case "!restrict":
		return b.restrict(ctx, sender, args)
	default:
		return ""
	}
}

func (b *Bot) roll(sender *Presence, args []string) string {
	limit := 100
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	return fmt.Sprintf("%s rolls %d points!", sender.User.Username, rand.Intn(limit))
}

// handleNowPlaying records the linked beatmap and replies with a
// full-combo pp sweep.
func (b *Bot) handleNowPlaying(ctx context.Context, sender *Presence, content string) {
	m := npLink.FindStringSubmatch(content)
	if m == nil {
		b.DM(sender, "I could not find a beatmap link in that.")
		return
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.lastMap[sender.User.ID] = int32(id)
	b.mu.Unlock()

	action := sender.Status()
	b.DM(sender, b.estimate(ctx, int32(id), osu.Mods(action.Mods), osu.ModeFromID(action.Mode)))
}

func (b *Bot) with(ctx context.Context, sender *Presence, args []string) string {
	if len(args) == 0 {
		return "Usage: !with <mods>, e.g. !with HDDT"
	}
	id, ok := b.recalled(sender)
	if !ok {
		return "Send me a /np first."
	}
	action := sender.Status()
	return b.estimate(ctx, id, osu.ParseMods(args[0]), osu.ModeFromID(action.Mode))
}

func (b *Bot) accuracy(ctx context.Context, sender *Presence, args []string) string {
	if len(args) == 0 {
		return "Usage: !acc <percent>, e.g. !acc 97.5"
	}
	acc, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "%"), 64)
	if err != nil || acc <= 0 || acc > 100 {
		return "That is not an accuracy I can work with."
	}
	id, ok := b.recalled(sender)
	if !ok {
		return "Send me a /np first."
	}

	action := sender.Status()
	data, err := b.g.maps.File(ctx, id)
	if err != nil {
		slog.Warn("fetching beatmap for estimate", "beatmap", id, "err", err)
		return "I could not fetch that beatmap."
	}
	est := performance.ForAccuracies(data, osu.Mods(action.Mods), osu.ModeFromID(action.Mode), []float64{acc})
	if len(est) == 0 {
		return "I could not parse that beatmap."
	}
	return fmt.Sprintf("%.2f%%: %.2fpp (%.2f*)", acc, est[0].PP, est[0].Stars)
}

func (b *Bot) recalled(sender *Presence) (int32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.lastMap[sender.User.ID]
	return id, ok
}

// estimate renders the standard 98/99/100% full-combo sweep.
func (b *Bot) estimate(ctx context.Context, beatmapID int32, mods osu.Mods, mode osu.Mode) string {
	bm, err := b.g.maps.ByID(ctx, beatmapID)
	if err != nil || bm == nil {
		return "I do not know that beatmap."
	}
	data, err := b.g.maps.File(ctx, beatmapID)
	if err != nil {
		slog.Warn("fetching beatmap for estimate", "beatmap", beatmapID, "err", err)
		return "I could not fetch that beatmap."
	}
	ests := performance.ForAccuracies(data, mods, mode, []float64{98, 99, 100})
	if len(ests) < 3 {
		return "I could not parse that beatmap."
	}
	return fmt.Sprintf("%s [%s] +%s | 98%%: %.2fpp | 99%%: %.2fpp | 100%%: %.2fpp | %.2f*",
		beatmap.Title(bm), bm.Version, mods.Format(),
		ests[0].PP, ests[1].PP, ests[2].PP, ests[2].Stars)
}

// moderateMap changes the ranked status of the last /np'd beatmap or
// its whole set. Moderators only.
func (b *Bot) moderateMap(ctx context.Context, sender *Presence, args []string) string {
	if !sender.User.IsBeatmapModerator() {
		return "You are not allowed to do that."
	}
	if len(args) < 2 {
		return "Usage: !map <ranked|loved|unranked> <set|map>"
	}

	var status osu.BeatmapStatus
	switch args[0] {
	case "ranked":
		status = osu.BeatmapRanked
	case "loved":
		status = osu.BeatmapLoved
	case "unranked":
		status = osu.BeatmapPending
	default:
		return "Usage: !map <ranked|loved|unranked> <set|map>"
	}

	id, ok := b.recalled(sender)
	if !ok {
		return "Send me a /np first."
	}
	bm, err := b.g.beatmaps.ByID(ctx, id)
	if err != nil || bm == nil {
		return "I do not know that beatmap."
	}

	var checksums []string
	scope := "difficulty"
	switch args[1] {
	case "set":
		scope = "set"
		checksums, err = b.g.beatmaps.SetStatusBySet(ctx, bm.ParentID, status)
		if err != nil {
			slog.Error("updating set status", "set", bm.ParentID, "err", err)
			return "Something went wrong."
		}
	case "map":
		if err := b.g.beatmaps.SetStatusByChecksum(ctx, bm.Checksum, status); err != nil {
			slog.Error("updating beatmap status", "beatmap", bm.BeatmapID, "err", err)
			return "Something went wrong."
		}
		checksums = []string{bm.Checksum}
	default:
		return "Usage: !map <ranked|loved|unranked> <set|map>"
	}

	if err := b.g.scores.UnrankBestOnBeatmaps(ctx, checksums); err != nil {
		slog.Error("unranking best scores", "err", err)
	}

	msg := fmt.Sprintf("[https://%s/b/%d %s [%s]] (%s) is now %s by %s",
		b.g.cfg.ServerURL, bm.BeatmapID, beatmap.Title(bm), bm.Version, scope,
		status, sender.User.Username)
	b.Announce("#announce", msg)
	return fmt.Sprintf("Done, %s is now %s.", scope, status)
}

// restrict toggles a restriction by name or id. Managers only.
// Restricting records a critical punishment; unrestricting lifts all
// outstanding punishments.
func (b *Bot) restrict(ctx context.Context, sender *Presence, args []string) string {
	if !sender.User.IsManager() {
		return "You are not allowed to do that."
	}
	if len(args) == 0 {
		return "Usage: !restrict <user> [note]"
	}

	target, err := b.g.users.FindByTerm(ctx, args[0])
	if err != nil {
		slog.Error("resolving restriction target", "term", args[0], "err", err)
		return "Something went wrong."
	}
	if target == nil {
		return fmt.Sprintf("I do not know %q.", args[0])
	}

	if target.IsRestricted() {
		b.g.unrestrictUser(ctx, target)
		return fmt.Sprintf("%s is no longer restricted.", target.Username)
	}

	note := strings.Join(args[1:], " ")
	if note == "" {
		note = "Restricted via chat command."
	}
	b.g.restrictUser(ctx, sender.User.ID, target, note)
	return fmt.Sprintf("%s is now restricted.", target.Username)
}

// restrictUser flips the permission bit, records the punishment,
// clears the boards and updates the live session if one exists.
func (g *Gateway) restrictUser(ctx context.Context, appliedBy int32, target *model.User, note string) {
	p := &model.Punishment{
		AppliedBy:      appliedBy,
		AppliedTo:      target.ID,
		PunishmentType: model.PunishmentRestriction,
		Level:          model.PunishmentCritical,
		Note:           note,
	}
	if err := g.punishments.Insert(ctx, p); err != nil {
		slog.Error("inserting punishment", "user", target.ID, "err", err)
	}
	if err := g.users.SetRestricted(ctx, target.ID, true); err != nil {
		slog.Error("restricting user", "user", target.ID, "err", err)
	}
	target.Permissions |= model.PermRestricted
	g.rank.RemoveAllRankings(ctx, target)
	g.alerts.PunishmentAlert(ctx, target.Username, target.ID, model.PunishmentRestriction, model.PunishmentCritical, note)
	g.applyRestriction(ctx, target.ID)
}

// unrestrictUser lifts the restriction and every outstanding
// punishment. The boards repopulate on the user's next submission.
func (g *Gateway) unrestrictUser(ctx context.Context, target *model.User) {
	if err := g.punishments.LiftAll(ctx, target.ID); err != nil {
		slog.Error("lifting punishments", "user", target.ID, "err", err)
	}
	if err := g.users.SetRestricted(ctx, target.ID, false); err != nil {
		slog.Error("unrestricting user", "user", target.ID, "err", err)
	}
	target.Permissions &^= model.PermRestricted
	g.applyRestriction(ctx, target.ID)
}

// applyRestriction syncs a live session after its account's
// restriction state changed. Restriction hides the session from
// everyone else; lifting it re-advertises the user.
func (g *Gateway) applyRestriction(ctx context.Context, userID int32) {
	p := g.registry.ByID(userID)
	if p == nil {
		return
	}
	fresh, err := g.users.GetByID(ctx, userID)
	if err != nil || fresh == nil {
		slog.Warn("reloading restricted user", "user", userID, "err", err)
		return
	}
	p.User.Permissions = fresh.Permissions
	p.User.Flags = fresh.Flags

	if p.User.IsRestricted() {
		if host := p.Spectating(); host != nil {
			host.RemoveSpectator(p)
			host.Enqueue(packet.SpectatorLeft(p.User.ID))
		}
		for _, s := range p.Spectators() {
			p.RemoveSpectator(s)
		}
		g.registry.Broadcast(packet.UserLogout(userID), userID)
		g.bot.DM(p, "Your account has been restricted. Please log in again; your profile is hidden and your scores do not count until the restriction is lifted.")
		return
	}

	if stats, err := g.statsPacket(ctx, p); err == nil {
		p.Enqueue(stats)
		g.registry.Broadcast(stats, userID)
	}
	g.bot.DM(p, "Your restriction has been lifted. Welcome back.")
}
