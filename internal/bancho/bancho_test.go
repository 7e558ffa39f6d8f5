package bancho

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/packet"
	"github.com/miosrv/mio/internal/testutil"
)

func testUser(id int32, name string) *model.User {
	return &model.User{ID: id, Username: name, UsernameSafe: model.ToSafe(name)}
}

func TestRegistryAddAndLookup(t *testing.T) {
	r := NewRegistry()
	p := r.Add(testUser(7, "Player One"))

	assert.Same(t, p, r.ByToken(p.Token))
	assert.Same(t, p, r.ByID(7))
	assert.Same(t, p, r.BySafeName("player_one"))
	assert.Equal(t, 1, r.Count())
}

func TestRegistryReplacesExistingSession(t *testing.T) {
	r := NewRegistry()
	old := r.Add(testUser(7, "Player One"))
	old.Silence(10 * time.Minute)

	fresh := r.Add(testUser(7, "Player One"))
	assert.Nil(t, r.ByToken(old.Token))
	assert.Same(t, fresh, r.ByID(7))
	assert.Equal(t, 1, r.Count())

	// A relog does not clear an active silence.
	assert.Greater(t, fresh.SilencedFor(), 9*time.Minute)
}

func TestRegistryBotExcludedFromCountAndBroadcast(t *testing.T) {
	r := NewRegistry()
	bot := r.InitBot(testUser(1, "Mio"))
	p := r.Add(testUser(7, "Player One"))

	assert.Equal(t, 1, r.Count())

	r.Broadcast([]byte{1, 2, 3})
	assert.Empty(t, bot.Dequeue())
	assert.Equal(t, []byte{1, 2, 3}, p.Dequeue())

	r.Broadcast([]byte{9}, 7)
	assert.Empty(t, p.Dequeue())
}

func TestRegistryDisposeCleansUp(t *testing.T) {
	r := NewRegistry()
	m := NewChannelManager(r)
	m.Register("#osu", "general", channelPublic)

	host := r.Add(testUser(7, "Host"))
	spec := r.Add(testUser(8, "Spec"))
	other := r.Add(testUser(9, "Other"))
	m.Join("#osu", spec)
	host.AddSpectator(spec)
	spec.Dequeue()
	other.Dequeue()

	r.Dispose(spec.Token, m)

	assert.Nil(t, r.ByID(8))
	assert.Empty(t, host.Spectators())
	assert.Equal(t, uint16(0), m.Get("#osu").memberCount())
	// Host gets the spectator-left, everyone gets the logout.
	assert.Contains(t, testutil.FrameIDs(t, host.Dequeue()), uint16(packet.BanchoSpectatorLeft))
	assert.Contains(t, testutil.FrameIDs(t, other.Dequeue()), uint16(packet.BanchoUserLogout))
}

func TestRegistrySweepDisposesStaleSessions(t *testing.T) {
	r := NewRegistry()
	m := NewChannelManager(r)

	stale := r.Add(testUser(7, "Stale"))
	fresh := r.Add(testUser(8, "Fresh"))

	stale.pingMu.Lock()
	stale.lastPing = time.Now().Add(-2 * presenceTTL)
	stale.pingMu.Unlock()

	r.Sweep(m)

	assert.Nil(t, r.ByID(7))
	assert.Same(t, fresh, r.ByID(8))
}

func TestChannelJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	m := NewChannelManager(r)
	m.Register("#osu", "general", channelPublic)
	p := r.Add(testUser(7, "Player"))

	require.True(t, m.Join("#osu", p))
	first := p.Dequeue()
	require.True(t, m.Join("#osu", p))
	assert.Equal(t, first, p.Dequeue())
	assert.Equal(t, uint16(1), m.Get("#osu").memberCount())

	assert.False(t, m.Join("#missing", p))
}

func TestSendPublicSkipsSenderAndRestricted(t *testing.T) {
	r := NewRegistry()
	m := NewChannelManager(r)
	m.Register("#osu", "general", channelPublic)

	sender := r.Add(testUser(7, "Sender"))
	receiver := r.Add(testUser(8, "Receiver"))
	m.Join("#osu", sender)
	m.Join("#osu", receiver)
	sender.Dequeue()
	receiver.Dequeue()

	ok := m.SendPublic(sender, packet.Message{Content: "hi", Target: "#osu"})
	require.True(t, ok)
	assert.Empty(t, sender.Dequeue())
	assert.NotEmpty(t, receiver.Dequeue())

	sender.User.Permissions = model.PermRestricted
	assert.False(t, m.SendPublic(sender, packet.Message{Content: "hi", Target: "#osu"}))
	assert.Empty(t, receiver.Dequeue())
}

func TestSendPublicRewritesSpectatorAlias(t *testing.T) {
	r := NewRegistry()
	m := NewChannelManager(r)

	host := r.Add(testUser(7, "Host"))
	spec := r.Add(testUser(8, "Spec"))
	host.AddSpectator(spec)
	m.CreatePrivate(spectatorChannel(7), "Spectator chat")
	m.Join(spectatorChannel(7), host)
	m.Join(spectatorChannel(7), spec)
	host.Dequeue()
	spec.Dequeue()

	require.True(t, m.SendPublic(spec, packet.Message{Content: "hi", Target: "#spectator"}))
	assert.NotEmpty(t, host.Dequeue())
	assert.Empty(t, spec.Dequeue())
}

func TestSendPrivateDropsRestrictedRecipient(t *testing.T) {
	r := NewRegistry()
	m := NewChannelManager(r)
	bot := r.InitBot(testUser(1, "Mio"))

	sender := r.Add(testUser(7, "Sender"))
	target := r.Add(testUser(8, "Target"))
	target.User.Permissions = model.PermRestricted

	m.SendPrivate(sender, packet.Message{Content: "hi", Target: "Target"})
	assert.Empty(t, target.Dequeue())

	m.SendPrivate(bot, packet.Message{Content: "hi", Target: "Target"})
	frames := testutil.ParseFrames(t, target.Dequeue())
	require.Len(t, frames, 1)
	assert.Equal(t, uint16(packet.BanchoSendMessage), frames[0].ID)
}

func TestPresenceTrackRepeat(t *testing.T) {
	p := newPresence("t", testUser(7, "Player"))

	// The first message starts the streak; only repeats count.
	for i := 0; i < repeatThreshold; i++ {
		assert.False(t, p.TrackRepeat("spam", repeatThreshold))
	}
	assert.True(t, p.TrackRepeat("spam", repeatThreshold))

	// A different message resets the streak.
	assert.False(t, p.TrackRepeat("fresh", repeatThreshold))
	assert.False(t, p.TrackRepeat("spam", repeatThreshold))
}

func TestPresenceQueueSwap(t *testing.T) {
	p := newPresence("t", testUser(7, "Player"))
	p.Enqueue([]byte{1})
	p.Enqueue([]byte{2, 3})

	assert.Equal(t, []byte{1, 2, 3}, p.Dequeue())
	assert.Empty(t, p.Dequeue())
}

func TestSpectatorLinks(t *testing.T) {
	host := newPresence("h", testUser(7, "Host"))
	spec := newPresence("s", testUser(8, "Spec"))

	host.AddSpectator(spec)
	assert.Same(t, host, spec.Spectating())
	require.Len(t, host.Spectators(), 1)

	host.RemoveSpectator(spec)
	assert.Nil(t, spec.Spectating())
	assert.Empty(t, host.Spectators())
}

func TestParseLogin(t *testing.T) {
	body := "Player One\n0cc175b9c0f1b6a831c399e269772661\nb20230326|5|0|plainhash:mac-addr:uid-hash:disk-hash:|0\n"
	req, err := parseLogin(body)
	require.NoError(t, err)

	assert.Equal(t, "Player One", req.Username)
	assert.Equal(t, "0cc175b9c0f1b6a831c399e269772661", req.PasswordMD5)
	assert.Equal(t, "b20230326", req.Version)
	assert.Equal(t, uint8(5), req.UTCOffset)
	assert.Equal(t, "plainhash", req.HWID.Plain)
	assert.Equal(t, "mac-addr", req.HWID.MAC)
	assert.Equal(t, "uid-hash", req.HWID.UID)
	assert.Equal(t, "disk-hash", req.HWID.Disk)
}

func TestParseLoginRejectsMalformedBodies(t *testing.T) {
	_, err := parseLogin("only-one-line")
	assert.Error(t, err)

	_, err = parseLogin("user\npass\nnot-enough-fields")
	assert.Error(t, err)

	_, err = parseLogin("user\npass\nver|5|0|tooshort|0")
	assert.Error(t, err)
}

func TestCountryByte(t *testing.T) {
	assert.Equal(t, uint8(0), countryByte("XX"))
	assert.Equal(t, uint8(0), countryByte("not-a-code"))
	assert.NotZero(t, countryByte("US"))
	assert.NotZero(t, countryByte("DE"))
	assert.NotEqual(t, countryByte("US"), countryByte("DE"))
}

func TestNowPlayingLinkExtraction(t *testing.T) {
	m := npLink.FindStringSubmatch("\x01ACTION is listening to [https://osu.example.com/b/1234 Artist - Title [Hard]]\x01")
	require.NotNil(t, m)
	assert.Equal(t, "1234", m[1])

	m = npLink.FindStringSubmatch("\x01ACTION is playing [https://osu.ppy.sh/beatmapsets/99#/5678 x]\x01")
	require.NotNil(t, m)
	assert.Equal(t, "5678", m[2])
}
