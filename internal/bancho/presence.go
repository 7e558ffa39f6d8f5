// Package bancho implements the session gateway: the presence
// registry, channels, the packet dispatch loop, the bot and the
// internal admin endpoints.
package bancho

import (
	"sync"
	"time"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/packet"
)

// Presence is one connected client session. Senders append packet
// bytes to its queue; the per-request dequeue swaps the buffer out.
type Presence struct {
	Token string
	User  *model.User

	CountryByte uint8
	Lat, Lon    float32
	UTCOffset   uint8

	queueMu sync.Mutex
	queue   []byte

	statusMu sync.RWMutex
	status   packet.ChangeAction

	specMu     sync.Mutex
	spectators map[int32]*Presence
	spectating *Presence

	modMu         sync.Mutex
	lastMessage   string
	repeatCount   int
	silencedUntil time.Time

	pingMu   sync.Mutex
	lastPing time.Time
}

func newPresence(token string, user *model.User) *Presence {
	return &Presence{
		Token:      token,
		User:       user,
		spectators: make(map[int32]*Presence),
		lastPing:   time.Now(),
	}
}

// Enqueue appends packet bytes for the next poll.
func (p *Presence) Enqueue(data []byte) {
	p.queueMu.Lock()
	p.queue = append(p.queue, data...)
	p.queueMu.Unlock()
}

// Dequeue swaps out and returns the accumulated bytes.
func (p *Presence) Dequeue() []byte {
	p.queueMu.Lock()
	out := p.queue
	p.queue = nil
	p.queueMu.Unlock()
	return out
}

// SetStatus stores the client's reported action.
func (p *Presence) SetStatus(a packet.ChangeAction) {
	p.statusMu.Lock()
	p.status = a
	p.statusMu.Unlock()
}

// Status returns the last reported action.
func (p *Presence) Status() packet.ChangeAction {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// Touch updates the liveness timestamp.
func (p *Presence) Touch() {
	p.pingMu.Lock()
	p.lastPing = time.Now()
	p.pingMu.Unlock()
}

// LastPing returns the liveness timestamp.
func (p *Presence) LastPing() time.Time {
	p.pingMu.Lock()
	defer p.pingMu.Unlock()
	return p.lastPing
}

// Silence mutes the presence for the given duration.
func (p *Presence) Silence(d time.Duration) {
	p.modMu.Lock()
	p.silencedUntil = time.Now().Add(d)
	p.modMu.Unlock()
}

// SilencedFor returns the remaining silence, 0 when unmuted.
func (p *Presence) SilencedFor() time.Duration {
	p.modMu.Lock()
	defer p.modMu.Unlock()
	if rem := time.Until(p.silencedUntil); rem > 0 {
		return rem
	}
	return 0
}

// TrackRepeat counts identical consecutive messages and reports
// whether the streak reached the silence threshold.
func (p *Presence) TrackRepeat(message string, threshold int) bool {
	p.modMu.Lock()
	defer p.modMu.Unlock()
	if message == p.lastMessage {
		p.repeatCount++
	} else {
		p.lastMessage = message
		p.repeatCount = 0
	}
	return p.repeatCount >= threshold
}

// AddSpectator links a spectator to this host.
func (p *Presence) AddSpectator(s *Presence) {
	p.specMu.Lock()
	p.spectators[s.User.ID] = s
	p.specMu.Unlock()

	s.specMu.Lock()
	s.spectating = p
	s.specMu.Unlock()
}

// RemoveSpectator unlinks a spectator.
func (p *Presence) RemoveSpectator(s *Presence) {
	p.specMu.Lock()
	delete(p.spectators, s.User.ID)
	p.specMu.Unlock()

	s.specMu.Lock()
	if s.spectating == p {
		s.spectating = nil
	}
	s.specMu.Unlock()
}

// Spectators snapshots the current spectator list.
func (p *Presence) Spectators() []*Presence {
	p.specMu.Lock()
	defer p.specMu.Unlock()
	out := make([]*Presence, 0, len(p.spectators))
	for _, s := range p.spectators {
		out = append(out, s)
	}
	return out
}

// Spectating returns the host this presence watches, nil when none.
func (p *Presence) Spectating() *Presence {
	p.specMu.Lock()
	defer p.specMu.Unlock()
	return p.spectating
}

// IsBot reports the bot singleton.
func (p *Presence) IsBot() bool {
	return p.User.ID == botUserID
}
