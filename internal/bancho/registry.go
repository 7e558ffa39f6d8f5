package bancho

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/packet"
)

// botUserID is the reserved account backing the bot presence.
const botUserID int32 = 1

// presenceTTL is how long a presence may go without polling before
// the lazy sweep disposes it.
const presenceTTL = 60 * time.Second

// Registry holds every connected presence under three indices.
// Reads vastly outnumber writes; writes happen only at login, logout
// and expiry.
type Registry struct {
	mu      sync.RWMutex
	byToken map[string]*Presence
	byID    map[int32]*Presence
	bySafe  map[string]*Presence
	bot     *Presence
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byToken: make(map[string]*Presence),
		byID:    make(map[int32]*Presence),
		bySafe:  make(map[string]*Presence),
	}
}

// InitBot registers the singleton bot presence from its account row.
func (r *Registry) InitBot(user *model.User) *Presence {
	p := newPresence(uuid.NewString(), user)
	r.mu.Lock()
	r.bot = p
	r.byToken[p.Token] = p
	r.byID[user.ID] = p
	r.bySafe[user.UsernameSafe] = p
	r.mu.Unlock()
	return p
}

// Bot returns the bot presence, nil before InitBot.
func (r *Registry) Bot() *Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bot
}

// Add registers a presence for the user, allocating its token. An
// existing session for the same user is replaced.
func (r *Registry) Add(user *model.User) *Presence {
	p := newPresence(uuid.NewString(), user)
	r.mu.Lock()
	if old, ok := r.byID[user.ID]; ok && old != r.bot {
		delete(r.byToken, old.Token)
		old.modMu.Lock()
		p.silencedUntil = old.silencedUntil
		old.modMu.Unlock()
	}
	r.byToken[p.Token] = p
	r.byID[user.ID] = p
	r.bySafe[user.UsernameSafe] = p
	r.mu.Unlock()
	return p
}

// ByToken looks a presence up by session token.
func (r *Registry) ByToken(token string) *Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byToken[token]
}

// ByID looks a presence up by user id.
func (r *Registry) ByID(id int32) *Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// BySafeName looks a presence up by normalized username.
func (r *Registry) BySafeName(safe string) *Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySafe[safe]
}

// Snapshot returns all presences, bot included.
func (r *Registry) Snapshot() []*Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Presence, 0, len(r.byToken))
	for _, p := range r.byToken {
		out = append(out, p)
	}
	return out
}

// Count returns the number of connected clients, bot excluded.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.byToken)
	if r.bot != nil {
		n--
	}
	return n
}

// Broadcast enqueues packet bytes to every presence except the bot
// and any listed exclusions.
func (r *Registry) Broadcast(data []byte, except ...int32) {
	r.mu.RLock()
	targets := make([]*Presence, 0, len(r.byToken))
	for _, p := range r.byToken {
		if p == r.bot {
			continue
		}
		skip := false
		for _, id := range except {
			if p.User.ID == id {
				skip = true
				break
			}
		}
		if !skip {
			targets = append(targets, p)
		}
	}
	r.mu.RUnlock()

	for _, p := range targets {
		p.Enqueue(data)
	}
}

// Dispose removes a presence, cleans up its channel memberships and
// spectator links, and announces the logout.
func (r *Registry) Dispose(token string, channels *ChannelManager) {
	r.mu.Lock()
	p, ok := r.byToken[token]
	if !ok || p == r.bot {
		r.mu.Unlock()
		return
	}
	delete(r.byToken, token)
	if r.byID[p.User.ID] == p {
		delete(r.byID, p.User.ID)
	}
	if r.bySafe[p.User.UsernameSafe] == p {
		delete(r.bySafe, p.User.UsernameSafe)
	}
	r.mu.Unlock()

	if host := p.Spectating(); host != nil {
		host.RemoveSpectator(p)
		host.Enqueue(packet.SpectatorLeft(p.User.ID))
	}
	for _, s := range p.Spectators() {
		p.RemoveSpectator(s)
	}
	channels.PartAll(p)
	r.Broadcast(packet.UserLogout(p.User.ID))
}

// Sweep disposes every presence that has not polled within the TTL.
// Runs inline on each packet batch; the client polls every second.
func (r *Registry) Sweep(channels *ChannelManager) {
	cutoff := time.Now().Add(-presenceTTL)
	for _, p := range r.Snapshot() {
		if p == r.Bot() {
			continue
		}
		if p.LastPing().Before(cutoff) {
			r.Dispose(p.Token, channels)
		}
	}
}
