package bancho

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/packet"
)

// Channel types.
const (
	channelPublic      = "public"
	channelPrivateTemp = "private_temp"
)

// Channel is one chat room with its member set.
type Channel struct {
	Name        string
	Description string
	Type        string

	mu      sync.Mutex
	members map[int32]*Presence
}

func newChannel(name, description, channelType string) *Channel {
	return &Channel{
		Name:        name,
		Description: description,
		Type:        channelType,
		members:     make(map[int32]*Presence),
	}
}

func (c *Channel) add(p *Presence) {
	c.mu.Lock()
	c.members[p.User.ID] = p
	c.mu.Unlock()
}

func (c *Channel) remove(p *Presence) {
	c.mu.Lock()
	delete(c.members, p.User.ID)
	c.mu.Unlock()
}

func (c *Channel) memberCount() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint16(len(c.members))
}

func (c *Channel) membersSnapshot() []*Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Presence, 0, len(c.members))
	for _, p := range c.members {
		out = append(out, p)
	}
	return out
}

// ChannelManager owns the channel map and the chat delivery rules.
type ChannelManager struct {
	registry *Registry

	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewChannelManager creates a manager over the registry.
func NewChannelManager(registry *Registry) *ChannelManager {
	return &ChannelManager{
		registry: registry,
		channels: make(map[string]*Channel),
	}
}

// Register adds a persistent channel at startup.
func (m *ChannelManager) Register(name, description, channelType string) {
	m.mu.Lock()
	m.channels[name] = newChannel(name, description, channelType)
	m.mu.Unlock()
}

// Get returns a channel by name, nil when absent.
func (m *ChannelManager) Get(name string) *Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[name]
}

// CreatePrivate lazily creates a temporary private channel, used for
// spectator rooms. Idempotent.
func (m *ChannelManager) CreatePrivate(name, description string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.channels[name]; ok {
		return c
	}
	c := newChannel(name, description, channelPrivateTemp)
	m.channels[name] = c
	return c
}

// Join adds the presence to the channel. Repeat joins re-emit the
// confirmation: clients sometimes drop channel state.
func (m *ChannelManager) Join(name string, p *Presence) bool {
	c := m.Get(name)
	if c == nil {
		return false
	}
	c.add(p)
	p.Enqueue(packet.ChannelJoinSuccess(name))
	return true
}

// Part removes the presence and confirms with a kick packet.
func (m *ChannelManager) Part(name string, p *Presence) {
	c := m.Get(name)
	if c == nil {
		return
	}
	c.remove(p)
	p.Enqueue(packet.ChannelKick(name))
}

// PartAll removes the presence from every channel, used at logout.
func (m *ChannelManager) PartAll(p *Presence) {
	m.mu.RLock()
	channels := make([]*Channel, 0, len(m.channels))
	for _, c := range m.channels {
		channels = append(channels, c)
	}
	m.mu.RUnlock()
	for _, c := range channels {
		c.remove(p)
	}
}

// InfoPackets renders the advertisement packets for all public
// channels.
func (m *ChannelManager) InfoPackets() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out [][]byte
	for _, c := range m.channels {
		if c.Type != channelPublic {
			continue
		}
		out = append(out, packet.ChannelInfo(c.Name, c.Description, c.memberCount()))
	}
	return out
}

// spectatorChannel names the room for a host's spectators.
func spectatorChannel(hostID int32) string {
	return fmt.Sprintf("#spec_%d", hostID)
}

// SendPublic delivers a channel message to every other member.
// Restricted senders are rejected; the #spectator alias rewrites to
// the sender's spectator room.
func (m *ChannelManager) SendPublic(sender *Presence, msg packet.Message) bool {
	if sender.User.IsRestricted() {
		return false
	}

	target := msg.Target
	if target == "#spectator" {
		if host := sender.Spectating(); host != nil {
			target = spectatorChannel(host.User.ID)
		} else {
			target = spectatorChannel(sender.User.ID)
		}
	}

	c := m.Get(target)
	if c == nil {
		slog.Debug("message to unknown channel", "channel", target)
		return false
	}

	out := packet.SendMessage(packet.Message{
		Sender:   sender.User.Username,
		Content:  msg.Content,
		Target:   target,
		SenderID: sender.User.ID,
	})
	for _, member := range c.membersSnapshot() {
		if member.User.ID == sender.User.ID {
			continue
		}
		member.Enqueue(out)
	}
	return true
}

// SendPrivate delivers a direct message by username. Messages to a
// restricted recipient are dropped unless the sender is the bot.
func (m *ChannelManager) SendPrivate(sender *Presence, msg packet.Message) {
	if sender.User.IsRestricted() && !sender.IsBot() {
		return
	}
	target := m.registry.BySafeName(model.ToSafe(msg.Target))
	if target == nil {
		slog.Debug("private message to offline user", "target", msg.Target)
		return
	}
	if target.User.IsRestricted() && !sender.IsBot() {
		slog.Debug("dropping message to restricted user", "target", target.User.ID)
		return
	}
	target.Enqueue(packet.SendMessage(packet.Message{
		Sender:   sender.User.Username,
		Content:  msg.Content,
		Target:   msg.Target,
		SenderID: sender.User.ID,
	}))
}
