package packet

import (
	"encoding/binary"
	"fmt"
)

// Frame is one decoded packet from a client batch.
type Frame struct {
	ID      ID
	Payload []byte
}

// ReadFrames splits a request body into frames. Trailing garbage
// shorter than a header terminates the batch with an error.
func ReadFrames(data []byte) ([]Frame, error) {
	var frames []Frame
	for len(data) > 0 {
		if len(data) < HeaderSize {
			return frames, fmt.Errorf("reading frame header: %d trailing bytes", len(data))
		}
		id := ID(binary.LittleEndian.Uint16(data[0:2]))
		length := int(int32(binary.LittleEndian.Uint32(data[3:7])))
		if length < 0 || HeaderSize+length > len(data) {
			return frames, fmt.Errorf("frame %d: payload length %d exceeds remaining %d", id, length, len(data)-HeaderSize)
		}
		frames = append(frames, Frame{ID: id, Payload: data[HeaderSize : HeaderSize+length]})
		data = data[HeaderSize+length:]
	}
	return frames, nil
}

// Message is the chat record carried by send-message packets.
type Message struct {
	Sender   string
	Content  string
	Target   string
	SenderID int32
}

// ParseMessage decodes a Message payload.
func ParseMessage(payload []byte) (Message, error) {
	r := NewReader(payload)
	var m Message
	var err error
	if m.Sender, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("parsing message sender: %w", err)
	}
	if m.Content, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("parsing message content: %w", err)
	}
	if m.Target, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("parsing message target: %w", err)
	}
	if m.SenderID, err = r.ReadInt32(); err != nil {
		return m, fmt.Errorf("parsing message sender id: %w", err)
	}
	return m, nil
}

// ChangeAction is the client status record.
type ChangeAction struct {
	OnlineStatus uint8
	Description  string
	BeatmapMD5   string
	Mods         uint32
	Mode         uint8
	BeatmapID    int32
}

// ParseChangeAction decodes a ChangeAction payload.
func ParseChangeAction(payload []byte) (ChangeAction, error) {
	r := NewReader(payload)
	var a ChangeAction
	var err error
	if a.OnlineStatus, err = r.ReadByte(); err != nil {
		return a, fmt.Errorf("parsing action status: %w", err)
	}
	if a.Description, err = r.ReadString(); err != nil {
		return a, fmt.Errorf("parsing action description: %w", err)
	}
	if a.BeatmapMD5, err = r.ReadString(); err != nil {
		return a, fmt.Errorf("parsing action beatmap md5: %w", err)
	}
	if a.Mods, err = r.ReadUint32(); err != nil {
		return a, fmt.Errorf("parsing action mods: %w", err)
	}
	if a.Mode, err = r.ReadByte(); err != nil {
		return a, fmt.Errorf("parsing action mode: %w", err)
	}
	if a.BeatmapID, err = r.ReadInt32(); err != nil {
		return a, fmt.Errorf("parsing action beatmap id: %w", err)
	}
	return a, nil
}

// Login reply codes.
const (
	LoginInvalidCredentials int32 = -1
	LoginServerError        int32 = -5
)

// LoginReply builds a login result packet: the user id on success,
// a negative code on failure.
func LoginReply(result int32) []byte {
	w := NewWriter()
	w.WriteInt32(result)
	return w.Finish(BanchoLoginReply)
}

// Notification builds a popup notification packet.
func Notification(message string) []byte {
	w := NewWriter()
	w.WriteString(message)
	return w.Finish(BanchoNotification)
}

// SendMessage builds a chat delivery packet.
func SendMessage(m Message) []byte {
	w := NewWriter()
	w.WriteString(m.Sender)
	w.WriteString(m.Content)
	w.WriteString(m.Target)
	w.WriteInt32(m.SenderID)
	return w.Finish(BanchoSendMessage)
}

// ChannelJoinSuccess confirms a channel join to the client.
func ChannelJoinSuccess(name string) []byte {
	w := NewWriter()
	w.WriteString(name)
	return w.Finish(BanchoChannelJoinSuccess)
}

// ChannelKick removes the client from a channel.
func ChannelKick(name string) []byte {
	w := NewWriter()
	w.WriteString(name)
	return w.Finish(BanchoChannelKick)
}

// ChannelInfo advertises a channel with its member count.
func ChannelInfo(name, description string, members uint16) []byte {
	w := NewWriter()
	w.WriteString(name)
	w.WriteString(description)
	w.WriteUint16(members)
	return w.Finish(BanchoChannelInfo)
}

// ChannelInfoEnd marks the end of the channel listing.
func ChannelInfoEnd() []byte {
	w := NewWriter()
	w.WriteInt32(0)
	return w.Finish(BanchoChannelInfoEnd)
}

// SilenceEnd tells the client how many seconds of silence remain.
func SilenceEnd(seconds int32) []byte {
	w := NewWriter()
	w.WriteInt32(seconds)
	return w.Finish(BanchoSilenceEnd)
}

// UserSilenced announces a silenced user to everyone.
func UserSilenced(userID int32) []byte {
	w := NewWriter()
	w.WriteInt32(userID)
	return w.Finish(BanchoUserSilenced)
}

// UserLogout announces a disconnected user.
func UserLogout(userID int32) []byte {
	w := NewWriter()
	w.WriteInt32(userID)
	w.WriteByte(0)
	return w.Finish(BanchoUserLogout)
}

// Restart asks the client to reconnect after the given delay (ms).
func Restart(delayMs int32) []byte {
	w := NewWriter()
	w.WriteInt32(delayMs)
	return w.Finish(BanchoRestart)
}

// Privileges sends the bancho privilege bitfield.
func Privileges(privileges int32) []byte {
	w := NewWriter()
	w.WriteInt32(privileges)
	return w.Finish(BanchoPrivileges)
}

// ProtocolVersion advertises the protocol version.
func ProtocolVersion(version int32) []byte {
	w := NewWriter()
	w.WriteInt32(version)
	return w.Finish(BanchoProtocolVersion)
}

// FriendsList sends the user ids of the client's friends.
func FriendsList(ids []int32) []byte {
	w := NewWriter()
	w.WriteInt32List(ids)
	return w.Finish(BanchoFriendsList)
}

// SpectatorJoined notifies the host about a new spectator.
func SpectatorJoined(userID int32) []byte {
	w := NewWriter()
	w.WriteInt32(userID)
	return w.Finish(BanchoSpectatorJoined)
}

// SpectatorLeft notifies the host that a spectator left.
func SpectatorLeft(userID int32) []byte {
	w := NewWriter()
	w.WriteInt32(userID)
	return w.Finish(BanchoSpectatorLeft)
}

// FellowSpectatorJoined notifies other spectators about a new one.
func FellowSpectatorJoined(userID int32) []byte {
	w := NewWriter()
	w.WriteInt32(userID)
	return w.Finish(BanchoFellowSpectatorJoined)
}

// FellowSpectatorLeft notifies other spectators about a departure.
func FellowSpectatorLeft(userID int32) []byte {
	w := NewWriter()
	w.WriteInt32(userID)
	return w.Finish(BanchoFellowSpectatorLeft)
}

// SpectatorCantSpectate tells the host a spectator lacks the beatmap.
func SpectatorCantSpectate(userID int32) []byte {
	w := NewWriter()
	w.WriteInt32(userID)
	return w.Finish(BanchoSpectatorCantSpectate)
}

// SpectateFrames relays replay frame bytes from the host verbatim.
func SpectateFrames(payload []byte) []byte {
	w := NewWriter()
	w.WriteBytes(payload)
	return w.Finish(BanchoSpectateFrames)
}

// UserStatsData carries everything the stats packet needs.
type UserStatsData struct {
	UserID      int32
	Action      uint8
	Description string
	BeatmapMD5  string
	Mods        uint32
	Mode        uint8
	BeatmapID   int32
	RankedScore int64
	Accuracy    float32 // fraction in [0,1]
	Playcount   int32
	TotalScore  int64
	Rank        int32
	Performance int16
}

// UserStats builds the stats update packet.
func UserStats(d UserStatsData) []byte {
	w := NewWriter()
	w.WriteInt32(d.UserID)
	w.WriteByte(d.Action)
	w.WriteString(d.Description)
	w.WriteString(d.BeatmapMD5)
	w.WriteUint32(d.Mods)
	w.WriteByte(d.Mode)
	w.WriteInt32(d.BeatmapID)
	w.WriteInt64(d.RankedScore)
	w.WriteFloat32(d.Accuracy)
	w.WriteInt32(d.Playcount)
	w.WriteInt64(d.TotalScore)
	w.WriteInt32(d.Rank)
	w.WriteUint16(uint16(d.Performance))
	return w.Finish(BanchoUserStats)
}

// UserPresenceData carries everything the presence packet needs.
type UserPresenceData struct {
	UserID      int32
	Username    string
	UTCOffset   uint8
	CountryCode uint8
	Privileges  uint8
	Longitude   float32
	Latitude    float32
	Rank        int32
}

// UserPresence builds the presence packet.
func UserPresence(d UserPresenceData) []byte {
	w := NewWriter()
	w.WriteInt32(d.UserID)
	w.WriteString(d.Username)
	w.WriteByte(d.UTCOffset + 24)
	w.WriteByte(d.CountryCode)
	w.WriteByte(d.Privileges)
	w.WriteFloat32(d.Longitude)
	w.WriteFloat32(d.Latitude)
	w.WriteInt32(d.Rank)
	return w.Finish(BanchoUserPresence)
}
