package packet

// ID is a bancho packet id. The numeric values are the wire protocol
// of the game client and must not change.
type ID uint16

// Client packets.
const (
	OsuUserChangeAction       ID = 0
	OsuSendPublicMessage      ID = 1
	OsuUserLogout             ID = 2
	OsuUserRequestStatusUpdate ID = 3
	OsuPing                   ID = 4
	OsuSpectateStart          ID = 16
	OsuSpectateStop           ID = 17
	OsuSpectateFrames         ID = 18
	OsuErrorReport            ID = 20
	OsuCantSpectate           ID = 21
	OsuSendPrivateMessage     ID = 25
	OsuUserChannelJoin        ID = 63
	OsuFriendAdd              ID = 73
	OsuFriendRemove           ID = 74
	OsuUserChannelPart        ID = 78
	OsuUserStatsRequest       ID = 85
	OsuUserPresenceRequest    ID = 97
)

// Server packets.
const (
	BanchoLoginReply            ID = 5
	BanchoSendMessage           ID = 7
	BanchoPong                  ID = 8
	BanchoUserStats             ID = 11
	BanchoUserLogout            ID = 12
	BanchoSpectatorJoined       ID = 13
	BanchoSpectatorLeft         ID = 14
	BanchoSpectateFrames        ID = 15
	BanchoSpectatorCantSpectate ID = 22
	BanchoNotification          ID = 24
	BanchoMatchUpdate           ID = 26
	BanchoMatchNew              ID = 27
	BanchoMatchDisband          ID = 28
	BanchoChannelJoinSuccess    ID = 64
	BanchoChannelInfo           ID = 65
	BanchoChannelKick           ID = 66
	BanchoChannelAutoJoin       ID = 67
	BanchoPrivileges            ID = 71
	BanchoFriendsList           ID = 72
	BanchoProtocolVersion       ID = 75
	BanchoUserPresence          ID = 83
	BanchoRestart               ID = 86
	BanchoChannelInfoEnd        ID = 89
	BanchoUserSilenced          ID = 94
	BanchoSilenceEnd            ID = 92
	BanchoFellowSpectatorJoined ID = 42
	BanchoFellowSpectatorLeft   ID = 43
)

// HeaderSize is the framed packet header: u16 id, one zero byte,
// i32 payload length.
const HeaderSize = 7

// ProtocolVersionValue is the bancho protocol version advertised at
// login.
const ProtocolVersionValue = 19
