package packet

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "#osu", "こんにちは", string(make([]byte, 200))} {
		w := NewWriter()
		w.WriteString(s)
		r := NewReader(w.Finish(BanchoNotification)[HeaderSize:])
		got, err := r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestFrameHeaderLayout(t *testing.T) {
	p := Notification("hi")
	assert.Equal(t, uint16(BanchoNotification), binary.LittleEndian.Uint16(p[0:2]))
	assert.Equal(t, byte(0), p[2])
	assert.Equal(t, uint32(len(p)-HeaderSize), binary.LittleEndian.Uint32(p[3:7]))
}

func TestReadFrames(t *testing.T) {
	var body []byte
	body = append(body, Notification("one")...)
	body = append(body, LoginReply(42)...)

	frames, err := ReadFrames(body)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, BanchoNotification, frames[0].ID)
	assert.Equal(t, BanchoLoginReply, frames[1].ID)

	r := NewReader(frames[1].Payload)
	id, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(42), id)
}

func TestReadFramesRejectsTruncated(t *testing.T) {
	p := Notification("hello")
	_, err := ReadFrames(p[:len(p)-2])
	assert.Error(t, err)

	_, err = ReadFrames([]byte{0x01, 0x00, 0x00})
	assert.Error(t, err)
}

func TestMessageRoundTrip(t *testing.T) {
	in := Message{Sender: "Mio", Content: "!roll 10", Target: "#osu", SenderID: 1}
	p := SendMessage(in)

	frames, err := ReadFrames(p)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, BanchoSendMessage, frames[0].ID)

	out, err := ParseMessage(frames[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestChangeActionRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteByte(2)
	w.WriteString("playing something")
	w.WriteString("0a1b2c3d")
	w.WriteUint32(72)
	w.WriteByte(0)
	w.WriteInt32(812771)
	p := w.Finish(OsuUserChangeAction)

	frames, err := ReadFrames(p)
	require.NoError(t, err)

	a, err := ParseChangeAction(frames[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, ChangeAction{
		OnlineStatus: 2,
		Description:  "playing something",
		BeatmapMD5:   "0a1b2c3d",
		Mods:         72,
		Mode:         0,
		BeatmapID:    812771,
	}, a)
}

func TestInt32ListRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteInt32List([]int32{1, 5, 9})
	r := NewReader(w.Finish(OsuUserStatsRequest)[HeaderSize:])
	got, err := r.ReadInt32List()
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 5, 9}, got)
}

func TestUserStatsPayloadShape(t *testing.T) {
	p := UserStats(UserStatsData{
		UserID:      7,
		Action:      1,
		RankedScore: 123456789,
		Accuracy:    0.9876,
		Playcount:   100,
		TotalScore:  987654321,
		Rank:        3,
		Performance: 727,
	})
	frames, err := ReadFrames(p)
	require.NoError(t, err)

	r := NewReader(frames[0].Payload)
	uid, _ := r.ReadInt32()
	assert.Equal(t, int32(7), uid)
	action, _ := r.ReadByte()
	assert.Equal(t, byte(1), action)
	_, _ = r.ReadString() // description
	_, _ = r.ReadString() // beatmap md5
	_, _ = r.ReadUint32() // mods
	_, _ = r.ReadByte()   // mode
	_, _ = r.ReadInt32()  // beatmap id
	ranked, _ := r.ReadInt64()
	assert.Equal(t, int64(123456789), ranked)
	acc, _ := r.ReadFloat32()
	assert.InDelta(t, 0.9876, acc, 1e-4)
	pc, _ := r.ReadInt32()
	assert.Equal(t, int32(100), pc)
	total, _ := r.ReadInt64()
	assert.Equal(t, int64(987654321), total)
	rank, _ := r.ReadInt32()
	assert.Equal(t, int32(3), rank)
	pp, _ := r.ReadUint16()
	assert.Equal(t, uint16(727), pp)
	assert.Equal(t, 0, r.Remaining())
}

func TestSpectateFramesVerbatim(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	p := SpectateFrames(payload)
	frames, err := ReadFrames(p)
	require.NoError(t, err)
	assert.Equal(t, BanchoSpectateFrames, frames[0].ID)
	assert.Equal(t, payload, frames[0].Payload)
}
