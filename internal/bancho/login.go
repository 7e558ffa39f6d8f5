package bancho

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/packet"
)

// loginRequest is the parsed three-line login body.
type loginRequest struct {
	Username    string
	PasswordMD5 string
	Version     string
	UTCOffset   uint8
	HWID        model.HWIDRecord
}

// parseLogin decodes the login body: username, password md5 and a
// pipe-separated client line whose fourth field is the colon-separated
// hardware fingerprint.
func parseLogin(body string) (*loginRequest, error) {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("login body has %d lines", len(lines))
	}

	req := loginRequest{
		Username:    lines[0],
		PasswordMD5: lines[1],
	}

	fields := strings.Split(lines[2], "|")
	if len(fields) < 4 {
		return nil, fmt.Errorf("client line has %d fields", len(fields))
	}
	req.Version = fields[0]
	if offset, err := strconv.Atoi(fields[1]); err == nil {
		req.UTCOffset = uint8(offset)
	}

	hw := strings.Split(fields[3], ":")
	if len(hw) < 4 {
		return nil, fmt.Errorf("hardware line has %d segments", len(hw))
	}
	req.HWID = model.HWIDRecord{Plain: hw[0], MAC: hw[1], UID: hw[2], Disk: hw[3]}
	return &req, nil
}

func loginReject(message string) []byte {
	out := packet.Notification(message)
	return append(out, packet.LoginReply(packet.LoginInvalidCredentials)...)
}

func restartPayload() []byte {
	return packet.Restart(1)
}

// handleLogin authenticates the body and builds the session plus its
// initial packet burst. Returns the session token and response bytes.
func (g *Gateway) handleLogin(ctx context.Context, body, ip string) (string, []byte) {
	req, err := parseLogin(body)
	if err != nil {
		slog.Warn("parsing login", "err", err)
		return invalidToken, loginReject("Malformed login request.")
	}

	user, err := g.auth.Authenticate(ctx, req.Username, req.PasswordMD5)
	if err != nil {
		slog.Error("authenticating login", "username", req.Username, "err", err)
		return invalidToken, loginReject("Server error, try again later.")
	}
	if user == nil {
		return invalidToken, loginReject("Invalid login credentials.")
	}

	g.recordHardware(ctx, user, req.HWID)
	geo := g.locator.Locate(ctx, ip)
	if geo != nil && user.Country == "XX" {
		if err := g.users.UpdateCountry(ctx, user.ID, geo.Code); err != nil {
			slog.Warn("updating country", "user", user.ID, "err", err)
		} else {
			user.Country = geo.Code
		}
	}
	if err := g.users.UpdateLastSeen(ctx, user.ID); err != nil {
		slog.Warn("updating last seen", "user", user.ID, "err", err)
	}

	p := g.registry.Add(user)
	p.UTCOffset = req.UTCOffset
	if geo != nil {
		p.CountryByte = countryByte(geo.Code)
		p.Lat = geo.Lat
		p.Lon = geo.Lon
	} else {
		p.CountryByte = countryByte(user.Country)
	}

	p.Enqueue(packet.LoginReply(user.ID))
	p.Enqueue(packet.Privileges(4))
	p.Enqueue(packet.ProtocolVersion(packet.ProtocolVersionValue))
	p.Enqueue(packet.SilenceEnd(int32(p.SilencedFor().Seconds())))
	p.Enqueue(packet.ChannelInfoEnd())
	for _, info := range g.channels.InfoPackets() {
		p.Enqueue(info)
	}
	g.channels.Join("#osu", p)
	g.channels.Join("#announce", p)

	friends, err := g.friends.FriendIDs(ctx, user.ID)
	if err != nil {
		slog.Warn("loading friends", "user", user.ID, "err", err)
	}
	p.Enqueue(packet.FriendsList(friends))

	p.Enqueue(g.presencePacket(ctx, p))
	if stats, err := g.statsPacket(ctx, p); err != nil {
		slog.Error("building login stats", "user", user.ID, "err", err)
	} else {
		p.Enqueue(stats)
	}

	for _, other := range g.registry.Snapshot() {
		if other == p || other.User.IsRestricted() {
			continue
		}
		p.Enqueue(g.presencePacket(ctx, other))
	}

	if user.IsRestricted() {
		g.bot.DM(p, "Your account is currently restricted. Your profile is hidden and your scores do not count until the restriction is lifted.")
	} else {
		g.registry.Broadcast(g.presencePacket(ctx, p), user.ID)
	}

	slog.Info("user logged in", "user", user.ID, "username", user.Username, "version", req.Version)
	return p.Token, p.Dequeue()
}

// recordHardware stores the fingerprint and alerts on multi-account
// collisions.
func (g *Gateway) recordHardware(ctx context.Context, user *model.User, hw model.HWIDRecord) {
	hw.UserID = user.ID
	if err := g.hwids.Upsert(ctx, &hw); err != nil {
		slog.Warn("storing hwid", "user", user.ID, "err", err)
		return
	}
	matches, err := g.hwids.CollidingUsers(ctx, &hw)
	if err != nil {
		slog.Warn("querying hwid collisions", "user", user.ID, "err", err)
		return
	}
	if len(matches) > 0 {
		g.alerts.HWIDCollision(ctx, user.Username, user.ID, matches)
	}
}
