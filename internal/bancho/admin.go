package bancho

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/packet"
)

// keyMatches compares a presented admin key against the shared secret.
func (g *Gateway) keyMatches(key string) bool {
	return subtle.ConstantTimeCompare([]byte(key), []byte(g.cfg.TokenHMACSecret)) == 1
}

// handleAdminStats reports gateway liveness and the online count.
func (g *Gateway) handleAdminStats(c *gin.Context) {
	if !g.keyMatches(c.Query("key")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"online": g.registry.Count(),
		"uptime": int64(time.Since(g.started).Seconds()),
	})
}

// handleAdminUser reports one session's live state.
func (g *Gateway) handleAdminUser(c *gin.Context) {
	if !g.keyMatches(c.Query("key")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	p := g.registry.ByID(int32(id))
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user is offline"})
		return
	}
	action := p.Status()
	c.JSON(http.StatusOK, gin.H{
		"user_id":    p.User.ID,
		"username":   p.User.Username,
		"action":     action.OnlineStatus,
		"beatmap_id": action.BeatmapID,
		"mode":       action.Mode,
		"last_ping":  p.LastPing().Unix(),
	})
}

type adminNotification struct {
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
	Target      string `json:"target"`
	Key         string `json:"key"`
}

// handleAdminNotification delivers a server-originated message: a bot
// PM, a channel message or a popup.
func (g *Gateway) handleAdminNotification(c *gin.Context) {
	var req adminNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !g.keyMatches(req.Key) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		return
	}

	switch req.MessageType {
	case "pm":
		p := g.registry.BySafeName(model.ToSafe(req.Target))
		if p == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user is offline"})
			return
		}
		g.bot.DM(p, req.Message)
	case "chat":
		g.bot.Announce(req.Target, req.Message)
	case "notification":
		if req.Target == "" {
			g.registry.Broadcast(packet.Notification(req.Message))
		} else {
			p := g.registry.BySafeName(model.ToSafe(req.Target))
			if p == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "user is offline"})
				return
			}
			p.Enqueue(packet.Notification(req.Message))
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown message type"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type adminUpdate struct {
	Method string   `json:"method"`
	UserID int32    `json:"user_id"`
	Args   []string `json:"args"`
	Key    string   `json:"key"`
}

// handleAdminUpdate applies a state change pushed by another
// component, typically the score pipeline.
func (g *Gateway) handleAdminUpdate(c *gin.Context) {
	var req adminUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !g.keyMatches(req.Key) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		return
	}

	switch req.Method {
	case "user:refresh":
		g.refreshUser(c, req.UserID)
	case "user:restricted":
		g.applyRestriction(c.Request.Context(), req.UserID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown method"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// refreshUser re-sends the session's stats after an external change.
func (g *Gateway) refreshUser(c *gin.Context, userID int32) {
	p := g.registry.ByID(userID)
	if p == nil {
		return
	}
	stats, err := g.statsPacket(c.Request.Context(), p)
	if err != nil {
		return
	}
	p.Enqueue(stats)
	if !p.User.IsRestricted() {
		g.registry.Broadcast(stats, userID)
	}
}
