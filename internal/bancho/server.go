package bancho

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/auth"
	"github.com/miosrv/mio/internal/beatmap"
	"github.com/miosrv/mio/internal/config"
	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/ranking"
	"github.com/miosrv/mio/internal/score"
	"github.com/miosrv/mio/internal/webhook"
)

// tokenHeader carries the session token on every post-login request.
const tokenHeader = "osu-token"

// invalidToken is the token value handed out on rejected logins.
const invalidToken = "nicht"

// Gateway is the bancho component: login, the packet dispatch loop,
// chat, spectators, the bot and the internal admin endpoints.
type Gateway struct {
	cfg      *config.Mio
	registry *Registry
	channels *ChannelManager

	users       *db.UserRepository
	stats       *db.StatsRepository
	friends     *db.RelationshipRepository
	hwids       *db.HWIDRepository
	punishments *db.PunishmentRepository
	beatmaps    *db.BeatmapRepository
	scores      *db.ScoreRepository

	maps    *beatmap.Resolver
	rank    *ranking.Client
	auth    *auth.Authenticator
	engine  *score.Engine
	locator Locator
	alerts  *webhook.Notifier

	bot     *Bot
	started time.Time
}

// NewGateway wires the gateway over the shared infrastructure.
func NewGateway(cfg *config.Mio, database *db.DB, maps *beatmap.Resolver, rank *ranking.Client, authn *auth.Authenticator, engine *score.Engine, locator Locator, alerts *webhook.Notifier) *Gateway {
	registry := NewRegistry()
	g := &Gateway{
		cfg:         cfg,
		registry:    registry,
		channels:    NewChannelManager(registry),
		users:       db.NewUserRepository(database),
		stats:       db.NewStatsRepository(database),
		friends:     db.NewRelationshipRepository(database),
		hwids:       db.NewHWIDRepository(database),
		punishments: db.NewPunishmentRepository(database),
		beatmaps:    db.NewBeatmapRepository(database),
		scores:      db.NewScoreRepository(database),
		maps:        maps,
		rank:        rank,
		auth:        authn,
		engine:      engine,
		locator:     locator,
		alerts:      alerts,
		started:     time.Now(),
	}
	g.bot = NewBot(g)
	return g
}

// Init loads the persisted channel list and brings the bot online.
func (g *Gateway) Init(ctx context.Context, channels *db.ChannelRepository) error {
	rows, err := channels.List(ctx)
	if err != nil {
		return fmt.Errorf("loading channels: %w", err)
	}
	for _, c := range rows {
		g.channels.Register(c.Name, c.Description, c.ChannelType)
	}

	botUser, err := g.users.GetByID(ctx, botUserID)
	if err != nil {
		return fmt.Errorf("loading bot account: %w", err)
	}
	if botUser == nil {
		return fmt.Errorf("bot account %d does not exist", botUserID)
	}
	g.registry.InitBot(botUser)
	return nil
}

// Router builds the gin engine serving the client protocol and the
// internal admin surface.
func (g *Gateway) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "mio bancho: running")
	})
	r.POST("/", g.handleClient)

	admin := r.Group("/api/v2/bancho")
	admin.GET("/stats", g.handleAdminStats)
	admin.GET("/user/:id", g.handleAdminUser)
	admin.POST("/notification", g.handleAdminNotification)
	admin.POST("/update", g.handleAdminUpdate)

	return r
}

// handleClient serves the client's polling POST: the first request of
// a session carries no token and is a login, everything after is a
// packet batch.
func (g *Gateway) handleClient(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	token := c.GetHeader(tokenHeader)
	if token == "" {
		newToken, out := g.handleLogin(c.Request.Context(), string(body), clientIP(c))
		c.Header("cho-token", newToken)
		c.Data(http.StatusOK, "application/octet-stream", out)
		return
	}

	g.registry.Sweep(g.channels)

	p := g.registry.ByToken(token)
	if p == nil {
		c.Header("cho-token", invalidToken)
		c.Data(http.StatusOK, "application/octet-stream", restartPayload())
		return
	}

	g.handleFrames(c.Request.Context(), p, body)
	c.Data(http.StatusOK, "application/octet-stream", p.Dequeue())
}

// clientIP prefers the proxy-provided address.
func clientIP(c *gin.Context) string {
	if ip := c.GetHeader("Cf-Connecting-Ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

func (g *Gateway) logError(op string, err error) {
	if err != nil {
		slog.Error(op, "err", err)
	}
}
