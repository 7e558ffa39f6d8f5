// Package web serves the game client's HTTP endpoints: leaderboards,
// score submission, replays, beatmap search and screenshots.
package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/auth"
	"github.com/miosrv/mio/internal/beatmap"
	"github.com/miosrv/mio/internal/config"
	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/score"
)

// Server holds the web component's dependencies.
type Server struct {
	cfg    *config.Mio
	auth   *auth.Authenticator
	maps   *beatmap.Resolver
	scores *db.ScoreRepository
	engine *score.Engine
	client *http.Client
}

// NewServer wires the web component.
func NewServer(cfg *config.Mio, database *db.DB, maps *beatmap.Resolver, authn *auth.Authenticator, engine *score.Engine) *Server {
	return &Server{
		cfg:    cfg,
		auth:   authn,
		maps:   maps,
		scores: db.NewScoreRepository(database),
		engine: engine,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Router builds the gin engine for the web host.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/web/osu-osz2-getscores.php", s.handleGetScores)
	r.POST("/web/osu-submit-modular-selector.php", s.handleSubmit)
	r.GET("/web/osu-getreplay.php", s.handleGetReplay)
	r.GET("/web/maps/:file", s.handleMapUpdate)
	r.GET("/web/osu-search.php", s.handleSearch)
	r.GET("/web/osu-search-set.php", s.handleSearchSet)
	r.POST("/web/osu-screenshot.php", s.handleScreenshotUpload)
	r.GET("/ss/:file", s.handleScreenshotView)
	r.GET("/d/:id", s.handleDirectDownload)

	return r
}
