// Package api serves the public JSON API: the oauth token endpoint
// and the authenticated user and ranking reads.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/auth"
	"github.com/miosrv/mio/internal/config"
	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/ranking"
	"github.com/miosrv/mio/internal/token"
)

// UserStore is the account lookup surface the API needs.
type UserStore interface {
	GetByID(ctx context.Context, id int32) (*model.User, error)
	GetBySafeName(ctx context.Context, safe string) (*model.User, error)
}

// AppStore resolves registered oauth applications.
type AppStore interface {
	AppByClientID(ctx context.Context, clientID string) (*model.OAuthApp, error)
}

// StatsStore reads the per-mode aggregates.
type StatsStore interface {
	Get(ctx context.Context, userID int32, mode osu.Mode) (*model.UserStats, error)
}

// ScoreStore reads best scores for the lazy grade-count recompute.
type ScoreStore interface {
	BestScores(ctx context.Context, e db.Executor, userID int32, mode osu.Mode, limit int) ([]model.Score, error)
}

// Server holds the API component's dependencies.
type Server struct {
	cfg    *config.Mio
	users  UserStore
	apps   AppStore
	stats  StatsStore
	scores ScoreStore
	exec   db.Executor
	rank   *ranking.Client
	auth   *auth.Authenticator
	issuer *token.Issuer
}

// NewServer wires the API component.
func NewServer(cfg *config.Mio, database *db.DB, rank *ranking.Client, authn *auth.Authenticator) *Server {
	return &Server{
		cfg:    cfg,
		users:  db.NewUserRepository(database),
		apps:   db.NewOAuthRepository(database),
		stats:  db.NewStatsRepository(database),
		scores: db.NewScoreRepository(database),
		exec:   database.Pool(),
		rank:   rank,
		auth:   authn,
		issuer: token.NewIssuer(cfg.TokenHMACSecret),
	}
}

// Router builds the gin engine for the API host.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/oauth/token", s.handleToken)

	v1 := r.Group("/api/v1", s.bearerAuth)
	v1.GET("/users/:id", s.handleUser)
	v1.GET("/rankings/:mode", s.handleRankings)

	return r
}
