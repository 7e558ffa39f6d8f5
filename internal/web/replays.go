package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/score"
)

// handleGetReplay streams a stored replay's frame data.
func (s *Server) handleGetReplay(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := s.auth.Authenticate(ctx, c.Query("u"), c.Query("h"))
	if err != nil {
		slog.Error("authenticating replay fetch", "err", err)
		c.String(http.StatusOK, score.ResponseErrNo)
		return
	}
	if user == nil {
		c.String(http.StatusOK, score.ResponseErrPass)
		return
	}

	scoreID, err := strconv.ParseInt(c.Query("c"), 10, 32)
	if err != nil {
		c.String(http.StatusOK, score.ResponseErrNo)
		return
	}

	path := filepath.Join(s.cfg.ReplaysDir(), fmt.Sprintf("%d.osr_frames", scoreID))
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("reading replay", "score", scoreID, "err", err)
		}
		c.String(http.StatusOK, score.ResponseErrNo)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}
