package web

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/score"
)

// handleSubmit feeds the multipart submission into the score engine.
func (s *Server) handleSubmit(c *gin.Context) {
	req := score.SubmitRequest{
		OsuVer:   c.PostForm("osuver"),
		ScoreB64: c.PostForm("score"),
		IVB64:    c.PostForm("iv"),
		Pass:     c.PostForm("pass"),
		Quit:     c.PostForm("x") == "1",
	}

	if file, err := c.FormFile("score"); err == nil {
		f, err := file.Open()
		if err != nil {
			slog.Warn("opening replay upload", "err", err)
		} else {
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				slog.Warn("reading replay upload", "err", err)
			} else if len(data) > 0 {
				req.Replay = data
				req.HasReplay = true
			}
		}
	}

	c.String(http.StatusOK, s.engine.Submit(c.Request.Context(), &req))
}
