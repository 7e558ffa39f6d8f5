package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// screenshotName draws a random 8-character hex name.
func screenshotName() (string, error) {
	var raw [4]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("generating screenshot name: %w", err)
	}
	return hex.EncodeToString(raw[:]) + ".jpg", nil
}

// handleScreenshotUpload stores the uploaded jpg and returns its
// public filename.
func (s *Server) handleScreenshotUpload(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := s.auth.Authenticate(ctx, c.PostForm("u"), c.PostForm("p"))
	if err != nil {
		slog.Error("authenticating screenshot upload", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if user == nil {
		c.Status(http.StatusUnauthorized)
		return
	}

	file, err := c.FormFile("ss")
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	f, err := file.Open()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	name, err := screenshotName()
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	dir := s.cfg.ScreenshotsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("creating screenshots dir", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		slog.Error("writing screenshot", "err", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.String(http.StatusOK, name)
}

// handleScreenshotView serves a stored screenshot.
func (s *Server) handleScreenshotView(c *gin.Context) {
	name := c.Param("file")
	// The name is server-generated; reject anything that could walk
	// out of the directory.
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		c.Status(http.StatusBadRequest)
		return
	}
	path := filepath.Join(s.cfg.ScreenshotsDir(), name)
	data, err := os.ReadFile(path)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}
