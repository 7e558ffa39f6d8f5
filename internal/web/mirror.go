package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleMapUpdate proxies the client's beatmap update check to the
// official host through the resolver's disk cache.
func (s *Server) handleMapUpdate(c *gin.Context) {
	data, err := s.maps.UpdateFile(c.Request.Context(), c.Param("file"))
	if err != nil {
		slog.Warn("fetching beatmap update", "file", c.Param("file"), "err", err)
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// handleSearch proxies osu!direct search listings to the mirror.
func (s *Server) handleSearch(c *gin.Context) {
	s.proxyToMirror(c, "/web/osu-search.php")
}

// handleSearchSet proxies per-set lookups to the mirror.
func (s *Server) handleSearchSet(c *gin.Context) {
	s.proxyToMirror(c, "/web/osu-search-set.php")
}

// proxyToMirror forwards the request's query string verbatim and
// streams the mirror's answer back.
func (s *Server) proxyToMirror(c *gin.Context, path string) {
	url := fmt.Sprintf("%s%s?%s", s.cfg.MirrorURL, path, c.Request.URL.RawQuery)
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
	if err != nil {
		c.String(http.StatusOK, "0")
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		slog.Warn("querying mirror", "path", path, "err", err)
		c.String(http.StatusOK, "0")
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("reading mirror response", "path", path, "err", err)
		c.String(http.StatusOK, "0")
		return
	}
	c.Data(resp.StatusCode, "text/plain; charset=utf-8", body)
}

// handleDirectDownload redirects to the mirror's osz download.
func (s *Server) handleDirectDownload(c *gin.Context) {
	c.Redirect(http.StatusMovedPermanently,
		fmt.Sprintf("%s/api/v1/download/%s", s.cfg.MirrorURL, c.Param("id")))
}
