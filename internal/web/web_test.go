package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/miosrv/mio/internal/auth"
	"github.com/miosrv/mio/internal/config"
	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/testutil"
)

const passwordMD5 = "0cc175b9c0f1b6a831c399e269772661"

type stubUsers struct {
	user *model.User
}

func (s *stubUsers) GetBySafeName(_ context.Context, safe string) (*model.User, error) {
	if s.user != nil && s.user.UsernameSafe == safe {
		return s.user, nil
	}
	return nil, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(passwordMD5), bcrypt.MinCost)
	require.NoError(t, err)

	cache := testutil.Ranking(t)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()

	users := &stubUsers{user: &model.User{
		ID: 7, Username: "Player", UsernameSafe: "player", Password: string(hash),
	}}
	return &Server{
		cfg:    &cfg,
		auth:   auth.New(users, cache),
		client: &http.Client{Timeout: time.Second},
	}
}

func TestGetReplay(t *testing.T) {
	s := testServer(t)
	r := s.Router()

	dir := s.cfg.ReplaysDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "5.osr_frames"), []byte("frames"), 0o644))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/web/osu-getreplay.php?c=5&u=Player&h="+passwordMD5, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "frames", w.Body.String())
}

func TestGetReplayRejectsBadCredentials(t *testing.T) {
	s := testServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/web/osu-getreplay.php?c=5&u=Player&h=ffffffffffffffffffffffffffffffff", nil))
	assert.Equal(t, "error: pass", w.Body.String())
}

func TestGetReplayMissingFile(t *testing.T) {
	s := testServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/web/osu-getreplay.php?c=404&u=Player&h="+passwordMD5, nil))
	assert.Equal(t, "error: no", w.Body.String())
}

func TestDirectDownloadRedirects(t *testing.T) {
	s := testServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/d/1234", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, s.cfg.MirrorURL+"/api/v1/download/1234", w.Header().Get("Location"))
}

func TestSearchProxiesQueryString(t *testing.T) {
	var gotPath, gotQuery string
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte("3\nrecord"))
	}))
	defer mirror.Close()

	s := testServer(t)
	s.cfg.MirrorURL = mirror.URL
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/web/osu-search.php?q=test&m=0", nil))
	assert.Equal(t, "/web/osu-search.php", gotPath)
	assert.Equal(t, "q=test&m=0", gotQuery)
	assert.Equal(t, "3\nrecord", w.Body.String())
}

func TestSearchSwallowsMirrorFailure(t *testing.T) {
	s := testServer(t)
	s.cfg.MirrorURL = "http://127.0.0.1:1"
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/web/osu-search.php?q=test", nil))
	assert.Equal(t, "0", w.Body.String())
}

func TestScreenshotName(t *testing.T) {
	a, err := screenshotName()
	require.NoError(t, err)
	b, err := screenshotName()
	require.NoError(t, err)

	assert.Len(t, a, 12) // 8 hex chars + ".jpg"
	assert.Contains(t, a, ".jpg")
	assert.NotEqual(t, a, b)
}

func TestScreenshotViewRejectsTraversal(t *testing.T) {
	s := testServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ss/..%2Fsecret.jpg", nil))
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestPersonalBestLine(t *testing.T) {
	assert.Equal(t, "\n", personalBestLine(nil))

	us := &model.UserScore{
		Score: model.Score{ID: 5, TotalScore: 100, SubmittedAt: time.Unix(0, 0)},
		User:  model.User{ID: 7, Username: "Player"},
		Rank:  1,
	}
	line := personalBestLine(us)
	assert.Contains(t, line, "5|Player|100|")
	assert.Contains(t, line, "\n")
}
