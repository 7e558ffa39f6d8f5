package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/miosrv/mio/internal/auth"
	"github.com/miosrv/mio/internal/config"
	"github.com/miosrv/mio/internal/db"
	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/osu"
	"github.com/miosrv/mio/internal/testutil"
	"github.com/miosrv/mio/internal/token"
)

// md5("a")
const passwordMD5 = "0cc175b9c0f1b6a831c399e269772661"

type stubUsers struct {
	byID map[int32]*model.User
}

func (s *stubUsers) GetByID(_ context.Context, id int32) (*model.User, error) {
	return s.byID[id], nil
}

func (s *stubUsers) GetBySafeName(_ context.Context, safe string) (*model.User, error) {
	for _, u := range s.byID {
		if u.UsernameSafe == safe {
			return u, nil
		}
	}
	return nil, nil
}

type stubApps struct {
	app *model.OAuthApp
}

func (s *stubApps) AppByClientID(_ context.Context, clientID string) (*model.OAuthApp, error) {
	if s.app != nil && s.app.ClientID == clientID {
		return s.app, nil
	}
	return nil, nil
}

type stubStats struct{}

func (stubStats) Get(_ context.Context, userID int32, mode osu.Mode) (*model.UserStats, error) {
	return &model.UserStats{UserID: userID, Mode: mode, Performance: 1234, Playcount: 10}, nil
}

type stubScores struct {
	best []model.Score
}

func (s stubScores) BestScores(_ context.Context, _ db.Executor, _ int32, _ osu.Mode, _ int) ([]model.Score, error) {
	return s.best, nil
}

func testServer(t *testing.T) (*Server, *stubUsers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(passwordMD5), bcrypt.MinCost)
	require.NoError(t, err)

	users := &stubUsers{byID: map[int32]*model.User{
		7: {ID: 7, Username: "Player", UsernameSafe: "player", Password: string(hash), Country: "DE"},
	}}

	rank := testutil.Ranking(t)

	cfg := config.Default()
	cfg.TokenHMACSecret = "test-secret"

	return &Server{
		cfg:    &cfg,
		users:  users,
		apps:   &stubApps{app: &model.OAuthApp{ClientID: "client", ClientSecret: "secret", AllowedGrantTypes: []string{"password", "refresh_token"}}},
		stats:  stubStats{},
		scores: stubScores{best: []model.Score{{Count300: 10}, {Count300: 9, Count100: 1}}},
		rank:   rank,
		auth:   auth.New(users, rank),
		issuer: token.NewIssuer(cfg.TokenHMACSecret),
	}, users
}

func postToken(t *testing.T, r *gin.Engine, body map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oauth/token", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestPasswordGrant(t *testing.T) {
	s, _ := testServer(t)
	r := s.Router()

	w, out := postToken(t, r, map[string]string{
		"client_id": "client", "client_secret": "secret",
		"grant_type": "password", "username": "Player", "password": "a",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, out["access_token"])
	assert.NotEmpty(t, out["refresh_token"])
	assert.Equal(t, float64(3600), out["expires_in"])
	assert.Equal(t, "Bearer", out["token_type"])
}

func TestPasswordGrantRejectsBadCredentials(t *testing.T) {
	s, _ := testServer(t)
	r := s.Router()

	w, out := postToken(t, r, map[string]string{
		"client_id": "client", "client_secret": "secret",
		"grant_type": "password", "username": "Player", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_grant", out["error"])
	assert.Equal(t, "credentials", out["hint"])
}

func TestTokenClientValidation(t *testing.T) {
	s, _ := testServer(t)
	r := s.Router()

	_, out := postToken(t, r, map[string]string{"client_id": "nope", "client_secret": "secret", "grant_type": "password"})
	assert.Equal(t, "invalid_client", out["error"])
	assert.Equal(t, "client_id", out["hint"])

	_, out = postToken(t, r, map[string]string{"client_id": "client", "client_secret": "bad", "grant_type": "password"})
	assert.Equal(t, "client_secret", out["hint"])

	_, out = postToken(t, r, map[string]string{"client_id": "client", "client_secret": "secret", "grant_type": "authorization_code"})
	assert.Equal(t, "unsupported_grant_type", out["error"])
}

func TestRefreshGrant(t *testing.T) {
	s, users := testServer(t)
	r := s.Router()

	refresh, err := s.issuer.Issue(7, users.byID[7].Password, token.RefreshLifetime)
	require.NoError(t, err)

	w, out := postToken(t, r, map[string]string{
		"client_id": "client", "client_secret": "secret",
		"grant_type": "refresh_token", "refresh_token": refresh,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, out["access_token"])
}

func TestRefreshGrantInvalidatedByPasswordChange(t *testing.T) {
	s, users := testServer(t)
	r := s.Router()

	refresh, err := s.issuer.Issue(7, users.byID[7].Password, token.RefreshLifetime)
	require.NoError(t, err)
	users.byID[7].Password = "$2b$04$different"

	w, out := postToken(t, r, map[string]string{
		"client_id": "client", "client_secret": "secret",
		"grant_type": "refresh_token", "refresh_token": refresh,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid refresh token.", out["message"])
}

func TestUserEndpoint(t *testing.T) {
	s, _ := testServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/7", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, int32(7), out.ID)
	assert.Equal(t, "Player", out.Username)
	assert.Equal(t, float64(1234), out.Stats.Performance)

	// Recomputed from the best scores on the cold cache.
	assert.Equal(t, int64(1), out.Grades["X"])
	assert.Equal(t, int64(1), out.Grades["A"])
	assert.Zero(t, out.Grades["S"])
}

func TestUserEndpointHidesRestrictedFromAnonymous(t *testing.T) {
	s, users := testServer(t)
	users.byID[7].Permissions = model.PermRestricted
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/7", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The user still sees their own profile.
	access, err := s.issuer.Issue(7, users.byID[7].Password, token.AccessLifetime)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/7", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerRejectsInvalidToken(t *testing.T) {
	s, _ := testServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/7", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRankings(t *testing.T) {
	s, _ := testServer(t)
	r := s.Router()

	ctx := context.Background()
	require.NoError(t, s.rank.UpsertRanking(ctx, &model.User{ID: 7, Country: "DE"}, osu.ModeStd, 1234))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rankings/0", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Mode     string         `json:"mode"`
		Rankings []rankingEntry `json:"rankings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Rankings, 1)
	assert.Equal(t, int64(1), out.Rankings[0].Rank)
	assert.Equal(t, "Player", out.Rankings[0].Username)
	assert.Equal(t, float64(1234), out.Rankings[0].Performance)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, osu.ModeStd, parseMode("0"))
	assert.Equal(t, osu.ModeTaiko, parseMode("taiko"))
	assert.Equal(t, osu.ModeRelax, parseMode("rx"))
	assert.Equal(t, osu.ModeStd, parseMode("garbage"))
}

func TestGrantErrorShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	grantError(c, http.StatusBadRequest, "invalid_request", "field", "A message.")

	var out apiError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, apiError{Error: "invalid_request", Hint: "field", Message: "A message."}, out)
}
