package api

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/model"
	"github.com/miosrv/mio/internal/token"
)

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Scope        string `json:"scope"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type apiError struct {
	Error   string `json:"error"`
	Hint    string `json:"hint"`
	Message string `json:"message"`
}

func grantError(c *gin.Context, status int, kind, hint, message string) {
	c.JSON(status, apiError{Error: kind, Hint: hint, Message: message})
}

// handleToken implements the password and refresh_token grants.
func (s *Server) handleToken(c *gin.Context) {
	ctx := c.Request.Context()

	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		grantError(c, http.StatusBadRequest, "invalid_request", "body", "Malformed request body.")
		return
	}

	app, err := s.apps.AppByClientID(ctx, req.ClientID)
	if err != nil {
		slog.Error("resolving oauth app", "client_id", req.ClientID, "err", err)
		grantError(c, http.StatusInternalServerError, "server_error", "", "Something went wrong.")
		return
	}
	if app == nil {
		grantError(c, http.StatusBadRequest, "invalid_client", "client_id", "Unknown client.")
		return
	}
	if subtle.ConstantTimeCompare([]byte(app.ClientSecret), []byte(req.ClientSecret)) != 1 {
		grantError(c, http.StatusBadRequest, "invalid_client", "client_secret", "Client secret mismatch.")
		return
	}
	if !slices.Contains(app.AllowedGrantTypes, req.GrantType) {
		grantError(c, http.StatusBadRequest, "unsupported_grant_type", "grant_type", "Grant type not allowed for this client.")
		return
	}

	switch req.GrantType {
	case "password":
		s.passwordGrant(c, &req)
	case "refresh_token":
		s.refreshGrant(c, &req)
	default:
		grantError(c, http.StatusBadRequest, "unsupported_grant_type", "grant_type", "Unknown grant type.")
	}
}

// passwordGrant verifies the legacy-hashed password and mints a pair.
func (s *Server) passwordGrant(c *gin.Context, req *tokenRequest) {
	sum := md5.Sum([]byte(req.Password))
	presented := hex.EncodeToString(sum[:])

	user, err := s.auth.Authenticate(c.Request.Context(), req.Username, presented)
	if err != nil {
		slog.Error("authenticating password grant", "err", err)
		grantError(c, http.StatusInternalServerError, "server_error", "", "Something went wrong.")
		return
	}
	if user == nil {
		grantError(c, http.StatusBadRequest, "invalid_grant", "credentials", "Invalid username or password.")
		return
	}
	s.issuePair(c, user)
}

// refreshGrant re-verifies the refresh token against the current
// password hash before minting a fresh pair.
func (s *Server) refreshGrant(c *gin.Context, req *tokenRequest) {
	claims, err := s.issuer.Verify(req.RefreshToken)
	if err != nil {
		grantError(c, http.StatusBadRequest, "invalid_grant", "refresh_token", "Invalid refresh token.")
		return
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		grantError(c, http.StatusBadRequest, "invalid_grant", "refresh_token", "Invalid refresh token.")
		return
	}
	user, err := s.users.GetByID(c.Request.Context(), int32(id))
	if err != nil {
		slog.Error("resolving refresh grant user", "user", id, "err", err)
		grantError(c, http.StatusInternalServerError, "server_error", "", "Something went wrong.")
		return
	}
	if user == nil || !s.issuer.Matches(claims, user.Password) {
		grantError(c, http.StatusBadRequest, "invalid_grant", "refresh_token", "Invalid refresh token.")
		return
	}
	s.issuePair(c, user)
}

func (s *Server) issuePair(c *gin.Context, user *model.User) {
	access, err := s.issuer.Issue(user.ID, user.Password, token.AccessLifetime)
	if err != nil {
		slog.Error("issuing access token", "user", user.ID, "err", err)
		grantError(c, http.StatusInternalServerError, "server_error", "", "Something went wrong.")
		return
	}
	refresh, err := s.issuer.Issue(user.ID, user.Password, token.RefreshLifetime)
	if err != nil {
		slog.Error("issuing refresh token", "user", user.ID, "err", err)
		grantError(c, http.StatusInternalServerError, "server_error", "", "Something went wrong.")
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(token.AccessLifetime.Seconds()),
		TokenType:    "Bearer",
	})
}
