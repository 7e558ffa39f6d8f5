package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/miosrv/mio/internal/model"
)

// currentUserKey indexes the authenticated user in the gin context.
const currentUserKey = "currentUser"

// bearerAuth attaches the token's user to the context. An absent
// header passes through unauthenticated; routes decide authorization.
// A present but invalid token is a hard 401.
func (s *Server) bearerAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.Next()
		return
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		unauthorized(c)
		return
	}

	claims, err := s.issuer.Verify(raw)
	if err != nil {
		unauthorized(c)
		return
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		unauthorized(c)
		return
	}
	user, err := s.users.GetByID(c.Request.Context(), int32(id))
	if err != nil {
		slog.Error("resolving token user", "user", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			apiError{Error: "server_error", Message: "Something went wrong."})
		return
	}
	if user == nil || !s.issuer.Matches(claims, user.Password) {
		unauthorized(c)
		return
	}

	c.Set(currentUserKey, user)
	c.Next()
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		apiError{Error: "invalid_token", Hint: "authorization", Message: "Invalid or expired token."})
}

// currentUser returns the authenticated user, nil when anonymous.
func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	return v.(*model.User)
}
