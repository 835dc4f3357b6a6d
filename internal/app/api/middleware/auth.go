package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	models "github.com/fatflowers/contactbook/internal/models"
	"github.com/fatflowers/contactbook/pkg/logctx"
	"github.com/fatflowers/contactbook/pkg/response"
)

type TokenParser interface {
	ParseToken(token string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// BearerAuth rejects requests without a valid bearer token. The token subject
// is stored under logctx.KeyUserID and added to the request logger.
func BearerAuth(tokens TokenParser, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Abort(c, http.StatusUnauthorized, response.APIResponseCodeUnauthorized, "missing bearer token")
			return
		}
		userID, err := tokens.ParseToken(strings.TrimSpace(token))
		if err != nil {
			logctx.FromGin(c, base).Infow("auth_token_rejected", "error", err)
			response.Abort(c, http.StatusUnauthorized, response.APIResponseCodeUnauthorized, "invalid token")
			return
		}

		c.Set(logctx.KeyUserID, userID)
		ctx := context.WithValue(c.Request.Context(), logctx.KeyUserID, userID)
		c.Request = c.Request.WithContext(ctx)
		setRequestLogger(c, logctx.FromGin(c, base).With("user_id", userID))

		c.Next()
	}
}

// AdminOnly must run after BearerAuth.
func AdminOnly(users UserFinder, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := users.FindByID(c.Request.Context(), c.GetString(logctx.KeyUserID))
		if err != nil {
			logctx.FromGin(c, base).Errorw("admin_check_failed", "error", err)
			response.Abort(c, http.StatusInternalServerError, response.APIResponseCodeError, "failed to load user")
			return
		}
		if u == nil || !u.IsAdmin {
			response.Abort(c, http.StatusForbidden, response.APIResponseCodeForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id set by BearerAuth.
func UserID(c *gin.Context) string {
	return c.GetString(logctx.KeyUserID)
}
