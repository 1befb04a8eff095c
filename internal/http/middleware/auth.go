package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cookgpt-backend/internal/http/response"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
	"github.com/yungbote/cookgpt-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService}
}

// RequireAuth admits requests carrying a valid access token.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return am.require(services.TokenTypeAccess)
}

// RequireRefresh admits requests carrying a valid refresh token.
func (am *AuthMiddleware) RequireRefresh() gin.HandlerFunc {
	return am.require(services.TokenTypeRefresh)
}

func (am *AuthMiddleware) require(tokenType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			c.Abort()
			return
		}
		ctx, err := am.authService.Authenticate(c.Request.Context(), tokenString, tokenType)
		if err != nil {
			am.log.Debug("Token rejected", "token_type", tokenType, "error", err)
			response.RespondAPIError(c, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// extractTokenFromAll reads the token from ?token= (for stream readers that
// cannot set headers) or the Authorization bearer header.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
