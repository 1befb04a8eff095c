package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cookgpt-backend/internal/http/response"
	"github.com/yungbote/cookgpt-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /api/auth/signup
func (ah *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := ah.authService.Signup(c.Request.Context(), req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusCreated, "Successfully signed up")
}

// POST /api/auth/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	info, err := ah.authService.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Successfully logged in", "auth_info": info})
}

// POST /api/auth/refresh, authenticated with the refresh token.
func (ah *AuthHandler) Refresh(c *gin.Context) {
	info, err := ah.authService.Refresh(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Refreshed access token", "auth_info": info})
}

// POST /api/auth/logout
func (ah *AuthHandler) Logout(c *gin.Context) {
	if err := ah.authService.Logout(c.Request.Context()); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusOK, "Logged out user")
}
