package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cookgpt-backend/internal/http/response"
	"github.com/yungbote/cookgpt-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /api/user
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, me)
}

// PATCH /api/user
func (uh *UserHandler) Update(c *gin.Context) {
	var req services.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := uh.userService.Update(c.Request.Context(), req); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusOK, "Successfully updated user")
}

// DELETE /api/user
func (uh *UserHandler) Delete(c *gin.Context) {
	if err := uh.userService.Delete(c.Request.Context()); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondMessage(c, http.StatusOK, "User deleted")
}
