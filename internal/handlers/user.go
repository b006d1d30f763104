package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/synthsense/synthsense-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	user, err := uh.userService.GetCurrentUser(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusNotFound, "user_not_found", err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (uh *UserHandler) UpdateName(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	user, err := uh.userService.UpdateName(c.Request.Context(), req.FullName)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "update_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}
