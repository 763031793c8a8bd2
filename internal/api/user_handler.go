package api

import (
	"alcyxob/plan-tracker/internal/domain"
	"alcyxob/plan-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me handles GET /me, recording the caller on first sight.
func (h *UserHandler) Me(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	user, err := h.userService.EnsureUser(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": user.ID, "role": who.Role, "createdAt": user.CreatedAt})
}

// ListUsers handles GET /users?role=client. Only client listings are served.
func (h *UserHandler) ListUsers(c *gin.Context) {
	who, ok := mustIdentity(c)
	if !ok {
		return
	}
	if role := c.DefaultQuery("role", string(domain.RoleClient)); role != string(domain.RoleClient) {
		respondError(c, domain.Validationf("unsupported role filter %q", role))
		return
	}
	users, err := h.userService.ListClients(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
