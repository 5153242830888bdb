package handlers

import (
	"net/http"

	apihttp "github.com/FreeVigilance/HappyBarrier/internal/http"
	"github.com/gin-gonic/gin"
)

// ProfileHandler exposes the authenticated account's own record.
type ProfileHandler struct{}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// Get returns the authenticated account.
func (h *ProfileHandler) Get(c *gin.Context) {
	user := apihttp.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"phone":     user.Phone,
		"full_name": user.FullName,
		"role":      user.Role,
	})
}
