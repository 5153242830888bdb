package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/FreeVigilance/HappyBarrier/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// contextUserKey is where the authenticated account is stored in gin context.
const contextUserKey = "currentUser"

// AuthMiddleware authenticates requests via a Bearer JWT and loads the
// active account it names. Inactive accounts are rejected the same way as
// bad tokens.
func AuthMiddleware(conn *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := security.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := conn.WithContext(c.Request.Context()).
			Where("id = ? AND is_active = ?", claims.UserID, true).
			First(&user).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
			return
		}

		c.Set(contextUserKey, &user)
		c.Next()
	}
}

// AdminOnly rejects accounts without the administrator role. It must run
// after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated account, or nil outside an
// authenticated route.
func CurrentUser(c *gin.Context) *models.User {
	val, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}
