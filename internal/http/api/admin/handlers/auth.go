package handlers

import (
	"net/http"
	"strings"

	"github.com/FreeVigilance/HappyBarrier/internal/config"
	"github.com/FreeVigilance/HappyBarrier/internal/models"
	"github.com/FreeVigilance/HappyBarrier/internal/security"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler handles administrator login.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates an administrator and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	phone := strings.TrimSpace(body.Phone)
	password := strings.TrimSpace(body.Password)
	if phone == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing phone or password"})
		return
	}

	var admin models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("phone = ? AND role = ? AND is_active = ?", phone, models.RoleAdmin, true).
		First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errToken := security.GenerateToken(h.jwtCfg.Secret, admin.ID, admin.Phone, admin.Role, h.jwtCfg.Expiry())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":        admin.ID,
			"phone":     admin.Phone,
			"full_name": admin.FullName,
		},
	})
}
