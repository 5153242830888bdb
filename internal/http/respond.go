package http

import (
	"errors"
	"net/http"

	"github.com/FreeVigilance/HappyBarrier/internal/apperr"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RespondError maps a domain error onto an HTTP response. Internal faults are
// logged with their cause and answered with the error's public message only.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)

	switch kind {
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindMethodNotAllowed:
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": err.Error()})
	case apperr.KindRateLimited:
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":               err.Error(),
			"retry_after_seconds": int(apperr.RetryAfterOf(err).Seconds()),
		})
	default:
		log.WithError(err).Error("request failed")
		message := "internal server error"
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
