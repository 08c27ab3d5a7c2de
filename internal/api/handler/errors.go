package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"valet_parking/internal/domain"
	"valet_parking/internal/logger"
	"valet_parking/internal/repository"
	"valet_parking/internal/service"
)

var handlerLog = logger.WithComponent("handler")

// respondError ánh xạ lỗi của service sang HTTP status. Body luôn có "error".
func respondError(c *gin.Context, fallback string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ", "fields": verr.Fields})
	case errors.Is(err, service.ErrSlotOccupied):
		c.JSON(http.StatusConflict, gin.H{"error": "This parking space is already occupied. Please choose another or clear it."})
	case errors.Is(err, service.ErrSlotNotFound), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSlotNotOccupied), errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUpstreamUnavailable):
		handlerLog.WithError(err).Error(fallback)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": fallback})
	default:
		handlerLog.WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "details": err.Error()})
	}
}
