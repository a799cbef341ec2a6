package handlers

import (
	"errors"
	"net/http"

	"traffic-watch-go/internal/db/repository"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondRepositoryError übersetzt Repository-Fehler in HTTP-Statuscodes
func respondRepositoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.WithError(err).Error("Unexpected repository error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
