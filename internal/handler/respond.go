package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/model"
)

// writeError maps domain sentinels to HTTP status codes. Anything unmapped is
// an internal error and hides its message from the client.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actorFrom reads the authenticated user placed in the context by the auth
// middleware.
func actorFrom(c *gin.Context) model.Actor {
	return model.Actor{
		ID:   c.GetString("user_id"),
		Name: c.GetString("user_name"),
	}
}
