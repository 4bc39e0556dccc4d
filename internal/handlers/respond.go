package handlers

import (
	"log"
	"net/http"

	"fxchange/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// respondError writes a service error as JSON. Known application errors
// keep their status and code; anything else becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	if appErr := apperrors.From(err, nil); appErr != nil {
		c.JSON(appErr.Status, gin.H{
			"status":  appErr.Status,
			"code":    appErr.Code,
			"message": appErr.Message,
		})
		return
	}
	log.Printf("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  http.StatusInternalServerError,
		"code":    "INTERNAL_ERROR",
		"message": "Internal server error",
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
