package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallwares/backoffice/internal/service"
)

// respondServiceError maps service errors onto the wire shape
// {"error": kind, "message": ..., "fields": {...}}. Anything that is not a
// *service.Error becomes an opaque 500.
func respondServiceError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		body := gin.H{"error": svcErr.Kind, "message": svcErr.Message}
		if len(svcErr.Fields) > 0 {
			body["fields"] = svcErr.Fields
		}
		c.JSON(svcErr.Status, body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": service.KindInternal, "message": "Internal server error."})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": service.KindValidation, "message": message})
}
