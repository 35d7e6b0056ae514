package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondError renders the {success:false, message} failure envelope.
func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// RespondOK renders a success envelope with the given extra fields.
func RespondOK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
