package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondSuccess writes the standard success envelope. meta is optional.
func RespondSuccess(c *gin.Context, data interface{}, meta interface{}) {
	body := gin.H{
		"code": 200,
		"data": data,
	}
	if meta != nil {
		body["meta"] = meta
	}
	c.JSON(http.StatusOK, body)
}

// RespondError writes the standard error envelope with the given status.
func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":  status,
		"error": message,
	})
}
