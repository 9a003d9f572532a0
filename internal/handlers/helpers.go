package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func requestIDFromHeader(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return requestID
}

func userIDFromContext(c *gin.Context) string {
	if userIDVal, ok := c.Get("userID"); ok {
		if userID, ok := userIDVal.(string); ok {
			return userID
		}
	}
	return ""
}
