package middlewares

import (
	"net/http"
	"strings"

	"betchat/config"
	"betchat/models"
	"betchat/services"

	"github.com/gin-gonic/gin"
)

// TokenAuthMiddleware validates the Authorization bearer token and loads the
// authenticated user into the gin context under "user".
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		userID, err := services.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		var user models.User
		if err := config.DB.Where("id = ?", userID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		c.Set("user", &user)
		c.Next()
	}
}

// CurrentUser fetches the user loaded by TokenAuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
