package controllers

import (
	"log"
	"net/http"

	"betchat/config"
	"betchat/middlewares"
	"betchat/services"
	"betchat/utils"

	"github.com/gin-gonic/gin"
)

// UploadAvatar stores a profile picture and points the user's avatar_url at it.
func UploadAvatar(store *services.MediaStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middlewares.CurrentUser(c)
		if !ok {
			utils.RespondError(c, http.StatusNotFound, "User not found")
			return
		}

		file, _, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Missing file upload")
			return
		}
		defer file.Close()

		url, err := store.SaveAvatar(user.ID, file)
		if err != nil {
			if err == services.ErrBadImage {
				utils.RespondError(c, http.StatusBadRequest, "File is not a valid image")
				return
			}
			log.Println("Failed to store avatar:", err)
			utils.RespondError(c, http.StatusInternalServerError, "Failed to store avatar")
			return
		}

		if err := config.DB.Model(user).Update("avatar_url", url).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to update avatar")
			return
		}
		utils.RespondSuccess(c, gin.H{"url": url}, nil)
	}
}
