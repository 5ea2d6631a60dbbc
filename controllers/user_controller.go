package controllers

import (
	"log"
	"net/http"
	"time"

	"betchat/config"
	"betchat/middlewares"
	"betchat/models"
	"betchat/services"
	"betchat/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserInfoResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Points    int64  `json:"points"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

func Register(c *gin.Context) {
	var input struct {
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=6"`
		Name      string `json:"name" binding:"required"`
		Document  string `json:"document"`
		Phone     string `json:"phone"`
		Gender    string `json:"gender"`
		BirthDate string `json:"birth_date"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var existing models.User
	if err := config.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		utils.RespondError(c, http.StatusBadRequest, "Email already registered")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		ID:        uuid.New().String(),
		Email:     input.Email,
		Password:  string(hashed),
		Name:      input.Name,
		Document:  input.Document,
		Phone:     input.Phone,
		Gender:    input.Gender,
		BirthDate: input.BirthDate,
		LastLogin: nil,
	}

	if err := config.DB.Create(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := services.GenerateToken(user)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.RespondSuccess(c, gin.H{"token": token, "user_id": user.ID}, nil)
}

func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	now := time.Now()
	user.LastLogin = &now
	config.DB.Save(&user)

	token, err := services.GenerateToken(user)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.RespondSuccess(c, gin.H{"token": token, "user_id": user.ID}, nil)
}

// ResetPassword issues a short-lived reset token for the given email.
// The response is the same whether or not the account exists.
func ResetPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", input.Email).First(&user).Error; err == nil {
		reset := models.ResetToken{
			Token:     uuid.New().String(),
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(30 * time.Minute),
		}
		if err := config.DB.Create(&reset).Error; err != nil {
			log.Println("Failed to store reset token:", err)
		}
	}

	utils.RespondSuccess(c, gin.H{"message": "If the account exists, a reset link was sent"}, nil)
}

// ConfirmReset redeems a reset token: the new password is stored and the
// token deleted in one transaction, so it cannot be used twice.
func ConfirmReset(c *gin.Context) {
	var input struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	var reset models.ResetToken
	if err := config.DB.Where("token = ?", input.Token).First(&reset).Error; err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	if time.Now().After(reset.ExpiresAt) {
		config.DB.Delete(&reset)
		utils.RespondError(c, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", reset.UserID).
			Update("password", string(hashed)).Error; err != nil {
			return err
		}
		return tx.Delete(&reset).Error
	})
	if err != nil {
		log.Println("Failed to redeem reset token:", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	utils.RespondSuccess(c, gin.H{"message": "Password updated"}, nil)
}

func GetUserInfo(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}
	utils.RespondSuccess(c, UserInfoResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Points:    user.Points,
		AvatarURL: user.AvatarURL,
		Bio:       user.Bio,
	}, nil)
}

// UpdateProfile changes name, bio and avatar URL for the current user.
func UpdateProfile(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	var input struct {
		Name      string `json:"name"`
		Bio       string `json:"bio"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.Bio != "" {
		updates["bio"] = input.Bio
	}
	if input.AvatarURL != "" {
		updates["avatar_url"] = input.AvatarURL
	}
	if len(updates) == 0 {
		utils.RespondError(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	if err := config.DB.Model(user).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	utils.RespondSuccess(c, gin.H{"message": "Profile updated"}, nil)
}

// UpdateCredentials changes email or password for the current user.
func UpdateCredentials(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		utils.RespondError(c, http.StatusNotFound, "User not found")
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if input.Email != "" {
		updates["email"] = input.Email
	}
	if input.Password != "" {
		if len(input.Password) < 6 {
			utils.RespondError(c, http.StatusBadRequest, "Password too short")
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, "Failed to hash password")
			return
		}
		updates["password"] = string(hashed)
	}
	if len(updates) == 0 {
		utils.RespondError(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	if err := config.DB.Model(user).Updates(updates).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, "Failed to update credentials")
		return
	}
	utils.RespondSuccess(c, gin.H{"message": "Credentials updated"}, nil)
}
