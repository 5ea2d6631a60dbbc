package routes

import (
	"betchat/config"
	"betchat/controllers"
	"betchat/middlewares"
	"betchat/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every endpoint onto a gin engine.
func RegisterRoutes(media *services.MediaStore) *gin.Engine {
	r := gin.Default()

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	r.Use(cors.New(corsConfig))

	r.GET("/ws", controllers.WSController)
	r.Static("/media", config.MediaDir)

	api := r.Group("/api")
	api.POST("/register", controllers.Register)
	api.POST("/login", controllers.Login)
	api.POST("/reset", controllers.ResetPassword)
	api.POST("/reset/confirm", controllers.ConfirmReset)

	{
		api.Use(middlewares.TokenAuthMiddleware())
		api.GET("/userinfo", controllers.GetUserInfo)
		api.PUT("/profile", controllers.UpdateProfile)
		api.PUT("/profile/credentials", controllers.UpdateCredentials)
		api.POST("/media/avatar", controllers.UploadAvatar(media))

		api.POST("/chats", controllers.CreateChat)
		api.GET("/chats", controllers.GetChats)
		api.GET("/chats/:chat_id/messages", controllers.GetMessages)
		api.POST("/chats/:chat_id/messages", controllers.SendMessage)
		api.POST("/media/chats/:chat_id", controllers.UploadChatMedia(media))

		api.GET("/bets", controllers.GetBets)
		api.POST("/bets", controllers.CreateBet)
		api.POST("/bets/:id/image", controllers.UploadBetImage(media))
		api.DELETE("/bets/:id", controllers.DeleteBet)
		api.POST("/bets/:id/like", controllers.ToggleLike)
		api.POST("/bets/:id/entries", controllers.PlaceBet)
		api.GET("/entries", controllers.GetMyEntries)

		api.GET("/wallet", controllers.GetWallet)
	}

	return r
}
