package main

import (
	"log"

	"betchat/config"
	"betchat/models"
	"betchat/routes"
	"betchat/services"
)

func main() {
	config.Load()
	config.InitDB()
	models.Migrate(config.DB)

	go services.Manager.Run()

	media, err := services.NewMediaStore(config.MediaDir, config.BaseURL)
	if err != nil {
		log.Fatalf("Failed to init media store: %v", err)
	}

	r := routes.RegisterRoutes(media)

	if err := r.Run(":" + config.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
