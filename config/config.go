package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// App settings loaded from the environment (.env in development).
var (
	JWTSecret string
	MediaDir  string
	BaseURL   string
	Port      string
)

// Load reads the .env file and fills the settings globals.
// Missing .env is fine in production, values come from the real environment.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	JWTSecret = getEnv("JWT_SECRET", "dev-secret-change-me")
	MediaDir = getEnv("MEDIA_DIR", "./media")
	BaseURL = getEnv("BASE_URL", "http://localhost:8082")
	Port = getEnv("PORT", "8082")
}

// InitDB connects to MySQL and stores the handle in the DB global.
func InitDB() {
	dsn := getEnv("DB_DSN", "root:root@tcp(127.0.0.1:3306)/betchat?charset=utf8mb4&parseTime=True&loc=Local")

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	DB = db
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
