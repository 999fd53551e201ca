package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"ambient-stream-be/internal/repository/implementation"
	"ambient-stream-be/internal/service"
	"ambient-stream-be/pkg/database"
)

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding preset catalogue...")
	added, err := service.SeedPresets(context.Background(), implementation.NewPresetRepository(db))
	if err != nil {
		log.Fatalf("Error seeding presets: %v", err)
	}
	log.Printf("Preset seeding completed, %d added", added)
}
