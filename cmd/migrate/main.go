package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/gardenfi/swapd/internal/database"
)

func main() {
	drop := flag.Bool("drop", false, "drop the orders table before creating it")
	createOnly := flag.Bool("create", false, "create the schema without dropping")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := database.New(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if *drop {
		if err := database.DropTables(db); err != nil {
			log.Fatalf("Failed to drop schema: %v", err)
		}
		log.Println("Schema dropped")
	}

	if *createOnly || *drop || flag.NFlag() == 0 {
		if err := database.CreateTables(db); err != nil {
			log.Fatalf("Failed to create schema: %v", err)
		}
		log.Println("Schema created successfully")
	}
}
