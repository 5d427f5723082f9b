package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"tg-moderator/internal/config"
	"tg-moderator/internal/models"
	"tg-moderator/internal/storage"

	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, reset, status)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := storage.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer storage.Close(db)

	repo := storage.NewSanctionRepository(db)

	switch *action {
	case "migrate":
		if err := repo.MigrateTable(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "reset":
		if err := resetDatabase(db, repo); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Database reset completed successfully")
	case "status":
		checkStatus(db, repo)
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

// resetDatabase drops the sanctions table and recreates it. Temporary bans recorded in it
// will no longer expire on their own.
func resetDatabase(db *gorm.DB, repo *storage.SanctionRepository) error {
	fmt.Println("Resetting database...")

	fmt.Print("WARNING: This forgets every temporary ban, they will never be lifted automatically. Are you sure? (y/N): ")
	var confirmation string
	fmt.Scanln(&confirmation)

	if confirmation != "y" && confirmation != "Y" {
		return fmt.Errorf("operation cancelled by user")
	}

	if err := db.Migrator().DropTable(&models.SanctionRecord{}); err != nil {
		return fmt.Errorf("failed to drop sanctions table: %w", err)
	}

	return repo.MigrateTable()
}

func checkStatus(db *gorm.DB, repo *storage.SanctionRepository) {
	fmt.Println("Checking database status...")

	if !db.Migrator().HasTable(&models.SanctionRecord{}) {
		fmt.Println("❌ sanctions table does not exist")
		return
	}
	fmt.Println("✅ sanctions table exists")

	count, err := repo.Count(context.Background())
	if err != nil {
		fmt.Printf("   - Failed to count records: %v\n", err)
		return
	}
	fmt.Printf("   - Contains %d active temporary bans\n", count)
}
