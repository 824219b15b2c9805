package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jarupong555/Detec-V1.0/internal/config"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/repository/sqlite"
	"github.com/jarupong555/Detec-V1.0/internal/service/storage"
)

func main() {
	cfg := config.Load()

	savedDir := flag.String("saved", cfg.SavedDirectory, "Directory containing saved detection images")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	fmt.Printf("Indexing images from %s into database %s\n", *savedDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store := storage.NewStore(storage.StoreOptions{Root: *savedDir, Location: cfg.Location()}, logger.New(os.Stderr))
	imageRepo := sqlite.NewImageRepository(db)

	result, err := store.Reindex(imageRepo, sqlite.NewDetectionRepository(db))
	if err != nil {
		log.Fatalf("Failed to index images: %v", err)
	}

	fmt.Printf("Indexed %d images\n", result.Indexed)
	if result.Skipped > 0 {
		fmt.Printf("Skipped %d files (errors)\n", result.Skipped)
	}

	stats, err := imageRepo.GetStats()
	if err == nil {
		fmt.Printf("\nDatabase statistics:\n")
		fmt.Printf("   Total images: %d\n", stats.TotalImages)
		fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
		fmt.Printf("   Per location:\n")
		for location, count := range stats.PerLocation {
			fmt.Printf("      - %s: %d images\n", location, count)
		}
	}
}
