package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gestprod/gestprodgo/internal/config"
	"github.com/gestprod/gestprodgo/internal/database"
	"github.com/gestprod/gestprodgo/internal/export"
	"github.com/gestprod/gestprodgo/internal/production"
)

func main() {
	ofFlag := flag.String("of", "", "fabrication order to export (empty lists available OFs)")
	dirFlag := flag.String("dir", "", "output directory (overrides GESTPROD_EXPORT_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	if *dirFlag != "" {
		cfg.Export.Dir = *dirFlag
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	store, err := production.NewStore(db, cfg.Codes.WeightClassWidth)
	if err != nil {
		log.Fatalf("❌ Failed to bind production table: %v", err)
	}

	if *ofFlag == "" {
		ofs, err := store.DistinctOFs()
		if err != nil {
			log.Fatalf("❌ Failed to list OFs: %v", err)
		}
		fmt.Println("Available fabrication orders:")
		for _, of := range ofs {
			fmt.Printf("  %s\n", of)
		}
		return
	}

	exporter, err := export.New(store, cfg.Export.Dir)
	if err != nil {
		log.Fatalf("❌ Failed to prepare export directory: %v", err)
	}

	path, lines, err := exporter.ExportOF(*ofFlag, time.Now())
	if err != nil {
		log.Fatalf("❌ Export failed: %v", err)
	}
	fmt.Printf("✅ Exported %d lines to %s\n", lines, path)
}
