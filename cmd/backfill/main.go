package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"tabkeeper/internal/backfill"
	"tabkeeper/internal/config"
	"tabkeeper/internal/fx"
	"tabkeeper/internal/logger"
	"tabkeeper/internal/sheet"
)

func main() {
	month := flag.String("month", "", "month to back-fill (e.g. June or Juin)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info")
		log.Fatal().Err(err).Msg("Configuration failed")
	}

	log := logger.New(cfg.LogLevel)

	if *month == "" {
		log.Fatal().Msg("Error: --month is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	sheets, err := sheet.NewClient(ctx, cfg.SheetID, cfg.ServiceAccountKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Sheets client failed")
	}

	engine := backfill.New(sheets, fx.NewClient(cfg.FXBaseURL))

	log.Info().Str("month", *month).Msg("Starting USD back-fill")

	if err := engine.Run(ctx, *month, func(line string) {
		fmt.Println(line)
	}); err != nil {
		log.Fatal().Err(err).Msg("Back-fill failed")
	}
}
