package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tabkeeper/internal/archive"
	"tabkeeper/internal/backfill"
	"tabkeeper/internal/bot"
	"tabkeeper/internal/config"
	"tabkeeper/internal/dates"
	"tabkeeper/internal/drive"
	"tabkeeper/internal/fx"
	"tabkeeper/internal/intent"
	"tabkeeper/internal/llm"
	"tabkeeper/internal/logger"
	"tabkeeper/internal/sheet"
	"tabkeeper/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger level comes from config, so bootstrap failures use a default.
		log := logger.New("info")
		log.Fatal().Err(err).Msg("Configuration failed")
	}

	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	chat, err := telegram.New(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Telegram authorization failed")
	}
	log.Info().Str("username", chat.Username()).Msg("Telegram session authorized")

	model, err := llm.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Model client failed")
	}

	sheets, err := sheet.NewClient(ctx, cfg.SheetID, cfg.ServiceAccountKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Sheets client failed")
	}

	receipts, err := drive.NewUploader(ctx, cfg.ServiceAccountKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Drive client failed")
	}

	receiptArchive, err := archive.New(ctx, cfg.ArchiveBucket, cfg.ServiceAccountKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Receipt archive failed")
	}
	defer receiptArchive.Close()

	normalizer := dates.New(model)
	coordinator := bot.New(
		chat,
		model,
		intent.New(model, normalizer),
		normalizer,
		backfill.New(sheets, fx.NewClient(cfg.FXBaseURL)),
		sheets,
		receipts,
		receiptArchive,
		bot.Config{
			ExpensesFolderID: cfg.ExpensesFolderID,
			EarningsFolderID: cfg.EarningsFolderID,
			TmpDir:           cfg.TmpDir,
		},
	)

	dispatcher := bot.NewDispatcher(100, coordinator.Handle)

	go func() {
		for update := range chat.Updates() {
			msg, ok := telegram.Flatten(update)
			if !ok {
				continue
			}
			if err := dispatcher.Enqueue(ctx, msg); err != nil {
				log.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Enqueue failed")
			}
		}
	}()

	log.Info().Msg("Bot started, waiting for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	chat.Stop()

	// In-flight handlers get the grace window before the root context is
	// cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	cancel()

	log.Info().Msg("Bot exited")
}
