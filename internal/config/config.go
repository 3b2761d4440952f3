// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the bot needs to talk to its external services.
type Config struct {
	TelegramToken     string
	SheetID           string
	ServiceAccountKey []byte // Google service account JSON (sheets + drive + storage)
	GeminiAPIKey      string
	ExpensesFolderID  string
	EarningsFolderID  string
	TmpDir            string
	ArchiveBucket     string // optional; empty disables the receipt archive
	FXBaseURL         string
	LogLevel          string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present. Missing required credentials are
// an error; the caller is expected to treat that as fatal.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		SheetID:          os.Getenv("SHEET_ID"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		ExpensesFolderID: os.Getenv("EXPENSES_FOLDER_ID"),
		EarningsFolderID: os.Getenv("EARNINGS_FOLDER_ID"),
		TmpDir:           getEnv("TMP_DIR", "tmp"),
		ArchiveBucket:    os.Getenv("ARCHIVE_BUCKET"),
		FXBaseURL:        getEnv("FX_BASE_URL", "https://api.frankfurter.app"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var missing []string
	for name, v := range map[string]string{
		"TELEGRAM_BOT_TOKEN": cfg.TelegramToken,
		"SHEET_ID":           cfg.SheetID,
		"GEMINI_API_KEY":     cfg.GeminiAPIKey,
		"EXPENSES_FOLDER_ID": cfg.ExpensesFolderID,
		"EARNINGS_FOLDER_ID": cfg.EarningsFolderID,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	key, err := resolveKeyMaterial(os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY"))
	if err != nil {
		return nil, err
	}
	cfg.ServiceAccountKey = key

	if err := os.MkdirAll(cfg.TmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("config: create tmp dir %q: %w", cfg.TmpDir, err)
	}

	return cfg, nil
}

// resolveKeyMaterial accepts either literal service account JSON or a path
// to a key file.
func resolveKeyMaterial(v string) ([]byte, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, fmt.Errorf("config: missing required settings: GOOGLE_SERVICE_ACCOUNT_KEY")
	}
	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("config: read service account key %q: %w", v, err)
	}
	return data, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
