package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config はジョブ全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Notion
	NotionToken      string
	FeederDatabaseID string
	ReaderDatabaseID string
	NotionBaseURL    string
	NotionVersion    string
	NotionRateLimit  float64
	NotionTimeout    time.Duration

	// Fetch
	FetchTimeout      time.Duration
	FetchMaxSize      int64
	FetchAllowPrivate bool

	// Filter
	RecencyWindow time.Duration

	// Logging
	LogLevel slog.Level

	// Metrics
	PushgatewayURL string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合、またはデータベースIDが不正な場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.NotionToken = os.Getenv("NOTION_TOKEN")
	if cfg.NotionToken == "" {
		missing = append(missing, "NOTION_TOKEN")
	}

	feederID := os.Getenv("FEEDER_DB_ID")
	if feederID == "" {
		missing = append(missing, "FEEDER_DB_ID")
	}

	readerID := os.Getenv("READER_DB_ID")
	if readerID == "" {
		missing = append(missing, "READER_DB_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	var err error
	if cfg.FeederDatabaseID, err = NormalizeDatabaseID(feederID); err != nil {
		return nil, fmt.Errorf("invalid FEEDER_DB_ID: %w", err)
	}
	if cfg.ReaderDatabaseID, err = NormalizeDatabaseID(readerID); err != nil {
		return nil, fmt.Errorf("invalid READER_DB_ID: %w", err)
	}

	// Optional fields with defaults
	cfg.NotionBaseURL = strings.TrimRight(getEnvString("NOTION_API_BASE_URL", "https://api.notion.com"), "/")
	cfg.NotionVersion = getEnvString("NOTION_VERSION", "2022-06-28")
	cfg.NotionRateLimit = getEnvFloat("NOTION_RATE_LIMIT", 3)
	cfg.NotionTimeout = getEnvDuration("NOTION_TIMEOUT", 30*time.Second)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchAllowPrivate = getEnvBool("FETCH_ALLOW_PRIVATE", false)
	cfg.RecencyWindow = getEnvDuration("RECENCY_WINDOW", 7*24*time.Hour)
	cfg.LogLevel = getEnvLevel("LOG_LEVEL", slog.LevelInfo)
	cfg.PushgatewayURL = getEnvString("PUSHGATEWAY_URL", "")

	return cfg, nil
}

// NormalizeDatabaseID はNotionのデータベースIDをハイフン区切りのUUID形式に正規化する。
// NotionのURLからコピーした32桁の16進数形式も受け付ける。
func NormalizeDatabaseID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
