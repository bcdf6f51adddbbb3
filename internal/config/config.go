package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultDatabaseURL    = "daily_planner.db"
	DefaultReportInterval = 5 * time.Hour
	// FileEnv names the variable holding the optional TOML config path.
	FileEnv = "PLANNER_CONFIG"
)

var ErrNoToken = errors.New("TELEGRAM_TOKEN is required")

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	ReportInterval time.Duration
	// DailyReportAt is an HH:MM wall-clock time in Location; empty disables
	// the fixed-time report.
	DailyReportAt string
	// Location is the reference timezone that decides what "today" is.
	Location   *time.Location
	LogLevel   string
	LogConsole bool
}

// fileConfig is the TOML shape of Config.
type fileConfig struct {
	TelegramToken       string `toml:"telegram_token"`
	DatabaseURL         string `toml:"database_url"`
	ReportIntervalHours int    `toml:"report_interval_hours"`
	DailyReportAt       string `toml:"daily_report_at"`
	Timezone            string `toml:"timezone"`
	Log                 struct {
		Level   string `toml:"level"`
		Console bool   `toml:"console"`
	} `toml:"log"`
}

// Load reads the settings the bot needs and requires a Telegram token.
func Load() (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return cfg, err
	}
	if cfg.TelegramToken == "" {
		return cfg, ErrNoToken
	}
	return cfg, nil
}

// LoadFile reads settings from .env, the optional TOML file named by
// PLANNER_CONFIG and the environment, in increasing priority. It does not
// require a token, so offline tooling can use it.
func LoadFile() (Config, error) {
	_ = godotenv.Load(".env")

	var file fileConfig
	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := toml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	cfg := Config{
		TelegramToken:  getEnv("TELEGRAM_TOKEN", file.TelegramToken),
		DatabaseURL:    getEnv("DATABASE_URL", file.DatabaseURL),
		ReportInterval: time.Duration(file.ReportIntervalHours) * time.Hour,
		DailyReportAt:  getEnv("DAILY_REPORT_AT", file.DailyReportAt),
		LogLevel:       getEnv("LOG_LEVEL", file.Log.Level),
		LogConsole:     file.Log.Console,
	}
	if raw, ok := lookupEnv("REPORT_INTERVAL_HOURS"); ok {
		cfg.ReportInterval = parseInterval(raw)
	}
	if raw, ok := lookupEnv("LOG_CONSOLE"); ok {
		console, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("LOG_CONSOLE: %w", err)
		}
		cfg.LogConsole = console
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = DefaultReportInterval
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	loc, err := loadLocation(getEnv("TIMEZONE", file.Timezone))
	if err != nil {
		return cfg, err
	}
	cfg.Location = loc

	if cfg.DailyReportAt != "" {
		if _, err := time.Parse("15:04", cfg.DailyReportAt); err != nil {
			return cfg, fmt.Errorf("DAILY_REPORT_AT %q: expected HH:MM", cfg.DailyReportAt)
		}
	}
	return cfg, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func getEnv(key, fallback string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return fallback
}

// lookupEnv treats blank values as unset.
func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
