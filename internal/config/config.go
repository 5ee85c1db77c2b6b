package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vbonduro/librarydesk/internal/labels"
)

// EnvPrefix namespaces every environment variable the client reads.
const EnvPrefix = "LIBRARYDESK"

type Config struct {
	APIBaseURL  string
	DataDir     string
	DBPath      string
	ReportDir   string
	Language    string
	LogLevel    string
	LogFile     string
	HTTPTimeout time.Duration

	StatusInterval time.Duration

	QRResizeThreshold int64
	QRMaxDimension    int
	QRMaxUploadBytes  int64
	QRAttemptTimeout  time.Duration
	Platform          string
	ClaudeAPIKey      string
	ClaudeModel       string

	ListenAddr          string
	ReminderSubject     string
	ReminderConcurrency int
	BatchReminders      bool
}

// Load merges defaults, an optional config.yaml in the data directory, a .env
// file in the working directory and LIBRARYDESK_* environment variables, in
// increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	dataDir := v.GetString("data_dir")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		APIBaseURL:          v.GetString("api_url"),
		DataDir:             dataDir,
		DBPath:              v.GetString("db_path"),
		ReportDir:           v.GetString("report_dir"),
		Language:            v.GetString("language"),
		LogLevel:            v.GetString("log_level"),
		LogFile:             v.GetString("log_file"),
		HTTPTimeout:         v.GetDuration("http_timeout"),
		StatusInterval:      v.GetDuration("status_interval"),
		QRResizeThreshold:   v.GetInt64("qr_resize_threshold"),
		QRMaxDimension:      v.GetInt("qr_max_dimension"),
		QRMaxUploadBytes:    v.GetInt64("qr_max_upload_bytes"),
		QRAttemptTimeout:    v.GetDuration("qr_attempt_timeout"),
		Platform:            v.GetString("platform"),
		ClaudeAPIKey:        v.GetString("claude_api_key"),
		ClaudeModel:         v.GetString("claude_model"),
		ListenAddr:          v.GetString("listen_addr"),
		ReminderSubject:     v.GetString("reminder_subject"),
		ReminderConcurrency: v.GetInt("reminder_concurrency"),
		BatchReminders:      v.GetBool("batch_reminders"),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dataDir, "librarydesk.db")
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = filepath.Join(dataDir, "reports")
	}
	if cfg.Language == "" || !labels.Supported(cfg.Language) {
		cfg.Language = labels.Detect(os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG"))
	}
	if cfg.ReminderConcurrency < 1 {
		cfg.ReminderConcurrency = 1
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:5000")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("db_path", "")
	v.SetDefault("report_dir", "")
	v.SetDefault("language", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("status_interval", 60*time.Second)
	v.SetDefault("qr_resize_threshold", 1<<20)
	v.SetDefault("qr_max_dimension", 1200)
	v.SetDefault("qr_max_upload_bytes", 20<<20)
	v.SetDefault("qr_attempt_timeout", 10*time.Second)
	v.SetDefault("platform", "")
	v.SetDefault("claude_api_key", "")
	v.SetDefault("claude_model", "claude-sonnet-4-5")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("reminder_subject", "")
	v.SetDefault("reminder_concurrency", 8)
	v.SetDefault("batch_reminders", false)
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "librarydesk")
	}
	return ".librarydesk"
}
