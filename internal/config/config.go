package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name string `yaml:"name" env:"APP_NAME"`
		Env  string `yaml:"env" env:"APP_ENV"`
	} `yaml:"app"`
	Server struct {
		Port           string   `yaml:"port" env:"PORT"`
		Enabled        bool     `yaml:"enabled" env:"HTTP_ENABLED"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	} `yaml:"server"`
	Telegram struct {
		Token       string `yaml:"token" env:"TELEGRAM_API_TOKEN"`
		PollTimeout int    `yaml:"poll_timeout" env:"TELEGRAM_POLL_TIMEOUT"`
		Debug       bool   `yaml:"debug" env:"TELEGRAM_DEBUG"`
	} `yaml:"telegram"`
	Bot struct {
		Workers             int    `yaml:"workers" env:"BOT_WORKERS"`
		FallbackUsername    string `yaml:"fallback_username" env:"BOT_FALLBACK_USERNAME"`
		GuardianshipLink    string `yaml:"guardianship_link" env:"GUARDIANSHIP_LINK"`
		WelcomeImage        string `yaml:"welcome_image" env:"BOT_WELCOME_IMAGE"`
		DebugCommands       bool   `yaml:"debug_commands" env:"BOT_DEBUG_COMMANDS"`
		EventTimeoutSeconds int    `yaml:"event_timeout_seconds" env:"BOT_EVENT_TIMEOUT_SECONDS"`
	} `yaml:"bot"`
	Content struct {
		Source        string `yaml:"source" env:"CONTENT_SOURCE"`
		QuestionsPath string `yaml:"questions_path" env:"CONTENT_QUESTIONS_PATH"`
		AnimalsPath   string `yaml:"animals_path" env:"CONTENT_ANIMALS_PATH"`
	} `yaml:"content"`
	Media struct {
		Root         string `yaml:"root" env:"MEDIA_ROOT"`
		GeneratedDir string `yaml:"generated_dir" env:"MEDIA_GENERATED_DIR"`
		TitleFont    string `yaml:"title_font" env:"MEDIA_TITLE_FONT"`
		TextFont     string `yaml:"text_font" env:"MEDIA_TEXT_FONT"`
		LogoPath     string `yaml:"logo_path" env:"MEDIA_LOGO_PATH"`
	} `yaml:"media"`
	RequestLog struct {
		Backend string `yaml:"backend" env:"REQUEST_LOG_BACKEND"`
		Dir     string `yaml:"dir" env:"REQUEST_LOG_DIR"`
	} `yaml:"request_log"`
	Logging struct {
		Level      string `yaml:"level" env:"LOG_LEVEL"`
		File       string `yaml:"file" env:"LOG_FILE"`
		MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
		MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	} `yaml:"logging"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		TTL      string `yaml:"ttl" env:"REDIS_SESSION_TTL"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"POSTGRES_URL"`
	} `yaml:"postgres"`
}

// Default returns the settings used when neither the file nor the
// environment provides a value.
func Default() Config {
	cfg := Config{}
	cfg.App.Name = "totem-quiz-bot"
	cfg.App.Env = "development"
	cfg.Server.Port = "8080"
	cfg.Server.Enabled = true
	cfg.Server.AllowedOrigins = []string{"*"}
	cfg.Telegram.PollTimeout = 60
	cfg.Bot.Workers = 8
	cfg.Bot.FallbackUsername = "MZoo_Bot"
	cfg.Bot.EventTimeoutSeconds = 30
	cfg.Bot.WelcomeImage = "media/logo/post.png"
	cfg.Content.Source = "file"
	cfg.Content.QuestionsPath = "data/questions.json"
	cfg.Content.AnimalsPath = "data/animals.json"
	cfg.Media.Root = "media"
	cfg.Media.GeneratedDir = "media/generated"
	cfg.Media.TitleFont = "media/fonts/title.otf"
	cfg.Media.TextFont = "media/fonts/text.otf"
	cfg.Media.LogoPath = "media/logo/logo.png"
	cfg.RequestLog.Backend = "file"
	cfg.RequestLog.Dir = "data"
	cfg.Logging.Level = "info"
	cfg.Logging.File = "data/logs/bot.log"
	cfg.Logging.MaxSizeMB = 5
	cfg.Logging.MaxBackups = 3
	cfg.Redis.TTL = "24h"
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies a
// .env file (if present) and environment variables. A missing config file is
// not an error: the bot can run from the environment alone.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the bot cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Content.Source {
	case "file":
		if c.Content.QuestionsPath == "" || c.Content.AnimalsPath == "" {
			errs = append(errs, errors.New("content: questions_path and animals_path are required"))
		}
	case "postgres":
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("content: postgres source needs postgres.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("content: unknown source %q", c.Content.Source))
	}
	switch c.RequestLog.Backend {
	case "file", "":
	case "postgres":
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("request_log: postgres backend needs postgres.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("request_log: unknown backend %q", c.RequestLog.Backend))
	}
	if !c.TransportsEnabled() {
		errs = append(errs, errors.New("no transport enabled: set telegram.token or server.enabled"))
	}
	if c.Bot.Workers <= 0 {
		errs = append(errs, errors.New("bot: workers must be positive"))
	}
	return errors.Join(errs...)
}

// TransportsEnabled reports whether at least one chat transport can run.
func (c Config) TransportsEnabled() bool {
	return c.Telegram.Token != "" || c.Server.Enabled
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
