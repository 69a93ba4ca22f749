package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Addr    string   `mapstructure:"addr"`
	APIKeys []string `mapstructure:"api_keys"`
	// MaxUploadMB caps multipart upload bodies.
	MaxUploadMB int64 `mapstructure:"max_upload_mb"`
}

type GitHubConfig struct {
	Username string `mapstructure:"username"`
	Token    string `mapstructure:"token"`
	BaseURL  string `mapstructure:"base_url"`
	// ContentOwner/ContentRepo receive uploaded files. Owner defaults to Username.
	ContentOwner string `mapstructure:"content_owner"`
	ContentRepo  string `mapstructure:"content_repo"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type ClassifierConfig struct {
	MaxTags int `mapstructure:"max_tags"`
}

type CaptureConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type StorageConfig struct {
	// Backend is one of memory, file, sqlite, postgres, redis.
	Backend    string         `mapstructure:"backend"`
	Name       string         `mapstructure:"name"`
	DataDir    string         `mapstructure:"data_dir"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	RedisURL   string         `mapstructure:"redis_url"`
	Database   DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type TelegramConfig struct {
	Token        string  `mapstructure:"token"`
	AllowedUsers []int64 `mapstructure:"allowed_users"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

var backends = map[string]bool{"memory": true, "file": true, "sqlite": true, "postgres": true, "redis": true}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q: %w", u.Port(), err)
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		// Remove leading slash from path to get database name
		DBName:  strings.TrimPrefix(u.Path, "/"),
		SSLMode: sslMode,
	}, nil
}

// LoadConfig reads path when it exists, then applies environment overrides.
// A missing file leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("server.max_upload_mb", 100)
	v.SetDefault("github.username", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.content_owner", "")
	v.SetDefault("github.content_repo", "portfolio-v2-content")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 200)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("classifier.max_tags", 5)
	v.SetDefault("capture.timeout", 15*time.Second)
	v.SetDefault("capture.user_agent", "knowledge-hub/1.0")
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.name", "knowledge-hub-storage")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.sqlite_path", "data/hub.sqlite")
	v.SetDefault("storage.redis_url", "redis://localhost:6379/0")
	v.SetDefault("storage.database.host", "localhost")
	v.SetDefault("storage.database.port", 5432)
	v.SetDefault("storage.database.user", "postgres")
	v.SetDefault("storage.database.password", "")
	v.SetDefault("storage.database.dbname", "knowledge_hub")
	v.SetDefault("storage.database.sslmode", "disable")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.allowed_users", []int64{})
	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")

	// Enable environment variable support, e.g. STORAGE_BACKEND for storage.backend
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Storage.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if token := v.GetString("GITHUB_TOKEN"); token != "" {
		config.GitHub.Token = token
	}
	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Storage.RedisURL = redisURL
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if !backends[c.Storage.Backend] {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Classifier.MaxTags <= 0 {
		return fmt.Errorf("classifier.max_tags must be positive, got %d", c.Classifier.MaxTags)
	}
	return nil
}
