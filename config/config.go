package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string
	ServerPort  int
	LogLevel    slog.Level

	CacheTTL            time.Duration
	CacheMaxEntries     int
	CacheComputeTimeout time.Duration

	CORSAllowedOrigins []string

	ScoringConfigPath string
	Scoring           *ScoringConfig

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// R2Configured reports whether snapshot uploads can be enabled.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intVar(getenv, "SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	level := slog.LevelInfo
	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
		}
	}

	ttl, err := intVar(getenv, "CACHE_TTL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	maxEntries, err := intVar(getenv, "CACHE_MAX_ENTRIES", 2000)
	if err != nil {
		return nil, err
	}
	computeTimeout, err := intVar(getenv, "CACHE_COMPUTE_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 || maxEntries <= 0 || computeTimeout <= 0 {
		return nil, fmt.Errorf("cache settings must be positive (ttl=%d, max_entries=%d, compute_timeout=%d)", ttl, maxEntries, computeTimeout)
	}

	origins := []string{"*"}
	if raw := getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	scoringPath := getenv("SCORING_CONFIG_PATH")
	scoringCfg := DefaultScoring()
	if scoringPath != "" {
		scoringCfg, err = LoadScoring(scoringPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		DatabaseURL:         dbURL,
		ServerPort:          port,
		LogLevel:            level,
		CacheTTL:            time.Duration(ttl) * time.Second,
		CacheMaxEntries:     maxEntries,
		CacheComputeTimeout: time.Duration(computeTimeout) * time.Second,
		CORSAllowedOrigins:  origins,
		ScoringConfigPath:   scoringPath,
		Scoring:             scoringCfg,
		R2AccountID:         getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:       getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:   getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:        getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:     getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func intVar(getenv func(string) string, name string, def int) (int, error) {
	raw := getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}
