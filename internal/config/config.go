package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultMaxUploadBytes is the request body ceiling for upload endpoints.
const DefaultMaxUploadBytes = 100 << 20

type Config struct {
	Server    ServerConfig
	Upload    UploadConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	STT       STTConfig
	OCR       OCRConfig
	Translate TranslateConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type UploadConfig struct {
	MaxBytes   int64
	ScratchDir string
	MaxAge     time.Duration // sweep threshold for orphaned scratch entries
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBaseURL  string // default: "http://localhost:8178/v1"
	LocalModel    string
}

type OCRConfig struct {
	TesseractPath string
	Languages     string // tesseract -l argument, e.g. "eng+spa"
}

type TranslateConfig struct {
	Provider      string // "openai", "anthropic" or "ollama"
	Model         string
	OpenAIKey     string
	OpenAIBaseURL string // OpenAI-compatible endpoint; empty means api.openai.com
	AnthropicKey  string
	OllamaURL     string
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, is loaded first and never overrides variables that
// are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxUpload, err := getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	maxAgeMin, err := getEnvInt("SCRATCH_MAX_AGE_MINUTES", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid SCRATCH_MAX_AGE_MINUTES: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cacheTTLMin, err := getEnvInt("TRANSLATE_CACHE_TTL_MINUTES", 24*60)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSLATE_CACHE_TTL_MINUTES: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Upload: UploadConfig{
			MaxBytes:   maxUpload,
			ScratchDir: getEnv("SCRATCH_DIR", filepath.Join(wd, "temp_uploads")),
			MaxAge:     time.Duration(maxAgeMin) * time.Minute,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			CacheTTL: time.Duration(cacheTTLMin) * time.Minute,
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", ""),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178/v1"),
			LocalModel:    getEnv("STT_LOCAL_MODEL", ""),
		},
		OCR: OCRConfig{
			TesseractPath: getEnv("TESSERACT_PATH", ""),
			Languages:     getEnv("OCR_LANGUAGES", "eng"),
		},
		Translate: TranslateConfig{
			Provider:      getEnv("TRANSLATE_PROVIDER", "openai"),
			Model:         getEnv("TRANSLATE_MODEL", ""),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("TRANSLATE_OPENAI_BASE_URL", ""),
			AnthropicKey:  getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:     getEnv("OLLAMA_URL", "http://localhost:11434"),
		},
	}

	return cfg, cfg.Validate()
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var problems []string
	if c.Upload.MaxBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}
	if c.Upload.ScratchDir == "" {
		problems = append(problems, "SCRATCH_DIR must not be empty")
	}
	switch c.STT.Backend {
	case "openai", "local":
	default:
		problems = append(problems, fmt.Sprintf("unknown STT_BACKEND %q", c.STT.Backend))
	}
	switch c.Translate.Provider {
	case "openai", "anthropic", "ollama":
	default:
		problems = append(problems, fmt.Sprintf("unknown TRANSLATE_PROVIDER %q", c.Translate.Provider))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
