package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/database"
	"arxiv_digest/internal/llm"
	"arxiv_digest/internal/services"

	"github.com/joho/godotenv"
)

type Config struct {
	LLMProvider    string
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	Temperature    float32
	ArxivBaseURL   string
	Categories     []string
	PageSize       int
	Delay          time.Duration
	MaxRetries     int
	TopN           int
	OutputFile     string
	Database       database.Settings
	GCSBucketName  string
	Port           string
	AllowedOrigins []string
	JWTSecret      string
	ReportsDir     string
	RunTimeout     time.Duration
	RunRetention   time.Duration
	PingInterval   time.Duration
}

func NewConfig() *Config {
	return &Config{
		LLMProvider:    "gemini",
		GeminiModel:    llm.DefaultGeminiModel,
		OpenAIModel:    llm.DefaultOpenAIModel,
		Temperature:    0.7,
		ArxivBaseURL:   arxiv.DefaultBaseURL,
		Categories:     []string{"cs.CL"},
		PageSize:       arxiv.DefaultPageSize,
		Delay:          arxiv.DefaultDelay,
		MaxRetries:     arxiv.DefaultMaxRetries,
		TopN:           services.DefaultTopN,
		OutputFile:     services.DefaultOutputFile,
		Port:           "3000",
		AllowedOrigins: []string{"http://localhost:5173"},
		ReportsDir:     "reports",
		RunTimeout:     30 * time.Minute,
		RunRetention:   15 * time.Minute,
		PingInterval:   30 * time.Second,
	}
}

// Load reads .env files (missing files are ignored) and applies the
// environment on top of the defaults.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)
	cfg := NewConfig()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString(&c.LLMProvider, getenv("LLM_PROVIDER"))
	setString(&c.GeminiAPIKey, getenv("GOOGLE_AI_STUDIO_API_KEY"))
	setString(&c.GeminiModel, getenv("GEMINI_MODEL_NAME"))
	setString(&c.OpenAIAPIKey, getenv("OPENAI_API_KEY"))
	setString(&c.OpenAIModel, getenv("OPENAI_MODEL_NAME"))
	setString(&c.OpenAIBaseURL, getenv("OPENAI_BASE_URL"))
	setString(&c.ArxivBaseURL, getenv("ARXIV_BASE_URL"))
	setString(&c.OutputFile, getenv("OUTPUT_FILE"))
	setString(&c.GCSBucketName, getenv("GCS_BUCKET_NAME"))
	setString(&c.Port, getenv("PORT"))
	setString(&c.JWTSecret, getenv("API_JWT_SECRET"))
	setString(&c.ReportsDir, getenv("REPORTS_DIR"))

	setString(&c.Database.Host, getenv("DB_HOST"))
	setString(&c.Database.User, getenv("DB_USER"))
	setString(&c.Database.Password, getenv("DB_PASSWORD"))
	setString(&c.Database.Name, getenv("DB_NAME"))
	setString(&c.Database.Port, getenv("DB_PORT"))

	if v := getenv("ARXIV_CATEGORIES"); v != "" {
		c.Categories = SplitList(v)
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = SplitList(v)
	}

	var err error
	if c.PageSize, err = intEnv(getenv, "ARXIV_PAGE_SIZE", c.PageSize); err != nil {
		return err
	}
	if c.TopN, err = intEnv(getenv, "TOP_N", c.TopN); err != nil {
		return err
	}
	if c.Delay, err = durationEnv(getenv, "ARXIV_DELAY", c.Delay); err != nil {
		return err
	}
	if c.RunTimeout, err = durationEnv(getenv, "RUN_TIMEOUT", c.RunTimeout); err != nil {
		return err
	}
	if c.RunRetention, err = durationEnv(getenv, "RUN_RETENTION", c.RunRetention); err != nil {
		return err
	}
	if v := getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("LLM_TEMPERATURE: %w", err)
		}
		c.Temperature = float32(t)
	}
	return nil
}

// DatabaseEnabled reports whether report persistence is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != ""
}

// SplitList splits a comma separated list and drops empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// durationEnv accepts Go durations ("3s") or plain seconds ("3"). Negative
// values are rejected.
func durationEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	var d time.Duration
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else if d, err = time.ParseDuration(v); err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %q", key, v)
	}
	return d, nil
}
