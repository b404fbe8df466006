package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	RedisAddr string // empty disables the image-URL cache

	AuthSecret    string
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string

	// Per-module countdown durations. Modules 1-2 share the verbal
	// duration, modules 3-4 the quantitative one.
	VerbalModuleSec int
	QuantModuleSec  int

	ScaleTablePath string // JSON raw->scaled table; empty uses the built-in curve

	AI       AIConfig
	Telegram TelegramConfig

	// Batch scoring / external-call knobs.
	ScoreConcurrency int
	RetryMax         int
	RetryBaseDelay   time.Duration
}

type AIConfig struct {
	APIKey    string `json:"-"`
	BaseURL   string `json:"baseUrl"`
	Model     string `json:"model"`
	TimeoutMS int    `json:"timeoutMs"`
}

// IsEnabled reports whether the analysis API is configured.
func (c AIConfig) IsEnabled() bool { return c.APIKey != "" }

// ModelEndpoint returns the full generateContent endpoint for the model.
func (c AIConfig) ModelEndpoint() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/" + c.Model + ":generateContent"
}

type TelegramConfig struct {
	BotToken string `json:"-"`
	ChatID   string `json:"chatId"` // publication announcements go here
	APIBase  string `json:"apiBase"`
}

func (c TelegramConfig) IsEnabled() bool { return c.BotToken != "" }

// FromEnv builds the configuration from environment variables. A local
// .env file is honored when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:  envOr("HTTP_ADDR", ":8080"),
		PublicURL: os.Getenv("PUBLIC_URL"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		AuthSecret:    envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),

		VerbalModuleSec: envInt("VERBAL_MODULE_SEC", 32*60),
		QuantModuleSec:  envInt("QUANT_MODULE_SEC", 35*60),

		ScaleTablePath: os.Getenv("SCALE_TABLE_PATH"),

		AI: AIConfig{
			APIKey:    os.Getenv("GEMINI_API_KEY"),
			BaseURL:   envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
			Model:     envOr("GEMINI_MODEL", "gemini-2.0-flash"),
			TimeoutMS: envInt("GEMINI_TIMEOUT_MS", 30000),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
			APIBase:  envOr("TELEGRAM_API_BASE", "https://api.telegram.org"),
		},

		ScoreConcurrency: envInt("SCORE_CONCURRENCY", 3),
		RetryMax:         envInt("RETRY_MAX", 3),
		RetryBaseDelay:   time.Duration(envInt("RETRY_BASE_DELAY_MS", 500)) * time.Millisecond,
	}

	if !cfg.AI.IsEnabled() {
		log.Printf("config: GEMINI_API_KEY unset, AI analysis disabled")
	}
	if !cfg.Telegram.IsEnabled() {
		log.Printf("config: TELEGRAM_BOT_TOKEN unset, image hosting and notifications disabled")
	}
	return cfg
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
