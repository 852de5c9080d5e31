package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string

	JWTSecret   string
	JWTLifetime time.Duration
	BcryptCost  int

	CORSOrigins   []string
	FrontendURL   string
	ResetTokenTTL time.Duration

	CloudinaryURL string
	RedisURL      string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	GeocoderBaseURL string
	ChromePosters   bool
}

// Load reads .env (if present) and the process environment. Variables already
// set in the environment win over the file.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Env:             Get("APP_ENV", "development"),
		Port:            Get("PORT", "8000"),
		LogLevel:        Get("LOG_LEVEL", "info"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTLifetime:     getDuration("JWT_LIFETIME", time.Hour),
		BcryptCost:      getInt("BCRYPT_COST", 10),
		CORSOrigins:     getList("CORS_ORIGINS"),
		FrontendURL:     strings.TrimRight(Get("FRONTEND_URL", "http://127.0.0.1:5173"), "/"),
		ResetTokenTTL:   time.Duration(getInt("RESET_TOKEN_TTL_MIN", 30)) * time.Minute,
		CloudinaryURL:   os.Getenv("CLOUDINARY_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		BrevoAPIKey:     os.Getenv("BREVO_API_KEY"),
		EmailSender:     os.Getenv("EMAIL_SENDER"),
		EmailSenderName: Get("EMAIL_SENDER_NAME", "Retrieve"),
		GeocoderBaseURL: Get("GEOCODER_BASE_URL", "https://api.zippopotam.us"),
		ChromePosters:   getBool("CHROME_POSTERS", false),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("missing JWT_SECRET")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("missing DATABASE_URL")
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

// Get returns the environment value for key or fallback when unset.
func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
