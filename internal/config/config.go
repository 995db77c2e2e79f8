package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds the server settings read from the environment.
type Config struct {
	Env            string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	AdminUsers     []string
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function so tests do not have to touch the
// process environment.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		Env:            get("APP_ENV", "development"),
		Port:           get("PORT", "8080"),
		DatabaseURL:    get("DATABASE_URL", "file:minecarbon.db"),
		JWTSecret:      get("JWT_SECRET", ""),
		AllowedOrigins: splitList(get("ALLOWED_ORIGINS", "*")),
		AdminUsers:     splitList(get("ADMIN_USERS", "")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, errors.Errorf("invalid PORT %q", cfg.Port)
	}

	ttl, err := time.ParseDuration(get("TOKEN_TTL", "24h"))
	if err != nil {
		return Config{}, errors.Wrap(err, "invalid TOKEN_TTL")
	}
	if ttl <= 0 {
		return Config{}, errors.New("TOKEN_TTL must be positive")
	}
	cfg.TokenTTL = ttl

	return cfg, nil
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsAdmin reports whether username was configured as an administrator.
func (c Config) IsAdmin(username string) bool {
	for _, u := range c.AdminUsers {
		if u == username {
			return true
		}
	}
	return false
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
