package utils

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadEnv() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("RECIPEHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("RECIPEHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "recipehub"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: time.Duration(envInt("RECIPEHUB_JWT_TTL_HOURS", 24)) * time.Hour,
	}
}

type ServerConfig struct {
	Addr         string
	ContentDir   string
	ImageBaseURL string
	RedisAddr    string
	CORSOrigins  []string
}

func LoadServerConfig() ServerConfig {
	cfg := ServerConfig{
		Addr:         envString("RECIPEHUB_ADDR", ":3000"),
		ContentDir:   envString("RECIPEHUB_CONTENT_DIR", "images"),
		ImageBaseURL: envString("RECIPEHUB_IMAGE_BASE_URL", "/images/"),
		RedisAddr:    os.Getenv("RECIPEHUB_REDIS_ADDR"),
		CORSOrigins:  []string{"*"},
	}
	if origins := os.Getenv("RECIPEHUB_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if !strings.HasSuffix(cfg.ImageBaseURL, "/") {
		cfg.ImageBaseURL += "/"
	}
	return cfg
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt falls back to def when the variable is unset, malformed or not positive.
func envInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
