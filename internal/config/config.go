// Package config loads process-wide configuration once at startup.
//
// All knobs come from environment variables, optionally seeded from a .env
// file for local development. The loaded Config is passed explicitly to the
// components that need it — in particular the JWT secret goes to the token
// service as a value, never read from a global or embedded as a literal.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	Port      int           // PORT, default 8080
	DBPath    string        // DB_PATH, default data/accounts.db
	JWTSecret string        // JWT_SECRET, required
	TokenTTL  time.Duration // TOKEN_TTL, default 1h
	UploadDir string        // UPLOAD_DIR, default uploads
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first if present; real environment variables win.
//
// The JWT secret is the one hard requirement — refusing to start beats
// silently running with guessable tokens.
func Load() (Config, error) {
	// Ignore the error: a missing .env just means plain env vars.
	_ = godotenv.Load()

	cfg := Config{
		Port:      8080,
		DBPath:    "data/accounts.db",
		TokenTTL:  time.Hour,
		UploadDir: "uploads",
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required (generate one with: openssl rand -hex 32)")
	}

	if ttlStr := os.Getenv("TOKEN_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid TOKEN_TTL %q: %w", ttlStr, err)
		}
		cfg.TokenTTL = ttl
	}

	if uploadDir := os.Getenv("UPLOAD_DIR"); uploadDir != "" {
		cfg.UploadDir = uploadDir
	}

	return cfg, nil
}
