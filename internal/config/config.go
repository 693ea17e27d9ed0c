// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	DataDir    string
	APIKey     string
	RateLimits RateLimits
}

type RateLimits struct {
	SlidePerMinute int
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	addr := envString("PPTX_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":5000"
		}
	}

	return Config{
		Addr:    addr,
		DataDir: envString("PPTX_DATA_DIR", "data"),
		APIKey:  envString("PPTX_API_KEY", "dev-api-key"),
		RateLimits: RateLimits{
			SlidePerMinute: envInt("PPTX_RL_SLIDE_PER_MIN", 60),
		},
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
