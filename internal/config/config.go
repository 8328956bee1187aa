package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     int           `env:"PORT" envDefault:"5000"`
	DatabasePath   string        `env:"DATABASE_PATH" envDefault:"./scribe.db"`
	UploadsDir     string        `env:"UPLOADS_DIR" envDefault:"./uploads"`
	JWTSecret      string        `env:"JWT_SECRET,required"`
	TokenExpiry    time.Duration `env:"TOKEN_EXPIRY" envDefault:"168h"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

// Load reads configuration from the environment, after loading a local
// .env file when one is present.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
