// Package config loads the service settings. Values come from the
// environment; CONFIG_PATH may point at a YAML file whose keys are
// overridden by the matching env vars.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ovaphlow/pitchfork/service-roster-go/internal/auth"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8432"`

	Token     Token     `yaml:"token"`
	Bootstrap Bootstrap `yaml:"bootstrap"`

	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
}

type Token struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	Issuer     string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"roster-api"`
	TTL        time.Duration `yaml:"ttl" env:"TOKEN_TTL" env-default:"24h"`
	ExpiryMode string        `yaml:"expiry_mode" env:"TOKEN_EXPIRY_MODE" env-default:"per-token"`
}

// Bootstrap names the administrator created on first start. An empty
// username turns it off.
type Bootstrap struct {
	Username string `yaml:"username" env:"BOOTSTRAP_ADMIN_USERNAME"`
	Password string `yaml:"password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads the config and checks the values cleanenv cannot.
func Load() (*Config, error) {
	var cfg Config
	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := auth.ParseExpiryMode(c.Token.ExpiryMode); err != nil {
		return fmt.Errorf("TOKEN_EXPIRY_MODE: %w", err)
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Token.TTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST out of range: %d", c.BcryptCost)
	}
	return nil
}

// Description renders the env var help text.
func Description() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
