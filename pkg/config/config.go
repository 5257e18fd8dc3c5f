// Package config loads the bridge's configuration from a YAML file, then
// overlays environment variables on top of it.
package config

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mkixbridge/bridge/pkg/mkerr"
)

// Config holds everything the bridge needs to talk to MkIX and OneBot.
type Config struct {
	Account     string            `yaml:"account" env:"MKIXBRIDGE_ACCOUNT"`
	Password    string            `yaml:"password" env:"MKIXBRIDGE_PASSWORD"`
	ServerURL   string            `yaml:"server_url" env:"MKIXBRIDGE_SERVER_URL"`
	OneBotURL   string            `yaml:"OneBot_url" env:"MKIXBRIDGE_ONEBOT_URL"`
	MaxMemoSize int               `yaml:"max_memo_size" env:"MKIXBRIDGE_MAX_MEMO_SIZE" envDefault:"200"`
	SSLCheck    bool              `yaml:"ssl_check" env:"MKIXBRIDGE_SSL_CHECK" envDefault:"true"`
	WebP        bool              `yaml:"webp" env:"MKIXBRIDGE_WEBP"`
	Encrypt     map[string]string `yaml:"encrypt"`
	LogLevel    string            `yaml:"log_level" env:"MKIXBRIDGE_LOG_LEVEL" envDefault:"info"`

	// Token is populated at runtime by the login call, not read from disk.
	Token string `yaml:"-"`

	// passwordHashed tracks whether Password has already been MD5-digested,
	// so reloads don't hash an already-hashed value.
	passwordHashed bool
}

// Load reads path as YAML, applies defaults, then overlays environment
// variables, mirroring the way the teacher's own config package layers
// env.Parse on top of a JSON-loaded template.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", mkerr.ErrConfig, path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", mkerr.ErrConfig, path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: applying env overrides: %w", mkerr.ErrConfig, err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	if c.Account == "" || c.Password == "" || c.ServerURL == "" || c.OneBotURL == "" {
		return fmt.Errorf("%w: account, password, server_url and onebot_url are required", mkerr.ErrConfig)
	}
	if c.MaxMemoSize <= 0 {
		return fmt.Errorf("%w: max_memo_size must be positive", mkerr.ErrConfig)
	}
	if !c.passwordHashed {
		sum := md5.Sum([]byte(c.Password))
		c.Password = hex.EncodeToString(sum[:])
		c.passwordHashed = true
	}
	if c.Encrypt == nil {
		c.Encrypt = map[string]string{}
	}
	return nil
}

// EncryptKeyFor returns the AES key configured for group, and whether one exists.
func (c *Config) EncryptKeyFor(group string) (string, bool) {
	key, ok := c.Encrypt[group]
	return key, ok
}
