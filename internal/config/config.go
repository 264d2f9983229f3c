package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	DB          DBConfig          `yaml:"db"`
	Log         LogConfig         `yaml:"log"`
	Auth        AuthConfig        `yaml:"auth"`
	Positioning PositioningConfig `yaml:"positioning"`
	CORS        CORSConfig        `yaml:"cors"`
	MCP         MCPConfig         `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Path optionally redirects logs to a size-capped file.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// PositioningConfig tunes fractional positions and move retries.
type PositioningConfig struct {
	Gap         float64 `yaml:"gap"`
	MinSpacing  float64 `yaml:"min_spacing"`
	MoveRetries int     `yaml:"move_retries"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "tasklane.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-change-me",
			TokenTTL:  7 * 24 * time.Hour,
		},
		Positioning: PositioningConfig{
			Gap:         1000,
			MinSpacing:  1,
			MoveRetries: 3,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("TASKLANE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TASKLANE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TASKLANE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKLANE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("TASKLANE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TASKLANE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("TASKLANE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if secret := os.Getenv("TASKLANE_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if ttlStr := os.Getenv("TASKLANE_TOKEN_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKLANE_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = ttl
	}
	if gapStr := os.Getenv("TASKLANE_POSITION_GAP"); gapStr != "" {
		gap, err := strconv.ParseFloat(gapStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKLANE_POSITION_GAP: %w", err)
		}
		cfg.Positioning.Gap = gap
	}
	if retriesStr := os.Getenv("TASKLANE_MOVE_RETRIES"); retriesStr != "" {
		retries, err := strconv.Atoi(retriesStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKLANE_MOVE_RETRIES: %w", err)
		}
		cfg.Positioning.MoveRetries = retries
	}
	if origins := os.Getenv("TASKLANE_CORS_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = splitList(origins)
	}
	if enabled := os.Getenv("TASKLANE_MCP_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKLANE_MCP_ENABLED: %w", err)
		}
		cfg.MCP.Enabled = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PositionGap returns the append gap as a decimal.
func (c PositioningConfig) PositionGap() decimal.Decimal {
	return decimal.NewFromFloat(c.Gap)
}

// PositionMinSpacing returns the renumber spacing floor as a decimal.
func (c PositioningConfig) PositionMinSpacing() decimal.Decimal {
	return decimal.NewFromFloat(c.MinSpacing)
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Positioning.Gap <= 0 {
		return fmt.Errorf("positioning.gap must be positive")
	}
	if c.Positioning.MinSpacing <= 0 || c.Positioning.MinSpacing > c.Positioning.Gap {
		return fmt.Errorf("positioning.min_spacing must be in (0, gap]")
	}
	if c.Positioning.MoveRetries < 0 {
		return fmt.Errorf("positioning.move_retries must not be negative")
	}
	return nil
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

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
