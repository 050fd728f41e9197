// Package config loads the wired CLI configuration from wired.yaml and
// WIRED_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Adapters known to the CLI.
var Adapters = []string{"http", "chi", "echo", "gin", "fiber"}

// Config is the CLI configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Modules ModulesConfig `mapstructure:"modules"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServerConfig selects the router and listen address.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Adapter string `mapstructure:"adapter"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LogConfig configures the application logger.
type LogConfig struct {
	Backend string `mapstructure:"backend"`
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
}

// ModulesConfig holds registration options.
type ModulesConfig struct {
	AllowCrossModuleCircularReference bool `mapstructure:"allow_cross_module_circular_reference"`
}

// AuthConfig configures the JWT guards.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Load reads the configuration. An empty path searches the working
// directory for wired.yaml; a missing file leaves the defaults. Environment
// variables override the file, e.g. WIRED_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.adapter", "chi")
	v.SetDefault("log.backend", "slog")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("modules.allow_cross_module_circular_reference", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", time.Hour)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("wired")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WIRED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the port and adapter.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	for _, a := range Adapters {
		if c.Server.Adapter == a {
			return nil
		}
	}
	return fmt.Errorf("unknown adapter %q (want one of %s)", c.Server.Adapter, strings.Join(Adapters, ", "))
}
