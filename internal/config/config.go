package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment   string              `mapstructure:"environment" validate:"oneof=development production test"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Workers       WorkersConfig       `mapstructure:"workers"`
	ModifierCache ModifierCacheConfig `mapstructure:"modifier_cache"`
	Production    ProductionConfig    `mapstructure:"production"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port" validate:"required"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=silent error warn info"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required"`
}

// WorkersConfig sets the number of workers per job type.
type WorkersConfig struct {
	Resource        int           `mapstructure:"resource" validate:"min=0"`
	Modifier        int           `mapstructure:"modifier" validate:"min=0"`
	Training        int           `mapstructure:"training" validate:"min=0"`
	Building        int           `mapstructure:"building" validate:"min=0"`
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type ModifierCacheConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	TTL                 time.Duration `mapstructure:"ttl" validate:"gt=0"`
	MaxEntriesPerPlayer int           `mapstructure:"max_entries_per_player" validate:"min=1"`
}

type ProductionConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

// Load reads configuration with the following priority:
// 1. Environment variables (EMPIRE_ prefix, plus bare DATABASE_URL and JWT_SECRET)
// 2. Config file (config.yaml)
// 3. Defaults
func Load(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("EMPIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		v.Set("auth.jwt_secret", secret)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
