package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"greetd/internal/paths"
)

// CurrentVersion is the only config schema version accepted
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides, e.g. GREETD_SERVER_PORT
const EnvPrefix = "GREETD"

const redacted = "********"

// Config represents the complete greetd configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version" yaml:"version"`

	Server   ServerConfig   `json:"server" mapstructure:"server" toml:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" mapstructure:"database" toml:"database" yaml:"database"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache" toml:"cache" yaml:"cache"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging" toml:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP listener configuration
type ServerConfig struct {
	Host     string `json:"host" mapstructure:"host" toml:"host" yaml:"host"`
	Port     int    `json:"port" mapstructure:"port" toml:"port" yaml:"port"`
	Greeting string `json:"greeting" mapstructure:"greeting" toml:"greeting" yaml:"greeting"`
}

// Addr returns host:port suitable for net.Listen
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains connection pool configuration
type DatabaseConfig struct {
	Driver            string `json:"driver" mapstructure:"driver" toml:"driver" yaml:"driver"`
	Host              string `json:"host" mapstructure:"host" toml:"host" yaml:"host"`
	Port              int    `json:"port" mapstructure:"port" toml:"port" yaml:"port"`
	User              string `json:"user" mapstructure:"user" toml:"user" yaml:"user"`
	Password          string `json:"password" mapstructure:"password" toml:"password" yaml:"password"`
	Name              string `json:"name" mapstructure:"name" toml:"name" yaml:"name"`
	SSLMode           string `json:"sslMode" mapstructure:"sslMode" toml:"ssl_mode" yaml:"sslMode"`
	Path              string `json:"path" mapstructure:"path" toml:"path" yaml:"path"`
	MaxOpenConns      int    `json:"maxOpenConns" mapstructure:"maxOpenConns" toml:"max_open_conns" yaml:"maxOpenConns"`
	MaxIdleConns      int    `json:"maxIdleConns" mapstructure:"maxIdleConns" toml:"max_idle_conns" yaml:"maxIdleConns"`
	ConnMaxIdleTimeMs int    `json:"connMaxIdleTimeMs" mapstructure:"connMaxIdleTimeMs" toml:"conn_max_idle_time_ms" yaml:"connMaxIdleTimeMs"`
}

// CacheConfig contains cache client configuration
type CacheConfig struct {
	Driver   string `json:"driver" mapstructure:"driver" toml:"driver" yaml:"driver"`
	Host     string `json:"host" mapstructure:"host" toml:"host" yaml:"host"`
	Port     int    `json:"port" mapstructure:"port" toml:"port" yaml:"port"`
	Password string `json:"password" mapstructure:"password" toml:"password" yaml:"password"`
	DB       int    `json:"db" mapstructure:"db" toml:"db" yaml:"db"`
	Size     int    `json:"size" mapstructure:"size" toml:"size" yaml:"size"`
}

// Addr returns host:port of the cache server
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string          `json:"format" mapstructure:"format" toml:"format" yaml:"format"`
	Level      string          `json:"level" mapstructure:"level" toml:"level" yaml:"level"`
	File       string          `json:"file" mapstructure:"file" toml:"file" yaml:"file"`
	MaxSize    string          `json:"maxSize" mapstructure:"maxSize" toml:"max_size" yaml:"maxSize"`
	MaxBackups int             `json:"maxBackups" mapstructure:"maxBackups" toml:"max_backups" yaml:"maxBackups"`
	Remote     RemoteLogConfig `json:"remote" mapstructure:"remote" toml:"remote" yaml:"remote"`
}

// RemoteLogConfig configures log shipping to a Loki endpoint
type RemoteLogConfig struct {
	Endpoint      string            `json:"endpoint" mapstructure:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Labels        map[string]string `json:"labels" mapstructure:"labels" toml:"labels" yaml:"labels"`
	BatchSize     int               `json:"batchSize" mapstructure:"batchSize" toml:"batch_size" yaml:"batchSize"`
	FlushInterval string            `json:"flushInterval" mapstructure:"flushInterval" toml:"flush_interval" yaml:"flushInterval"`
}

// DefaultConfig returns the default configuration. The server, database
// and cache values are the constants the service has always shipped with.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host:     "",
			Port:     3000,
			Greeting: "Hello from the backend",
		},
		Database: DatabaseConfig{
			Driver:            "postgres",
			Host:              "db",
			Port:              5432,
			User:              "myuser",
			Password:          "mypassword",
			Name:              "mydatabase",
			SSLMode:           "disable",
			Path:              "greetd.db",
			MaxOpenConns:      10,
			MaxIdleConns:      10,
			ConnMaxIdleTimeMs: 10000,
		},
		Cache: CacheConfig{
			Driver: "redis",
			Host:   "redis",
			Port:   6379,
			DB:     0,
			Size:   1024,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxBackups: 3,
			Remote: RemoteLogConfig{
				Labels:        map[string]string{},
				BatchSize:     100,
				FlushInterval: "5s",
			},
		},
	}
}

// LoadConfig loads configuration from <root>/.greetd/config.json, layered
// over the defaults and under GREETD_* environment variables.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()

	if err := setDefaults(v, DefaultConfig()); err != nil {
		return nil, err
	}

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.GetDataDir(root))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key of cfg with viper so that environment
// overrides apply even when the key is absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	setDefaultsFromMap(v, "", m)
	return nil
}

func setDefaultsFromMap(v *viper.Viper, prefix string, m map[string]interface{}) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]interface{}); ok && len(nested) > 0 {
			setDefaultsFromMap(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Save writes the configuration to <root>/.greetd/config.json
func (c *Config) Save(root string) error {
	if _, err := paths.EnsureDataDir(root); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(paths.GetConfigPath(root), data, 0600)
}

// Redacted returns a copy with secrets masked
func (c *Config) Redacted() *Config {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = redacted
	}
	if out.Cache.Password != "" {
		out.Cache.Password = redacted
	}
	return &out
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	if c.Server.Greeting == "" {
		return &ConfigError{Field: "server.greeting", Message: "must not be empty"}
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return &ConfigError{Field: "database.host", Message: "required for postgres"}
		}
		if c.Database.Name == "" {
			return &ConfigError{Field: "database.name", Message: "required for postgres"}
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return &ConfigError{Field: "database.port", Message: "must be between 1 and 65535"}
		}
	case "sqlite":
		if c.Database.Path == "" {
			return &ConfigError{Field: "database.path", Message: "required for sqlite"}
		}
	default:
		return &ConfigError{Field: "database.driver", Message: fmt.Sprintf("unknown driver %q", c.Database.Driver)}
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return &ConfigError{Field: "database.maxOpenConns", Message: "pool limits must not be negative"}
	}

	switch c.Cache.Driver {
	case "redis":
		if c.Cache.Host == "" {
			return &ConfigError{Field: "cache.host", Message: "required for redis"}
		}
		if c.Cache.Port <= 0 || c.Cache.Port > 65535 {
			return &ConfigError{Field: "cache.port", Message: "must be between 1 and 65535"}
		}
	case "memory":
		if c.Cache.Size <= 0 {
			return &ConfigError{Field: "cache.size", Message: "must be positive"}
		}
	default:
		return &ConfigError{Field: "cache.driver", Message: fmt.Sprintf("unknown driver %q", c.Cache.Driver)}
	}

	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
