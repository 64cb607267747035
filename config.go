package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"yatube/cache"
	"yatube/database"
	"yatube/log"
)

// Config holds everything the app can be configured with. Values come from
// the defaults below, an optional config.yaml and YATUBE_* environment
// variables, in increasing order of precedence.
type Config struct {
	Port      int
	Env       string
	Pepper    string
	HMACKey   string        `mapstructure:"hmac_key"`
	// CSRFKey must be 32 bytes. Quote it in config.yaml, YAML reads a key
	// made of digits only as a number.
	CSRFKey   string        `mapstructure:"csrf_key"`
	MediaRoot string        `mapstructure:"media_root"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	// CacheSize bounds the number of cached listing pages.
	CacheSize int           `mapstructure:"cache_size"`
	Log       LogConfig
	Database  database.Config
	Kafka     KafkaConfig
}

type LogConfig struct {
	Level string
	JSON  bool
}

// KafkaConfig configures event publishing. Events are dropped when no
// brokers are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// IsProd reports whether we're running in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// Addr returns the address the web server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// logConfig returns the settings of the app logger.
func (c Config) logConfig() log.Config {
	return log.Config{Level: log.Level(c.Log.Level), JSONOutput: c.Log.JSON}
}

// Validate checks settings that would otherwise only fail at request time.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		return errors.New("csrf_key must be exactly 32 bytes long")
	}
	if c.IsProd() && c.CSRFKey == "" {
		return errors.New("csrf_key is required in production")
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache_ttl must be positive")
	}
	if c.CacheSize <= 0 {
		return errors.New("cache_size must be positive")
	}
	switch c.Database.Dialect {
	case database.DialectPostgres, database.DialectSQLite:
	default:
		return fmt.Errorf("unknown database dialect %q", c.Database.Dialect)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("env", "dev")
	v.SetDefault("pepper", "secret-random-string")
	v.SetDefault("hmac_key", "secret-hmac-key")
	v.SetDefault("csrf_key", "")
	v.SetDefault("media_root", "media")
	v.SetDefault("cache_ttl", "20s")
	v.SetDefault("cache_size", cache.DefaultSize)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("database.dialect", database.DialectSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "yatube")
	v.SetDefault("database.path", "yatube.db")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "yatube-events")
}

// LoadConfig reads the configuration. path names the config file; when it
// is empty, config.yaml is looked up in the working directory. In
// production a config file is required and the app refuses to start
// without one.
func LoadConfig(path string, prod bool) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("YATUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if prod {
			return Config{}, errors.New("a config.yaml file is required in production")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if prod {
		c.Env = "prod"
	}
	return c, c.Validate()
}
