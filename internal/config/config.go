package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the server runtime parameters.
type Config struct {
	HTTPAddress         string         `mapstructure:"http_address"`
	LogLevel            string         `mapstructure:"log_level"`
	ShutdownGracePeriod time.Duration  `mapstructure:"shutdown_grace_period"`
	Database            DatabaseConfig `mapstructure:"database"`
	JWTSecretEnv        string         `mapstructure:"jwt_secret_env"`
	UploadDir           string         `mapstructure:"upload_dir"`
	SMTP                SMTPConfig     `mapstructure:"smtp"`
}

// DatabaseConfig selects the SQL driver and its data source.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SMTPConfig describes the outbound mail account. An empty host selects
// the mock sender.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

const (
	defaultHTTPAddress         = "0.0.0.0:8080"
	defaultLogLevel            = "info"
	defaultShutdownGracePeriod = 10 * time.Second
	defaultDBDriver            = "sqlite3"
	defaultDBDSN               = "data/voluntor.db"
	defaultJWTSecretEnv        = "VOLUNTOR_JWT_SECRET"
	defaultUploadDir           = "uploads"
)

// Load reads configuration from the provided file path (if any) and the
// environment. Environment variables are prefixed with VOLUNTOR_ and can
// override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VOLUNTOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("http_address", defaultHTTPAddress)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("shutdown_grace_period", defaultShutdownGracePeriod.String())
	v.SetDefault("database.driver", defaultDBDriver)
	v.SetDefault("database.dsn", defaultDBDSN)
	v.SetDefault("jwt_secret_env", defaultJWTSecretEnv)
	v.SetDefault("upload_dir", defaultUploadDir)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Viper leaves durations as strings; normalize them here.
	if v.IsSet("shutdown_grace_period") {
		dur, err := time.ParseDuration(v.GetString("shutdown_grace_period"))
		if err != nil {
			return Config{}, fmt.Errorf("invalid shutdown_grace_period: %w", err)
		}
		cfg.ShutdownGracePeriod = dur
	} else {
		cfg.ShutdownGracePeriod = defaultShutdownGracePeriod
	}

	if cfg.HTTPAddress == "" {
		cfg.HTTPAddress = defaultHTTPAddress
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = defaultDBDriver
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = defaultDBDSN
	}
	if cfg.JWTSecretEnv == "" {
		cfg.JWTSecretEnv = defaultJWTSecretEnv
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = defaultUploadDir
	}

	return cfg, nil
}

// JWTSecret fetches the signing secret from the configured environment
// variable.
func (c Config) JWTSecret() (string, error) {
	env := c.JWTSecretEnv
	if env == "" {
		env = defaultJWTSecretEnv
	}
	val := strings.TrimSpace(getenv(env))
	if val == "" {
		return "", fmt.Errorf("jwt secret env %s is empty", env)
	}
	return val, nil
}

// split out for testing.
var getenv = os.Getenv
