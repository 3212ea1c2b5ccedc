// Package config loads server configuration from config.toml and MAGASIN_*
// environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Email        EmailConfig
	Notification NotificationConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver   string // postgres, memory
	SeedDemo bool   // memory only: load a demo store, supplier and catalog
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string // takes precedence over the discrete fields
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// JWTConfig holds token validation settings. An empty secret disables
// authentication; otherwise tokens are optional unless Required is set.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Required bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string
	Development bool
}

// HTTPConfig holds HTTP server timeouts.
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// EmailConfig holds SMTP settings. An empty host disables delivery.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NotificationConfig bounds supplier email delivery.
type NotificationConfig struct {
	Timeout time.Duration
}

// Load reads configuration. Priority, highest first:
// MAGASIN_* environment variables, config.toml, built-in defaults.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/magasin")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MAGASIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Storage: StorageConfig{
			Driver:   v.GetString("storage.driver"),
			SeedDemo: v.GetBool("storage.seed_demo"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxConns:        v.GetInt("database.max_conns"),
			MinConns:        v.GetInt("database.min_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			Required: v.GetBool("jwt.required"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Email: EmailConfig{
			Host:     v.GetString("email.host"),
			Port:     v.GetInt("email.port"),
			Username: v.GetString("email.username"),
			Password: v.GetString("email.password"),
			From:     v.GetString("email.from"),
		},
		Notification: NotificationConfig{
			Timeout: v.GetDuration("notification.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "magasin"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverPostgres
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "magasin"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "magasin"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Email.Port == 0 {
		cfg.Email.Port = 587
	}
	if cfg.Notification.Timeout == 0 {
		cfg.Notification.Timeout = 10 * time.Second
	}
}

// validate performs validation on the configuration.
func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Storage.Driver)
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) cannot exceed database.max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Storage.SeedDemo && c.Storage.Driver != DriverMemory {
		return fmt.Errorf("storage.seed_demo is only supported with the memory driver")
	}
	if c.JWT.Required && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required when jwt.required is set")
	}
	if c.Email.Host != "" && c.Email.From == "" {
		return fmt.Errorf("email.from is required when email.host is set")
	}

	if c.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Storage.Driver == DriverMemory {
			return fmt.Errorf("storage.driver=memory is not allowed in production")
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the connection string, escaping credentials.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
