package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type ConfigParam struct {
	ServerPort     string     `toml:"server_port"`
	HandleCORS     bool       `toml:"handle_cors"`
	AllowedOrigins []string   `toml:"allowed_origins"`
	LogLevel       string     `toml:"log_level"`
	DB             DBConfig   `toml:"db"`
	Auth           AuthConfig `toml:"auth"`
	// InstalledBackends are the external channels the backend sync command links to tenants.
	InstalledBackends []string    `toml:"installed_backends"`
	Apps              []AppConfig `toml:"apps"`
}

type DBConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	User             string `toml:"user"`
	Password         string `toml:"password"`
	DBName           string `toml:"dbname"`
	SSLMode          string `toml:"sslmode"`
	MaxOpenConns     int    `toml:"max_open_conns"`
	MaxIdleConns     int    `toml:"max_idle_conns"`
	LockTimeout      string `toml:"lock_timeout"`
	StatementTimeout string `toml:"statement_timeout"`
	ConnectAttempts  uint   `toml:"connect_attempts"`
}

type AuthConfig struct {
	SigningKey string `toml:"signing_key"`
	Issuer     string `toml:"issuer"`
}

// AppConfig registers an application and the entity types it manages, used for module access checks.
type AppConfig struct {
	Label       string   `toml:"label"`
	EntityTypes []string `toml:"entity_types"`
}

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

// SetConfig replaces the active configuration.
func SetConfig(c *ConfigParam) {
	cfg = c
}

func defaultConfig() *ConfigParam {
	return &ConfigParam{
		ServerPort:     "8195",
		HandleCORS:     true,
		AllowedOrigins: []string{"http://localhost:*"},
		LogLevel:       "info",
		DB: DBConfig{
			Host:             "localhost",
			Port:             5432,
			User:             "tenancy_api",
			Password:         "abc@123",
			DBName:           "tenancy",
			SSLMode:          "disable",
			MaxOpenConns:     20,
			MaxIdleConns:     5,
			LockTimeout:      "5s",
			StatementTimeout: "5s",
			ConnectAttempts:  5,
		},
		Auth: AuthConfig{
			Issuer: "tenancysrv",
		},
		Apps: []AppConfig{
			{Label: "multitenancy", EntityTypes: []string{"tenantgroup", "tenant", "tenantrole", "backendlink", "contactlink"}},
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. An empty filename loads the defaults only.
func LoadConfig(filename string) error {
	c := defaultConfig()
	if filename == "" {
		cfg = c
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	if _, err := toml.Decode(string(content), c); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}
	if err := c.DB.validate(); err != nil {
		return err
	}
	cfg = c
	return nil
}

func (d DBConfig) validate() error {
	for _, v := range []string{d.LockTimeout, d.StatementTimeout} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid db timeout %q: %v", v, err)
		}
	}
	return nil
}

// DSN is the key/value connection string for the pgx stdlib driver.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// MigrationURL is the connection URL understood by the migrate pgx driver.
func (d DBConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

func init() {
	err := LoadConfig("")
	if err != nil {
		panic(err)
	}
}
