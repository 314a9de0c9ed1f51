package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tasklist/internal/store"
	pkgconfig "github.com/starford/tasklist/pkg/config"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Store StoreConfig       `yaml:"store"`
	CORS  CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.CORS.Validate()
}

// ApplyEnv overrides file settings with the deployment environment variables
// PORT, MONGODB_URI, CORS_ORIGIN and TASKLIST_STORE_DRIVER.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.App.HTTP.Port = port
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Store.MongoDB.URI = v
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TASKLIST_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the item store backend. Only the section matching
// Driver is validated.
type StoreConfig struct {
	Driver    string          `yaml:"driver"`
	MongoDB   MongoDBConfig   `yaml:"mongodb"`
	SurrealDB SurrealDBConfig `yaml:"surrealdb"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(store.DriverMongoDB, store.DriverSurrealDB, store.DriverSQLite)),
	); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	var err error
	switch c.Driver {
	case store.DriverMongoDB:
		err = c.MongoDB.Validate()
	case store.DriverSurrealDB:
		err = c.SurrealDB.Validate()
	case store.DriverSQLite:
		err = c.SQLite.Validate()
	}
	if err != nil {
		return fmt.Errorf("store.%s: %w", c.Driver, err)
	}
	return nil
}

// MongoDBConfig holds MongoDB connection settings.
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Validate validates the MongoDB configuration.
func (c *MongoDBConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URI, validation.Required),
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Collection, validation.Required),
	)
}

// SurrealDBConfig holds SurrealDB connection settings.
type SurrealDBConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// Validate validates the SurrealDB configuration.
func (c *SurrealDBConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.Namespace, validation.Required),
		validation.Field(&c.Database, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CORSConfig holds cross-origin settings for the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Validate validates the CORS configuration.
func (c *CORSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AllowedOrigins, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 4000,
			},
		},
		Store: StoreConfig{
			Driver: store.DriverMongoDB,
			MongoDB: MongoDBConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "tasklist",
				Collection: "items",
			},
			SurrealDB: SurrealDBConfig{
				URL:       "ws://localhost:8000",
				Namespace: "tasklist",
				Database:  "tasklist",
			},
			SQLite: SQLiteConfig{
				Path: "./tasklist.db",
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
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

// LoadConfig builds the effective configuration: defaults, then the YAML file
// at path when it exists, then environment overrides. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Read(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
