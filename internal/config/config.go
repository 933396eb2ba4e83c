package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/rebeliceyang/lazytable/internal/models"
)

// ErrInvalid is returned when a loaded config fails validation
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Table       TableConfig       `mapstructure:"table"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Source      SourceConfig      `mapstructure:"source"`
	Log         LogConfig         `mapstructure:"log"`
}

type TableConfig struct {
	PageSize        int             `mapstructure:"page_size"`
	PageSizeOptions []int           `mapstructure:"page_size_options"`
	DataMode        string          `mapstructure:"data_mode"`
	InfiniteScroll  bool            `mapstructure:"infinite_scroll"`
	SearchMode      string          `mapstructure:"search_mode"`
	Locale          string          `mapstructure:"locale"`
	Columns         []models.Column `mapstructure:"columns"`
}

type PersistenceConfig struct {
	Mode     string `mapstructure:"mode"`
	StateKey string `mapstructure:"state_key"`
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
}

type SourceConfig struct {
	Kind     string `mapstructure:"kind"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	IDColumn string `mapstructure:"id_column"`
	Keyring  string `mapstructure:"keyring"` // keyring entry holding the DSN when DSN is empty
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GetDefaults returns a Config with all default values
func GetDefaults() *Config {
	return &Config{
		Table: TableConfig{
			PageSize:        10,
			PageSizeOptions: []int{5, 10, 25, 50},
			DataMode:        "client",
			InfiniteScroll:  false,
			SearchMode:      "any",
			Locale:          "und",
		},
		Persistence: PersistenceConfig{
			Mode:     "none",
			StateKey: "default",
			Backend:  "memory",
		},
		Source: SourceConfig{
			Kind:     "json",
			IDColumn: "id",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := GetDefaults()
	v.SetDefault("table.page_size", d.Table.PageSize)
	v.SetDefault("table.page_size_options", d.Table.PageSizeOptions)
	v.SetDefault("table.data_mode", d.Table.DataMode)
	v.SetDefault("table.infinite_scroll", d.Table.InfiniteScroll)
	v.SetDefault("table.search_mode", d.Table.SearchMode)
	v.SetDefault("table.locale", d.Table.Locale)
	v.SetDefault("persistence.mode", d.Persistence.Mode)
	v.SetDefault("persistence.state_key", d.Persistence.StateKey)
	v.SetDefault("persistence.backend", d.Persistence.Backend)
	v.SetDefault("persistence.path", "")
	v.SetDefault("source.kind", d.Source.Kind)
	v.SetDefault("source.path", "")
	v.SetDefault("source.dsn", "")
	v.SetDefault("source.table", "")
	v.SetDefault("source.id_column", d.Source.IDColumn)
	v.SetDefault("source.keyring", "")
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("LAZYTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load loads configuration from the standard locations. A missing file is fine.
func Load() (*Config, error) {
	v := newViper()

	// Set config name
	v.SetConfigName("config")

	// Add config paths in priority order
	// 1. User config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "lazytable"))
	}

	// 2. Current directory
	v.AddConfigPath(".")

	// 3. Default config directory
	v.AddConfigPath("./config")

	// Read config (it's okay if file doesn't exist, we have defaults)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	return decode(v)
}

// LoadFile loads configuration from an explicit file
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	if c.Table.PageSize <= 0 {
		return fmt.Errorf("%w: table.page_size must be positive", ErrInvalid)
	}
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"table.data_mode", c.Table.DataMode, []string{"client", "server"}},
		{"table.search_mode", c.Table.SearchMode, []string{"any", "all"}},
		{"persistence.mode", c.Persistence.Mode, []string{"none", "storage", "url"}},
		{"persistence.backend", c.Persistence.Backend, []string{"memory", "yaml", "sqlite"}},
		{"source.kind", c.Source.Kind, []string{"json", "postgres", "sqlite"}},
	}
	for _, check := range checks {
		if !slices.Contains(check.allowed, check.value) {
			return fmt.Errorf("%w: %s must be one of %s, got %q",
				ErrInvalid, check.name, strings.Join(check.allowed, ", "), check.value)
		}
	}
	if err := models.ValidateColumns(c.Table.Columns); err != nil {
		return fmt.Errorf("%w: table.columns: %v", ErrInvalid, err)
	}
	return nil
}

// GetConfigPath returns the user config directory path
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazytable"), nil
}

// StatePath returns the file used by the yaml or sqlite persistence backend
func (c *Config) StatePath() (string, error) {
	if c.Persistence.Path != "" {
		return c.Persistence.Path, nil
	}
	dir, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	name := "state.yaml"
	if c.Persistence.Backend == "sqlite" {
		name = "state.db"
	}
	return filepath.Join(dir, name), nil
}
