package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"postboard/db"
	"postboard/models"
)

// TomlServer holds HTTP server settings
type TomlServer struct {
	Address      string `toml:"address"`
	AllowOrigins string `toml:"allow_origins"`
	// How long to keep retrying the storage backend on startup
	StartupTimeout Duration `toml:"startup_timeout"`
}

// TomlPostgres mirrors db.PostgresConfig
type TomlPostgres struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode"`
}

// TomlStorage selects where posts, media and profiles live
type TomlStorage struct {
	Backend    string       `toml:"backend"`
	SQLitePath string       `toml:"sqlite_path"`
	DataDir    string       `toml:"data_dir"`
	Postgres   TomlPostgres `toml:"postgres"`
}

// TomlAccounts configures the account switcher
type TomlAccounts struct {
	Backend  string           `toml:"backend"` // file or redis
	Path     string           `toml:"path"`
	RedisURL string           `toml:"redis_url"`
	Key      string           `toml:"key"`
	Defaults []models.Account `toml:"defaults"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Server    TomlServer        `toml:"server"`
	Storage   TomlStorage       `toml:"storage"`
	Accounts  TomlAccounts      `toml:"accounts"`
	Platforms []models.Platform `toml:"platforms"`
}

// Duration lets TOML files say "30s"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default is the configuration used when no file is given
func Default() *TomlConfig {
	return &TomlConfig{
		Server: TomlServer{
			Address:        ":3001",
			AllowOrigins:   "http://localhost:3000",
			StartupTimeout: Duration{30 * time.Second},
		},
		Storage: TomlStorage{
			Backend:    string(db.BackendSQLite),
			SQLitePath: "postboard.db",
			DataDir:    "data",
			Postgres: TomlPostgres{
				Host:    "localhost",
				Port:    5432,
				User:    "postboard",
				DBName:  "postboard",
				SSLMode: "disable",
			},
		},
		Accounts: TomlAccounts{
			Backend: "file",
			Path:    "accounts.json",
			Key:     "postboard:accounts",
			Defaults: []models.Account{
				{ID: "1", Username: "sunny_days", DisplayName: "Sunny Days"},
				{ID: "2", Username: "city_lights", DisplayName: "City Lights"},
			},
		},
		Platforms: []models.Platform{
			{ID: "instagram", Name: "Instagram", Color: "#E1306C"},
			{ID: "facebook", Name: "Facebook", Color: "#1877F2"},
			{ID: "twitter", Name: "Twitter", Color: "#1DA1F2"},
			{ID: "linkedin", Name: "LinkedIn", Color: "#0A66C2"},
		},
	}
}

// LoadConfig reads path on top of the defaults, so a file only needs the
// settings it changes. Platforms and default accounts are replaced as a
// whole when the file lists any.
func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	config.Platforms = nil
	config.Accounts.Defaults = nil
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if config.Platforms == nil {
		config.Platforms = Default().Platforms
	}
	if config.Accounts.Defaults == nil {
		config.Accounts.Defaults = Default().Accounts.Defaults
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *TomlConfig) validate() error {
	switch db.Backend(c.Storage.Backend) {
	case db.BackendSQLite, db.BackendPostgres, db.BackendJSON:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Accounts.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("unknown accounts backend %q", c.Accounts.Backend)
	}
	if c.Accounts.Backend == "redis" && c.Accounts.RedisURL == "" {
		return fmt.Errorf("accounts.redis_url is required for the redis backend")
	}
	return nil
}

// StoreOptions converts the storage section for db.Open
func (c *TomlConfig) StoreOptions() db.Options {
	pg := c.Storage.Postgres
	return db.Options{
		Backend:    db.Backend(c.Storage.Backend),
		SQLitePath: c.Storage.SQLitePath,
		DataDir:    c.Storage.DataDir,
		Postgres: db.PostgresConfig{
			Host:     pg.Host,
			Port:     pg.Port,
			User:     pg.User,
			Password: pg.Password,
			DBName:   pg.DBName,
			SSLMode:  pg.SSLMode,
		},
	}
}
