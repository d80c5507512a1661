package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Logger  Logger  `yaml:"logger"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Spotify Spotify `yaml:"spotify"`
	Notify  Notify  `yaml:"notify"`
	Listen  string  `yaml:"listen"`
	Admin   Admin   `yaml:"admin"`
	CORS    CORS    `yaml:"cors"`
}

type Logger struct {
	Level string `yaml:"level"`
}

type Storage struct {
	// Driver is either "sqlite" or "postgres".
	Driver   string `yaml:"driver"`
	Database string `yaml:"database"`
}

type Auth struct {
	JWT   JWT   `yaml:"jwt"`
	Local Local `yaml:"local"`
}

// Local defines configuration for username/password authentication.
type Local struct {
	Enabled bool `yaml:"enabled"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type Spotify struct {
	ClientID            string  `yaml:"client_id"`
	ClientSecret        string  `yaml:"client_secret"`
	RedirectURI         string  `yaml:"redirect_uri"`
	FrontendCallbackURL string  `yaml:"frontend_callback_url"`
	APIURL              string  `yaml:"api_url"`
	AccountsURL         string  `yaml:"accounts_url"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"`
}

type Notify struct {
	QueueSize      int `yaml:"queue_size"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Load reads the YAML file at path, applies environment overrides (an
// optional .env in the working directory is loaded first) and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MUSICLEAGUE_JWT_SECRET"); v != "" {
		c.Auth.JWT.Secret = v
	}
	if v := os.Getenv("MUSICLEAGUE_DATABASE"); v != "" {
		c.Storage.Database = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Admin.Listen == "" {
		c.Admin.Listen = "127.0.0.1:8081"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "data/musicleague.db"
	}
	if c.Auth.JWT.ExpireHours <= 0 {
		c.Auth.JWT.ExpireHours = 72
	}
	if c.Spotify.APIURL == "" {
		c.Spotify.APIURL = "https://api.spotify.com"
	}
	if c.Spotify.AccountsURL == "" {
		c.Spotify.AccountsURL = "https://accounts.spotify.com"
	}
	if c.Spotify.RequestsPerSecond <= 0 {
		c.Spotify.RequestsPerSecond = 5
	}
	if c.Notify.QueueSize <= 0 {
		c.Notify.QueueSize = 64
	}
	if c.Notify.TimeoutSeconds <= 0 {
		c.Notify.TimeoutSeconds = 10
	}
}
