// Package config loads server settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds the server settings.
type Config struct {
	Addr    string `env:"ADDR" envDefault:":8080"`
	DataDir string `env:"DATA_DIR" envDefault:"data"`
	Backend string `env:"STORE_BACKEND" envDefault:"file"`
	LogPath string `env:"LOG_PATH"`

	// PhotoCacheAddr is a Redis address; empty disables the photo cache.
	PhotoCacheAddr string        `env:"PHOTO_CACHE_ADDR"`
	PhotoCacheTTL  time.Duration `env:"PHOTO_CACHE_TTL" envDefault:"1h"`

	MaxPhotoMB int `env:"MAX_PHOTO_MB" envDefault:"10"`
}

// DocumentPath is where the file backend keeps the inventory document.
func (c *Config) DocumentPath() string {
	return filepath.Join(c.DataDir, "inventory.json")
}

// PhotoDir is where the file backend keeps photo blobs.
func (c *Config) PhotoDir() string {
	return filepath.Join(c.DataDir, "photos")
}

// DatabasePath is the SQLite file used by the sqlite backend.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "inventar.sqlite3")
}

// MaxPhotoBytes is the upload limit in bytes.
func (c *Config) MaxPhotoBytes() int64 {
	return int64(c.MaxPhotoMB) << 20
}

// Load reads .env (if present), the environment, then args. Flags default
// to the values found in the environment.
func Load(args []string, usage io.Writer) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	fs := flag.NewFlagSet("inventar", flag.ContinueOnError)
	fs.SetOutput(usage)

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "")

	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "")
	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.StringVar(&cfg.PhotoCacheAddr, "cache", cfg.PhotoCacheAddr, "")
	fs.DurationVar(&cfg.PhotoCacheTTL, "cache-ttl", cfg.PhotoCacheTTL, "")
	fs.IntVar(&cfg.MaxPhotoMB, "max-photo-mb", cfg.MaxPhotoMB, "")

	fs.Usage = func() {
		fmt.Fprint(usage, `Usage: inventar [flags]

Flags:
  -a, -addr <host:port>   listen address (env ADDR, default :8080)
  -d, -data <dir>         data directory (env DATA_DIR, default data)
  -b, -backend <name>     storage backend: file or sqlite (env STORE_BACKEND, default file)
  -l, -log <path>         log file path (env LOG_PATH, default: stdout/stderr only)
  -cache <host:port>      Redis address for the photo cache (env PHOTO_CACHE_ADDR)
  -cache-ttl <duration>   photo cache entry lifetime (env PHOTO_CACHE_TTL, default 1h)
  -max-photo-mb <n>       upload limit in MiB (env MAX_PHOTO_MB, default 10)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)", c.Backend, BackendFile, BackendSQLite)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory required")
	}
	if c.MaxPhotoMB <= 0 {
		return fmt.Errorf("max photo size must be positive, got %d", c.MaxPhotoMB)
	}
	if c.PhotoCacheAddr != "" && c.PhotoCacheTTL <= 0 {
		return fmt.Errorf("photo cache TTL must be positive, got %s", c.PhotoCacheTTL)
	}
	return nil
}
