package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath           = "/etc/calcols/config.yaml"
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "UTC"
	defaultRefreshCron    = "*/15 * * * *"
	defaultHorizonDays    = 14
	defaultBackfillDays   = 1
	defaultCacheDir       = "/var/lib/calcols/ics-cache"
	defaultLayoutMode     = "day"
	defaultViewHeight     = 1440
	defaultMinEntryHeight = 24
)

// ICSConfig describes a single ICS source: a remote subscription (URL) or a
// local file (Path).
type ICSConfig struct {
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a local .ics file. Local files are watched for changes.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// SourceID returns ID, falling back to Name, then Path or URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	case c.Path != "":
		return c.Path
	default:
		return c.URL
	}
}

// LayoutConfig controls how overlapping entries are laid out.
type LayoutConfig struct {
	// Mode is one of "time", "day" or "visual".
	Mode string `yaml:"mode" json:"mode"`
	// IncludeAllDay places all-day entries in the grid next to timed ones.
	IncludeAllDay bool `yaml:"include_all_day" json:"include_all_day"`
	// ViewHeight is the pixel height of a day in visual mode.
	ViewHeight float64 `yaml:"view_height" json:"view_height"`
	// MinEntryHeight is the smallest drawn height under the "preferred" policy.
	MinEntryHeight float64 `yaml:"min_entry_height" json:"min_entry_height"`
	// HeightPolicy is "time" or "preferred".
	HeightPolicy string `yaml:"height_policy" json:"height_policy"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for periodic re-fetching of remote sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays and BackfillDays bound the expanded occurrence window
	// around now.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// CacheDir holds the HTTP cache of remote ICS bodies.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Layout LayoutConfig `yaml:"layout" json:"layout"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{BackfillDays: defaultBackfillDays}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	c.Layout.Mode = strings.ToLower(strings.TrimSpace(c.Layout.Mode))
	if c.Layout.Mode == "" {
		c.Layout.Mode = defaultLayoutMode
	}
	if c.Layout.ViewHeight <= 0 {
		c.Layout.ViewHeight = defaultViewHeight
	}
	if c.Layout.MinEntryHeight <= 0 {
		c.Layout.MinEntryHeight = defaultMinEntryHeight
	}
	if c.Layout.HeightPolicy == "" {
		c.Layout.HeightPolicy = "preferred"
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Validate reports configuration errors Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.ICS))
	for i, src := range c.ICS {
		if src.URL == "" && src.Path == "" {
			errs = append(errs, fmt.Errorf("ics[%d]: url or path is required", i))
			continue
		}
		if src.URL != "" && src.Path != "" {
			errs = append(errs, fmt.Errorf("ics[%d]: url and path are mutually exclusive", i))
		}
		id := src.SourceID()
		if seen[id] {
			errs = append(errs, fmt.Errorf("ics[%d]: duplicate id %q", i, id))
		}
		seen[id] = true
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "") != (c.BasicAuth.Password == "") {
		errs = append(errs, errors.New("basic_auth: username and password must both be set"))
	}
	return errors.Join(errs...)
}

// LocalPaths returns the paths of all local ICS sources.
func (c *Config) LocalPaths() []string {
	var out []string
	for _, src := range c.ICS {
		if src.Path != "" {
			out = append(out, src.Path)
		}
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is unmarshaled, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, fmt.Errorf("config: write default: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, with the
// parent directory at 0700 and the file at 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calcols-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
