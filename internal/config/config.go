package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

// Output types.
const (
	OutputBundle      = "bundle"
	OutputPhotostream = "photostream" // alias of OutputBundle
	OutputGallery     = "gallery"
)

// DefaultGalleryName is the target name that means "use the album's name".
const DefaultGalleryName = "Gallery"

// Defaults used by NewConfig and for legacy migration.
const (
	DefaultAlbumURL       = "https://www.icloud.com/sharedalbum/ALBUM_TOKEN_GOES_HERE"
	DefaultOutDir         = "content/photostream"
	DefaultDataFile       = "data/photos/index.yaml"
	DefaultFuzzMeters     = 100.0
	DefaultProcessWorkers = 8
	DefaultDeleteWorkers  = 10
	DefaultRetryBackoff   = 2 * time.Second
)

// Config represents the main configuration for albumsync.
type Config struct {
	LogDir        string  `toml:"log_dir"`
	LogLevel      string  `toml:"log_level,omitempty"` // "debug", "info" (default), "warn", "error"
	LogMaxSizeMB  int     `toml:"log_max_size_mb,omitempty"`
	LogMaxBackups int     `toml:"log_max_backups,omitempty"`
	FuzzMeters    float64 `toml:"fuzz_meters"`

	Sync    SyncConfig     `toml:"sync"`
	Album   AlbumConfig    `toml:"album"`
	Geocode GeocodeConfig  `toml:"geocode"`
	S3      S3Config       `toml:"s3"`
	Targets []TargetConfig `toml:"targets"`

	// Flat single-album fields from older config files. Read only; see Normalize.
	AlbumURL string `toml:"album_url,omitempty"`
	OutDir   string `toml:"out_dir,omitempty"`
	DataFile string `toml:"data_file,omitempty"`
}

// SyncConfig tunes the worker pools.
type SyncConfig struct {
	ProcessWorkers int      `toml:"process_workers"`
	DeleteWorkers  int      `toml:"delete_workers"`
	Retries        int      `toml:"retries"`
	RetryBackoff   Duration `toml:"retry_backoff"`
}

// AlbumConfig selects the remote album client.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type AlbumConfig struct {
	Type string `toml:"type"` // "manifest" (default) or "mock"
}

// GeocodeConfig selects the place resolver.
type GeocodeConfig struct {
	Type string `toml:"type"` // "offline" (default) or "none"
}

// S3Config holds settings for downloading s3:// item URLs.
// Empty credentials fall back to the default AWS credential chain.
type S3Config struct {
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `toml:"use_path_style,omitempty"`
}

// TargetConfig is one album synced to one output.
type TargetConfig struct {
	Name        string        `toml:"name"`
	OutputType  string        `toml:"output_type"` // "bundle", "photostream" or "gallery"
	AlbumURL    string        `toml:"album_url"`
	OutDir      string        `toml:"out_dir"`
	Description string        `toml:"description,omitempty"`
	Enabled     *bool         `toml:"enabled,omitempty"` // nil means enabled
	Index       IndexConfig   `toml:"index"`
	Privacy     PrivacyConfig `toml:"privacy"`
}

// IsEnabled reports whether the target should be synced by default.
func (t TargetConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// IndexConfig represents configuration for the target's index store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type IndexConfig struct {
	Type string `toml:"type"`           // "yaml" (default), "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for yaml and sqlite
}

// PrivacyConfig controls extra frontmatter emitted for gallery outputs.
type PrivacyConfig struct {
	ExcludeFromFeeds       bool `toml:"nofeed"`
	ExcludeFromSearchIndex bool `toml:"noindex"`
	UseOpaqueIDAsSlug      bool `toml:"uuid_slug"`
	Unlisted               bool `toml:"unlisted"`
	RobotsNoIndexNoFollow  bool `toml:"robots_noindex"`
}

// Duration is a time.Duration written as a string such as "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// NewConfig creates a Config with one bundle target and default settings.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir:     filepath.Join(baseDir, "log"),
		LogLevel:   "info",
		FuzzMeters: DefaultFuzzMeters,
		Sync: SyncConfig{
			ProcessWorkers: DefaultProcessWorkers,
			DeleteWorkers:  DefaultDeleteWorkers,
			RetryBackoff:   Duration{DefaultRetryBackoff},
		},
		Album:   AlbumConfig{Type: "manifest"},
		Geocode: GeocodeConfig{Type: "offline"},
		Targets: []TargetConfig{
			{
				Name:       "photostream",
				OutputType: OutputBundle,
				AlbumURL:   DefaultAlbumURL,
				OutDir:     DefaultOutDir,
				Index:      IndexConfig{Type: "yaml", Path: DefaultDataFile},
			},
		},
	}
}

// Normalize fills unset values with defaults and migrates a legacy flat config
// into a single enabled bundle target.
func (c *Config) Normalize() {
	if len(c.Targets) == 0 && (c.AlbumURL != "" || c.OutDir != "" || c.DataFile != "") {
		enabled := true
		t := TargetConfig{
			Name:       "photostream",
			OutputType: OutputBundle,
			AlbumURL:   c.AlbumURL,
			OutDir:     c.OutDir,
			Enabled:    &enabled,
			Index:      IndexConfig{Type: "yaml", Path: c.DataFile},
		}
		if t.AlbumURL == "" {
			t.AlbumURL = DefaultAlbumURL
		}
		if t.OutDir == "" {
			t.OutDir = DefaultOutDir
		}
		if t.Index.Path == "" {
			t.Index.Path = DefaultDataFile
		}
		c.Targets = []TargetConfig{t}
		c.AlbumURL, c.OutDir, c.DataFile = "", "", ""
	}

	if c.FuzzMeters == 0 {
		c.FuzzMeters = DefaultFuzzMeters
	}
	if c.Sync.ProcessWorkers <= 0 {
		c.Sync.ProcessWorkers = DefaultProcessWorkers
	}
	if c.Sync.DeleteWorkers <= 0 {
		c.Sync.DeleteWorkers = DefaultDeleteWorkers
	}
	if c.Sync.Retries < 0 {
		c.Sync.Retries = 0
	}
	if c.Sync.RetryBackoff.Duration <= 0 {
		c.Sync.RetryBackoff = Duration{DefaultRetryBackoff}
	}

	for i := range c.Targets {
		t := &c.Targets[i]
		if t.OutputType == OutputPhotostream || t.OutputType == "" {
			t.OutputType = OutputBundle
		}
		if t.Index.Type == "" {
			t.Index.Type = "yaml"
		}
		if t.Index.Path == "" && t.Index.Type != "memory" {
			t.Index.Path = defaultIndexPath(t.Name, t.Index.Type)
		}
	}
}

// defaultIndexPath is data/<target>/index.yaml, or index.db for sqlite.
func defaultIndexPath(target, indexType string) string {
	ext := "yaml"
	if indexType == "sqlite" {
		ext = "db"
	}
	return filepath.Join("data", target, "index."+ext)
}

// Validate checks the target list for errors that would make a sync meaningless.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target %d: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("target %q: duplicate name", t.Name)
		}
		seen[t.Name] = true

		switch t.OutputType {
		case OutputBundle, OutputPhotostream, OutputGallery:
		default:
			return fmt.Errorf("target %q: unknown output_type %q", t.Name, t.OutputType)
		}
		if t.AlbumURL == "" {
			return fmt.Errorf("target %q: album_url is required", t.Name)
		}
		if t.OutDir == "" {
			return fmt.Errorf("target %q: out_dir is required", t.Name)
		}
	}
	return nil
}

// EnabledTargets returns the targets that are enabled, in config order.
func (c *Config) EnabledTargets() []TargetConfig {
	var out []TargetConfig
	for _, t := range c.Targets {
		if t.IsEnabled() {
			out = append(out, t)
		}
	}
	return out
}

// TargetsByName returns the named targets in config order, regardless of the
// enabled flag. Unknown names are an error.
func (c *Config) TargetsByName(names []string) ([]TargetConfig, error) {
	var out []TargetConfig
	for _, t := range c.Targets {
		if slices.Contains(names, t.Name) {
			out = append(out, t)
		}
	}
	for _, n := range names {
		if !slices.ContainsFunc(out, func(t TargetConfig) bool { return t.Name == n }) {
			return nil, fmt.Errorf("no target named %q", n)
		}
	}
	return out, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and normalizes it.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path. An existing file is an error unless force is set.
func Init(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
