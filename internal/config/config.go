package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config represents the triage configuration.
type Config struct {
	GitHub   GitHubConfig   `mapstructure:"github" json:"github"`
	Sonar    SonarConfig    `mapstructure:"sonar" json:"sonar"`
	Comments CommentsConfig `mapstructure:"comments" json:"comments"`
	Format   string         `mapstructure:"format" json:"format"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache"`
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	// APIURL overrides the public endpoint for GitHub Enterprise hosts.
	// GITHUB_API_URL takes precedence when set.
	APIURL string `mapstructure:"apiUrl" json:"apiUrl"`
}

// SonarConfig holds SonarQube settings.
type SonarConfig struct {
	HostURL string `mapstructure:"hostUrl" json:"hostUrl"`
	Project string `mapstructure:"project" json:"project"`
}

// CommentsConfig holds defaults for the comments command.
type CommentsConfig struct {
	// DefaultAuthors is the author filter when neither --bots nor --humans
	// is given: bots, humans, or all. Bots is the shipped default; teams
	// that want every comment flip this to all.
	DefaultAuthors string `mapstructure:"defaultAuthors" json:"defaultAuthors"`
}

// CacheConfig controls response caching.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" json:"enabled"`
	Dir        string `mapstructure:"dir" json:"dir,omitempty"`
	TTLSeconds int    `mapstructure:"ttlSeconds" json:"ttlSeconds"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Comments: CommentsConfig{
			DefaultAuthors: "bots",
		},
		Format: "text",
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 120,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for triage.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "triage"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "triage"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "triage"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "triage"), nil
	default:
		return filepath.Join(home, ".config", "triage"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	d := Default()
	v.SetDefault("github.apiUrl", d.GitHub.APIURL)
	v.SetDefault("sonar.hostUrl", d.Sonar.HostURL)
	v.SetDefault("sonar.project", d.Sonar.Project)
	v.SetDefault("comments.defaultAuthors", d.Comments.DefaultAuthors)
	v.SetDefault("format", d.Format)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttlSeconds", d.Cache.TTLSeconds)

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	v.SetConfigFile(path)
	// A missing config file is not an error; defaults and env cover it.
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
	}
	return v, nil
}

// Load merges configuration from defaults, the config file, TRIAGE_*
// environment variables, and finally the given flag overrides (highest
// precedence). Override keys are viper dot-paths.
func Load(overrides map[string]string) (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing configuration")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Comments.DefaultAuthors {
	case "bots", "humans", "all":
	default:
		return errors.Newf("invalid comments.defaultAuthors %q (want bots, humans, or all)", c.Comments.DefaultAuthors)
	}
	switch c.Format {
	case "text", "json", "markdown", "sarif", "count":
	default:
		return errors.Newf("invalid format %q", c.Format)
	}
	return nil
}

// Init writes a default config file, failing if one already exists.
func Init() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, errors.Newf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "creating config directory")
	}
	v, err := newViper()
	if err != nil {
		return "", err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return "", errors.Wrap(err, "writing config file")
	}
	return path, nil
}

// Set updates a single dotted key in the config file, creating the file if
// needed.
func Set(key, value string) error {
	v, err := newViper()
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return errors.Newf("unknown config key %q", key)
	}
	v.Set(key, value)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return errors.Wrap(err, "parsing configuration")
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return errors.Wrap(v.WriteConfigAs(path), "writing config file")
}
