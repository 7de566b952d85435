package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LegacyKeyEnv is the variable the API key was historically read from.
const LegacyKeyEnv = "spire-api-key"

// Config holds application configuration.
type Config struct {
	API   APIConfig
	WMS   WMSConfig
	HTTP  HTTPConfig
	Log   LogConfig
	Fetch FetchConfig
}

// APIConfig holds the weather API credentials.
type APIConfig struct {
	Key  string
	Host string
}

// WMSConfig selects the capabilities to load.
type WMSConfig struct {
	Endpoint string
	Product  string
	Bundles  []string
}

// HTTPConfig holds the serve command settings.
type HTTPConfig struct {
	Bind string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Env string
}

// FetchConfig bounds outgoing API requests.
type FetchConfig struct {
	Timeout    time.Duration
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

// Options locate the configuration sources.
type Options struct {
	// File is a TOML config file. When empty, config.toml is looked up in
	// ~/.config/wms-animator and a missing file is not an error.
	File string
	// EnvFile is loaded into the environment first when it exists.
	EnvFile string
	// Overrides take precedence over every other source, keyed like
	// "api.key". Command line flags end up here.
	Overrides map[string]any
}

// Load reads configuration from defaults, file, env and overrides. Env var
// overrides use prefix WXMAP_.
func Load(opts Options) (Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadEnvFile(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()

	// default values
	v.SetDefault("api.key", "")
	v.SetDefault("api.host", "https://api.wx.spire.com")
	v.SetDefault("wms.endpoint", "")
	v.SetDefault("wms.product", "sof-d")
	v.SetDefault("wms.bundles", []string{"basic", "maritime"})
	v.SetDefault("http.bind", ":8080")
	v.SetDefault("log.env", "development")
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_elapsed", time.Minute)

	v.SetConfigType("toml")
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "wms-animator"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("WXMAP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.API.Key == "" {
		c.API.Key = os.Getenv(LegacyKeyEnv)
	}
	c.API.Host = strings.TrimRight(c.API.Host, "/")
	if c.WMS.Endpoint == "" {
		c.WMS.Endpoint = c.API.Host + "/ows/wms/"
	}
	c.WMS.Bundles = cleanList(c.WMS.Bundles)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// loadEnvFile sets the variables of a .env file that are not already in the
// environment. godotenv rejects dashes in names, so the legacy key line is
// picked out before the rest is parsed.
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var rest []string
	for _, line := range strings.Split(string(data), "\n") {
		if value, ok := legacyKeyLine(line); ok {
			setUnset(LegacyKeyEnv, value)
			continue
		}
		rest = append(rest, line)
	}
	env, err := godotenv.Unmarshal(strings.Join(rest, "\n"))
	if err != nil {
		return err
	}
	for key, value := range env {
		setUnset(key, value)
	}
	return nil
}

func legacyKeyLine(line string) (string, bool) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "export ")
	key, value, ok := strings.Cut(line, "=")
	if !ok || strings.TrimSpace(key) != LegacyKeyEnv {
		return "", false
	}
	return strings.Trim(strings.TrimSpace(value), `"'`), true
}

func setUnset(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		os.Setenv(key, value) //nolint: errcheck
	}
}

// Validate checks the settings every command relies on.
func (c Config) Validate() error {
	if len(c.WMS.Bundles) == 0 {
		return errors.New("config: at least one WMS bundle is required")
	}
	if c.HTTP.Bind == "" {
		return errors.New("config: http.bind must not be empty")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("config: fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	return nil
}

// cleanList splits comma separated entries, as env vars deliver them, and
// drops blanks.
func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
