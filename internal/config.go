package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	appName = "career-chat"

	DefaultAPIBase = "http://localhost:8000"
	DefaultTimeout = 60 * time.Second

	EnvConfigPath = "CAREER_CHAT_CONFIG"
	EnvAPIBase    = "CAREER_CHAT_API_BASE"
	EnvStatePath  = "CAREER_CHAT_STATE"
	EnvTimeout    = "CAREER_CHAT_TIMEOUT"
	EnvEphemeral  = "CAREER_CHAT_EPHEMERAL"
)

// dotEnvFile is read from the working directory before the environment is consulted
var dotEnvFile = ".env"

// Config holds the client settings
type Config struct {
	APIBase   string        `yaml:"api_base" toml:"api_base"`
	StatePath string        `yaml:"state_path" toml:"state_path"`
	Ephemeral bool          `yaml:"ephemeral" toml:"ephemeral"`
	Timeout   time.Duration `yaml:"-" toml:"-"`

	// Raw string value for file unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`

	// Source is the config file that was loaded, if any
	Source string `yaml:"-" toml:"-"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		APIBase:   DefaultAPIBase,
		StatePath: DefaultStatePath(),
		Timeout:   DefaultTimeout,
	}
}

// DefaultStatePath returns the state file location under the XDG data directory
func DefaultStatePath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appName, "state.db")
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appName, "state.db")
}

// DefaultConfigPaths returns the locations searched when no config file is named
func DefaultConfigPaths() []string {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(configHome, appName)
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.toml"),
	}
}

// LoadConfig builds the configuration from defaults, a config file, a .env
// file and the environment, in increasing order of precedence. A config file
// named by path or $CAREER_CHAT_CONFIG must exist; the default locations are
// optional.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	file, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := cfg.loadFile(file); err != nil {
			return nil, err
		}
		LogDebug("Loaded config from %s", file)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the settings can be used
func (c *Config) Validate() error {
	if c.APIBase == "" {
		return errors.New("api_base is required")
	}
	u, err := url.Parse(c.APIBase)
	if err != nil {
		return fmt.Errorf("api_base %q is not a valid URL: %w", c.APIBase, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base %q must use http or https", c.APIBase)
	}
	if u.Host == "" {
		return fmt.Errorf("api_base %q has no host", c.APIBase)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	if !c.Ephemeral && c.StatePath == "" {
		return errors.New("state_path is required unless ephemeral is set")
	}

	return nil
}

func resolveConfigPath(path string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("reading config file: %w", err)
		}
		return path, nil
	}

	for _, candidate := range DefaultConfigPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}

	if c.TimeoutRaw != "" {
		c.Timeout, err = time.ParseDuration(c.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", c.TimeoutRaw, err)
		}
	}

	c.Source = path
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvAPIBase); v != "" {
		c.APIBase = v
	}
	if v := os.Getenv(EnvStatePath); v != "" {
		c.StatePath = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvTimeout, v, err)
		}
		c.Timeout = d
		c.TimeoutRaw = v
	}
	if v := os.Getenv(EnvEphemeral); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvEphemeral, v, err)
		}
		c.Ephemeral = b
	}
	return nil
}

// loadDotEnv sets variables from path that are not already in the environment
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	LogDebug("Loaded environment from %s", path)
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or "" if unset
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}
