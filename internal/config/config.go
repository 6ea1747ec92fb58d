package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfigurationMissing indicates a required setting is absent and has no default.
type ErrConfigurationMissing struct {
	Key string
}

func (e *ErrConfigurationMissing) Error() string {
	return fmt.Sprintf("required configuration key %q is not set", e.Key)
}

// Config holds the entire harness configuration. It is built once at process
// start and passed by reference to every component that needs it; nothing in
// this package keeps global state.
type Config struct {
	Base       BaseConfig       `mapstructure:"base"`
	API        APIConfig        `mapstructure:"api"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Explicit   WaitConfig       `mapstructure:"explicit"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Suite      SuiteConfig      `mapstructure:"suite"`
	Report     ReportConfig     `mapstructure:"report"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Data       DataConfig       `mapstructure:"data"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// BaseConfig holds the application under test's UI entry point.
type BaseConfig struct {
	URL string `mapstructure:"url"`
}

// APIConfig holds the REST endpoint settings for API scenarios.
type APIConfig struct {
	Base    BaseConfig    `mapstructure:"base"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BrowserConfig selects and tunes the browser session.
type BrowserConfig struct {
	Name     string `mapstructure:"name"`
	Headless bool   `mapstructure:"headless"`
	ExecPath string `mapstructure:"exec_path"`
	// DriversDir is searched for a browser binary when ExecPath is empty,
	// laid out as drivers/<os>/<name>.
	DriversDir string         `mapstructure:"drivers_dir"`
	Args       []string       `mapstructure:"args"`
	Viewport   map[string]int `mapstructure:"viewport"`
}

// WaitConfig bounds how long element resolution may poll.
type WaitConfig struct {
	Wait time.Duration `mapstructure:"wait"`
}

// RetryConfig tunes the standard attempt loop of the interaction layer.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// SuiteConfig controls scenario scheduling. Retries is the number of times a
// failed scenario is re-run from its first step before it is recorded as
// failed; zero means every scenario gets a single run.
type SuiteConfig struct {
	Workers int    `mapstructure:"workers"`
	Retries int    `mapstructure:"retries"`
	Tags    string `mapstructure:"tags"`
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
}

// ReportConfig locates the generated report files.
type ReportConfig struct {
	Dir     string `mapstructure:"dir"`
	Formats string `mapstructure:"formats"`
}

// ScreenshotConfig locates failure screenshots.
type ScreenshotConfig struct {
	Dir string `mapstructure:"dir"`
}

// DataConfig locates test-data files.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig holds the connection string for the SQL data reader.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// SetDefaults initializes default values for every tunable the harness reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("browser.name", "chrome")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.drivers_dir", "drivers")

	v.SetDefault("explicit.wait", "20s")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff", "1s")

	v.SetDefault("suite.workers", 4)
	v.SetDefault("suite.retries", 0)
	v.SetDefault("suite.env", "qa")

	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.formats", "html,excel")
	v.SetDefault("screenshot.dir", "screenshots")
	v.SetDefault("data.dir", "testdata")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "verity")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
}

// knownKeys lists every leaf key the harness reads. Keys without defaults
// must be bound explicitly or viper's Unmarshal will not see their
// environment overrides.
var knownKeys = []string{
	"base.url",
	"api.base.url",
	"api.timeout",
	"browser.name",
	"browser.headless",
	"browser.exec_path",
	"browser.drivers_dir",
	"explicit.wait",
	"retry.max_attempts",
	"retry.backoff",
	"suite.workers",
	"suite.retries",
	"suite.tags",
	"suite.name",
	"suite.env",
	"report.dir",
	"report.formats",
	"screenshot.dir",
	"data.dir",
	"database.url",
	"logger.level",
	"logger.format",
	"logger.log_file",
}

// BindEnvironment wires the env-override rule: any key can be overridden by an
// environment variable whose name is the upper-cased key with '.' replaced by
// '_' (BASE_URL beats base.url). No prefix is applied.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range knownKeys {
		// BindEnv with a single argument uses the replacer-derived name.
		_ = v.BindEnv(key)
	}
}

// NewDefaultConfig creates a configuration populated with default values only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static strings; a decode failure is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewFromViper builds and validates a Config from a prepared viper instance.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values. Keys that are only
// required by a specific subsystem (base.url, database.url) are checked by
// that subsystem via Require* helpers so that API-only runs don't demand a UI
// endpoint.
func (c *Config) Validate() error {
	if c.Suite.Workers <= 0 {
		return fmt.Errorf("suite.workers must be a positive integer")
	}
	if c.Suite.Retries < 0 {
		return fmt.Errorf("suite.retries must not be negative")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be a positive integer")
	}
	if c.Retry.Backoff < 0 {
		return fmt.Errorf("retry.backoff must not be negative")
	}
	if c.Explicit.Wait <= 0 {
		return fmt.Errorf("explicit.wait must be a positive duration")
	}
	return nil
}

// RequireBaseURL returns the UI base URL or ErrConfigurationMissing.
func (c *Config) RequireBaseURL() (string, error) {
	if c.Base.URL == "" {
		return "", &ErrConfigurationMissing{Key: "base.url"}
	}
	return c.Base.URL, nil
}

// RequireDatabaseURL returns the database connection string or ErrConfigurationMissing.
func (c *Config) RequireDatabaseURL() (string, error) {
	if c.Database.URL == "" {
		return "", &ErrConfigurationMissing{Key: "database.url"}
	}
	return c.Database.URL, nil
}

// TagFilter returns suite.tags as a list, splitting on commas and dropping
// blanks. An empty list means no filtering.
func (c *Config) TagFilter() []string {
	return splitList(c.Suite.Tags)
}

// ReportFormats returns report.formats as a list, e.g. ["html", "excel"].
func (c *Config) ReportFormats() []string {
	return splitList(c.Report.Formats)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// MergePropertiesFile loads a java-properties style key=value file into viper.
// Newer viper releases dropped the properties codec, and the harness inherits
// its settings files from properties-based tooling, so the format is parsed
// here: '#' and '!' comments, key=value or key:value, whitespace trimmed.
func MergePropertiesFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open properties file %s: %w", path, err)
	}
	defer f.Close()

	settings := make(map[string]interface{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			continue
		}
		key := strings.TrimSpace(line[:sep])
		val := strings.TrimSpace(line[sep+1:])
		if key == "" {
			continue
		}
		settings[key] = val
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading properties file %s: %w", path, err)
	}
	return v.MergeConfigMap(settings)
}
