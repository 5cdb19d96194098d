package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Platform defaults. All of them can be overridden through config.yaml or ONDEMAND_* variables.
const (
	DefaultHost            = "https://ondemand.sans.org/"
	DefaultGraphQLEndpoint = "https://ondemand.sans.org/api/graphql"
	DefaultContentHost     = "https://olt-content.sans.org"
	DefaultVideoExtension  = "mp4"
	DefaultVideoQuality    = "HD"
	DefaultClientTimeout   = 120 * time.Second
	DefaultConcurrency     = 3
	DefaultPathMemoSize    = 8192
	DefaultMetricsAddress  = "localhost"
	DefaultMetricsPort     = 9090
)

var courseIDPattern = regexp.MustCompile(`\w{3}\d{3}`)

type Config struct {
	Course      string `mapstructure:"course"`
	Account     string `mapstructure:"account"`
	Browser     string `mapstructure:"browser"`
	Concurrency int    `mapstructure:"concurrency"`
	Flatten     bool   `mapstructure:"flatten"`
	Headful     bool   `mapstructure:"headful"`
	Output      string `mapstructure:"output"`
	Debug       bool   `mapstructure:"debug"`

	LogLevel      string `mapstructure:"log_level"`
	ClientTimeout string `mapstructure:"client_timeout"` // Go duration string like "30s", "2m"
	PathMemoSize  int    `mapstructure:"path_memo_size"`

	OnDemand struct {
		Host            string `mapstructure:"host"`
		GraphQLEndpoint string `mapstructure:"graphql_endpoint"`
		ContentHost     string `mapstructure:"content_host"`
	} `mapstructure:"ondemand"`
	Video struct {
		Extension string `mapstructure:"extension"`
		Quality   string `mapstructure:"quality"`
	} `mapstructure:"video"`
	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Logs go to stderr, stdout belongs to the progress line
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// Load parses the command line arguments (without the program name), merges them with
// config.yaml and ONDEMAND_* environment variables, validates the result and configures
// the logger from it.
func Load(args []string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("ONDEMAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	setDefaults(v)

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configureLogger(&cfg)
	globalConfig = &cfg
	logger.Debug().Msg("Configuration loaded successfully")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("output", cwd)
	v.SetDefault("client_timeout", DefaultClientTimeout.String())
	v.SetDefault("path_memo_size", DefaultPathMemoSize)
	v.SetDefault("ondemand.host", DefaultHost)
	v.SetDefault("ondemand.graphql_endpoint", DefaultGraphQLEndpoint)
	v.SetDefault("ondemand.content_host", DefaultContentHost)
	v.SetDefault("video.extension", DefaultVideoExtension)
	v.SetDefault("video.quality", DefaultVideoQuality)
	v.SetDefault("metrics.address", DefaultMetricsAddress)
	v.SetDefault("metrics.port", DefaultMetricsPort)
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("ondemand-dl", pflag.ContinueOnError)
	flags.StringP("course", "c", "", "The ID of the course being undertaken (ie, SEC522)")
	flags.StringP("account", "a", "", "The <username>:<password> to your account (omit to be prompted)")
	flags.StringP("browser", "b", "", "The path to the Chromium browser executable")
	flags.IntP("concurrency", "x", DefaultConcurrency, "How many concurrent downloads can occur")
	flags.BoolP("flatten", "f", false, "Whether to flatten the videos to one folder: <output>/<courseName>")
	flags.BoolP("headful", "H", false, "Show the browser that's making calls (to verify you're a human, for example)")
	flags.StringP("output", "o", "", "The output folder to download the videos to (default $PWD)")
	flags.BoolP("debug", "d", false, "Enable debug logging")
	return flags
}

// Validate checks and normalizes the values the download pipeline relies on.
func (c *Config) Validate() error {
	c.Course = strings.TrimSpace(c.Course)
	if c.Course == "" {
		return fmt.Errorf("missing required option: course")
	}
	if !courseIDPattern.MatchString(c.Course) {
		return apperrors.NewInvalidCourseError(c.Course)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.PathMemoSize < 1 {
		c.PathMemoSize = DefaultPathMemoSize
	}
	if c.Output == "" {
		c.Output = "."
	}
	output, err := filepath.Abs(filepath.Clean(c.Output))
	if err != nil {
		return fmt.Errorf("invalid output directory %q: %w", c.Output, err)
	}
	c.Output = output
	if c.Video.Extension == "" {
		c.Video.Extension = DefaultVideoExtension
	}
	return nil
}

// Timeout returns the per-request ceiling, falling back to the default on bad input.
func (c *Config) Timeout() time.Duration {
	if c.ClientTimeout == "" {
		return DefaultClientTimeout
	}
	parsed, err := time.ParseDuration(c.ClientTimeout)
	if err != nil || parsed <= 0 {
		logger.Warn().Str("timeout", c.ClientTimeout).Msg("Invalid timeout duration, using default")
		return DefaultClientTimeout
	}
	return parsed
}

// Credentials splits the account option into username and password. Missing parts are empty.
func (c *Config) Credentials() (string, string) {
	if c.Account == "" {
		return "", ""
	}
	user, pass, _ := strings.Cut(c.Account, ":")
	return user, pass
}

func configureLogger(cfg *Config) {
	level := zerolog.InfoLevel // default
	if cfg.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", cfg.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}
	if cfg.Debug && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)
}

func GetConfig() *Config {
	return globalConfig
}

func GetLogger() zerolog.Logger {
	return logger
}

// SetLogger replaces the package logger, e.g. to attach run-scoped fields.
func SetLogger(l zerolog.Logger) {
	logger = l
}
