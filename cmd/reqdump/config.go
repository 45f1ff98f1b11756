package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

const (
	defaultMaxMemory = 32 << 20
	defaultLogFormat = "json"
)

// Config holds the reqdump configuration. Values come from an optional
// YAML file; flags given on the command line override them.
type Config struct {
	// Input is the raw request file; empty or "-" reads stdin
	Input string `yaml:"input"`

	// ParseForm parses url-encoded and multipart bodies before conversion
	ParseForm bool `yaml:"parse_form"`

	// MaxMemory is the multipart memory limit used by ParseForm
	MaxMemory int64 `yaml:"max_memory"`

	// Indent pretty-prints the output
	Indent bool `yaml:"indent"`

	// Serve runs an HTTP server on this address instead of reading a file
	Serve string `yaml:"serve"`

	// Server mode settings
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
	LogFormat      string          `yaml:"log_format"`
	TrustRequestID bool            `yaml:"trust_request_id"`
	AllowOrigins   []string        `yaml:"allow_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig enables per-client rate limiting when RequestsPerSecond
// is positive.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// DefaultConfig returns the configuration used without a file or flags.
func DefaultConfig() Config {
	return Config{
		MaxMemory: defaultMaxMemory,
		LogFormat: defaultLogFormat,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, config.validate()
}

func (c Config) validate() error {
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log_format %q (want json or text)", c.LogFormat)
	}
	if c.MaxMemory <= 0 {
		return fmt.Errorf("invalid max_memory %d", c.MaxMemory)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid rate_limit %+v", c.RateLimit)
	}
	return nil
}

// parseFlags loads the config file named by -config and applies the flags
// that were set explicitly.
func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("reqdump", flag.ContinueOnError)

	var (
		configPath = fs.String("config", "", "YAML config file")
		input      = fs.String("in", "", "Raw HTTP request file (default: stdin)")
		parseForm  = fs.Bool("form", false, "Parse url-encoded and multipart bodies")
		maxMemory  = fs.Int64("max-memory", defaultMaxMemory, "Multipart memory limit in bytes")
		indent     = fs.Bool("indent", false, "Pretty-print output")
		serve      = fs.String("serve", "", "Serve snapshots over HTTP on this address (e.g. :8080)")
		maxBody    = fs.Int64("max-body", 0, "Maximum request body in server mode (0: no limit)")
		logFormat  = fs.String("log-format", defaultLogFormat, "Server log format: json or text")
		trustID    = fs.Bool("trust-request-id", false, "Reuse X-Request-ID sent by clients")
		rps        = fs.Int("rps", 0, "Requests per second per client in server mode (0: unlimited)")
		burst      = fs.Int("burst", 0, "Rate limit burst size")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		return config, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			config.Input = *input
		case "form":
			config.ParseForm = *parseForm
		case "max-memory":
			config.MaxMemory = *maxMemory
		case "indent":
			config.Indent = *indent
		case "serve":
			config.Serve = *serve
		case "max-body":
			config.MaxBodyBytes = *maxBody
		case "log-format":
			config.LogFormat = *logFormat
		case "trust-request-id":
			config.TrustRequestID = *trustID
		case "rps":
			config.RateLimit.RequestsPerSecond = *rps
		case "burst":
			config.RateLimit.Burst = *burst
		}
	})

	if fs.NArg() > 0 && config.Input == "" {
		config.Input = fs.Arg(0)
	}
	return config, config.validate()
}
