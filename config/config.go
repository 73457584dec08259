package config

import (
	"fmt"
	"io/ioutil"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slipwire-dev/slipwire/pkg/exchange"
	"github.com/slipwire-dev/slipwire/pkg/relay"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

var (
	ConfigFile    string
	Verbose       bool
	DefaultConfig = &Config{
		RelayURL:       "wss://relay.slipwire.dev",
		Verbose:        false,
		ConnectTimeout: Duration(exchange.DefaultConnectTimeout),
		IdleTimeout:    Duration(exchange.DefaultIdleTimeout),
		SendTimeout:    Duration(exchange.DefaultSendTimeout),
	}
)

// Duration wraps time.Duration so YAML values like "5s" or "1500ms" parse.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %v", s, err)
	}
	*d = Duration(dur)
	return nil
}

type Config struct {
	// The relay endpoint requests are exchanged through.
	RelayURL string `yaml:"relay_url,omitempty"`
	// The bearer token presented to the relay on connect.
	AuthToken string `yaml:"auth_token,omitempty"`
	// Path to a file holding the bearer token. Takes precedence over AuthToken.
	AuthTokenFile string `yaml:"auth_token_file,omitempty"`
	// Whether to enable verbose logging.
	Verbose bool `yaml:"verbose,omitempty"`
	// Deadline for establishing a relay connection.
	ConnectTimeout Duration `yaml:"connect_timeout,omitempty"`
	// How long an established connection may sit idle before it is torn down.
	IdleTimeout Duration `yaml:"idle_timeout,omitempty"`
	// Per-phase deadline while awaiting a response.
	SendTimeout Duration `yaml:"send_timeout,omitempty"`
	// Headers attached to every request.
	DefaultHeaders wire.Headers `yaml:"default_headers,omitempty"`
}

// SlipwireDir returns the path to the Slipwire configuration directory.
func SlipwireDir() string {
	return filepath.Join(os.Getenv("HOME"), ".slipwire")
}

func getDefaultConfigPath() string {
	return filepath.Join(SlipwireDir(), "config.yaml")
}

func Load() (*Config, error) {
	if ConfigFile == "" {
		ConfigFile = getDefaultConfigPath()
	}
	if _, err := os.Stat(ConfigFile); os.IsNotExist(err) {
		return DefaultConfig, nil
	}
	yamlFile, err := ioutil.ReadFile(ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %v", err)
	}
	cfg := new(Config)
	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %v", err)
	}

	if Verbose || cfg.Verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
		slog.Debug("Verbose logging enabled")
	}

	return cfg, nil
}

func ensureDirExists(filePath string) error {
	dir := filepath.Dir(filePath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Create the directory if it doesn't exist
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}
	return nil
}

func Store(cfg *Config) error {
	yamlFile, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %v", err)
	}
	if ConfigFile == "" {
		ConfigFile = getDefaultConfigPath()
	}
	if err := ensureDirExists(ConfigFile); err != nil {
		return fmt.Errorf("failed to ensure directory exists: %v", err)
	}
	if err := ioutil.WriteFile(ConfigFile, yamlFile, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %v", err)
	}
	return nil
}

// BearerToken resolves the relay auth token, preferring AuthTokenFile.
func (c *Config) BearerToken() (string, error) {
	if c.AuthTokenFile != "" {
		b, err := ioutil.ReadFile(c.AuthTokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read auth token file: %v", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return c.AuthToken, nil
}

// Options returns the exchange options this config carries.
func (c *Config) Options() []exchange.Option {
	var opts []exchange.Option
	if c.ConnectTimeout > 0 {
		opts = append(opts, exchange.WithConnectTimeout(time.Duration(c.ConnectTimeout)))
	}
	if c.IdleTimeout > 0 {
		opts = append(opts, exchange.WithIdleTimeout(time.Duration(c.IdleTimeout)))
	}
	if c.SendTimeout > 0 {
		opts = append(opts, exchange.WithSendTimeout(time.Duration(c.SendTimeout)))
	}
	if len(c.DefaultHeaders) > 0 {
		opts = append(opts, exchange.WithHeaders(c.DefaultHeaders.Clone()))
	}
	if Verbose || c.Verbose {
		opts = append(opts, exchange.WithDebug())
	}
	return opts
}

// DefaultClient returns a relay client built from the stored configuration.
func DefaultClient() (*exchange.Client, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	tok, err := cfg.BearerToken()
	if err != nil {
		return nil, err
	}
	dialer := &relay.WebsocketDialer{AuthToken: tok}
	return exchange.NewClient(cfg.RelayURL,
		exchange.WithDialer(dialer),
		exchange.WithDefaults(cfg.Options()...),
	), nil
}
