package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/slipwire-dev/slipwire/config"
	"github.com/slipwire-dev/slipwire/pkg/exchange"
	"github.com/slipwire-dev/slipwire/pkg/wire"
)

func TestConfigLoad(t *testing.T) {
	t.Run("Missing file returns defaults", func(t *testing.T) {
		config.ConfigFile = filepath.Join(t.TempDir(), "config.yaml")

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, config.DefaultConfig, cfg)
	})

	t.Run("Durations parse", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "relay_url: ws://127.0.0.1:9000\nsend_timeout: 1500ms\nidle_timeout: 1m\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		config.ConfigFile = path

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, "ws://127.0.0.1:9000", cfg.RelayURL)
		assert.Equal(t, config.Duration(1500*time.Millisecond), cfg.SendTimeout)
		assert.Equal(t, config.Duration(time.Minute), cfg.IdleTimeout)
	})

	t.Run("Bad duration rejected", func(t *testing.T) {
		var cfg config.Config
		err := yaml.Unmarshal([]byte("send_timeout: fast"), &cfg)
		require.Error(t, err)
	})
}

func TestConfigSave(t *testing.T) {
	config.ConfigFile = filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := &config.Config{
		RelayURL:       "ws://127.0.0.1:9000",
		AuthToken:      "s3cret",
		ConnectTimeout: config.Duration(250 * time.Millisecond),
		IdleTimeout:    config.Duration(time.Minute),
		SendTimeout:    config.Duration(5 * time.Second),
		DefaultHeaders: wire.Headers{{Name: "x-env", Value: "test"}},
	}

	require.NoError(t, config.Store(cfg))

	readBackCfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, cfg, readBackCfg)
}

func TestBearerTokenPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("tok-abc\n"), 0600))

	cfg := &config.Config{AuthToken: "inline", AuthTokenFile: path}
	tok, err := cfg.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", tok)

	cfg.AuthTokenFile = ""
	tok, err = cfg.BearerToken()
	require.NoError(t, err)
	assert.Equal(t, "inline", tok)
}

func TestOptionsCarryThrough(t *testing.T) {
	cfg := &config.Config{
		ConnectTimeout: config.Duration(250 * time.Millisecond),
		SendTimeout:    config.Duration(2 * time.Second),
		DefaultHeaders: wire.Headers{{Name: "x-env", Value: "test"}},
	}

	req, copts, err := exchange.BuildRequest(wire.GET, "/", cfg.Options()...)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, copts.ConnectTimeout)
	assert.Equal(t, exchange.DefaultIdleTimeout, copts.IdleTimeout)

	v, ok := req.Headers.Get("x-env")
	require.True(t, ok)
	assert.Equal(t, "test", v)
}
