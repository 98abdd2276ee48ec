package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_parseFile(t *testing.T) {
	full := &Config{
		EndpointAddrGRPC:             "www.example:9000",
		MetricsAddr:                  ":9100",
		DatabaseDSN:                  "postgres://db",
		Storage:                      "memory",
		RedisAddr:                    "redis:6379",
		SecretKey:                    "my_secret_key",
		Issuer:                       "example",
		AccessTokenValidityDuration:  time.Minute,
		RefreshTokenValidityDuration: 3 * time.Hour,
		LogFormat:                    "text",
	}

	jsonPath := writeTempFile(t, "cfg.json", `{
		"endpoint_addr_grpc": "www.example:9000",
		"metrics_addr": ":9100",
		"database_dsn": "postgres://db",
		"storage": "memory",
		"redis_addr": "redis:6379",
		"secret_key": "my_secret_key",
		"issuer": "example",
		"access_token_validity_duration": "1m",
		"refresh_token_validity_duration": 10800000000000,
		"log_format": "text"
	}`)

	yamlPath := writeTempFile(t, "cfg.yaml", `
endpoint_addr_grpc: www.example:9000
metrics_addr: ":9100"
database_dsn: postgres://db
storage: memory
redis_addr: redis:6379
secret_key: my_secret_key
issuer: example
access_token_validity_duration: 1m
refresh_token_validity_duration: 3h
log_format: text
`)

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		parseFile(cfg, []string{"-config", jsonPath})
		assert.Empty(t, cmp.Diff(full, cfg))
	})

	t.Run("loads from yaml", func(t *testing.T) {
		cfg := &Config{}
		parseFile(cfg, []string{"-c", yamlPath})
		assert.Empty(t, cmp.Diff(full, cfg))
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempFile(t, "partial.yml", "secret_key: other\n")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg, []string{"-c", partial})

		want := &Config{}
		want.LoadDefaults()
		want.SecretKey = "other"
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("no config flag leaves config unchanged", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg, nil)

		want := &Config{}
		want.LoadDefaults()
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := writeTempFile(t, "bad.json", `{ this is not valid json`)
		require.Panics(t, func() { parseFile(&Config{}, []string{"-config", bad}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		require.Panics(t, func() {
			parseFile(&Config{}, []string{"-config", filepath.Join(t.TempDir(), "nope.json")})
		})
	})
}
