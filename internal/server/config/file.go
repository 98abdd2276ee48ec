package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/authcore/internal/flagx"
	"github.com/dmitrijs2005/authcore/internal/timex"
)

// FileConfig is the on-disk form of Config. Durations use timex.Duration so
// both "15m" and integer nanoseconds are accepted. Absent fields leave the
// current value untouched.
type FileConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr                  string         `json:"metrics_addr" yaml:"metrics_addr"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	Storage                      string         `json:"storage" yaml:"storage"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	Issuer                       string         `json:"issuer" yaml:"issuer"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	LogFormat                    string         `json:"log_format" yaml:"log_format"`
}

// parseFile overlays config with the file named by -c or -config in args.
// An unreadable or invalid file panics.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}
	if err := config.ApplyFile(path); err != nil {
		panic(err)
	}
}

// ApplyFile overlays c with the values set in the file at path. Files ending
// in .yaml or .yml are decoded as YAML, anything else as JSON.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.Storage, c.Storage)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.LogFormat, c.LogFormat)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
