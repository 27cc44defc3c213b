package agent

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the agent expects to find its configuration.
const DefaultConfigPath = "/etc/feedswitch/agent.yaml"

const (
	defaultAPIBase   = "http://localhost:3000"
	defaultNATSURL   = "nats://127.0.0.1:4222"
	defaultCachePath = "/var/lib/feedswitch/cache.db"
	defaultSite      = "x.com"
)

// Config is the agent configuration, loaded from a YAML file with
// environment overrides.
type Config struct {
	APIBase   string `yaml:"api_base"`
	NATSURL   string `yaml:"nats_url"`
	CachePath string `yaml:"cache_path"`
	Site      string `yaml:"site"`
	RuleID    int    `yaml:"rule_id"`
}

// LoadConfig reads the configuration file at path (defaults apply when the
// file is absent) and applies FEEDSWITCH_* environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		APIBase:   defaultAPIBase,
		NATSURL:   defaultNATSURL,
		CachePath: defaultCachePath,
		Site:      defaultSite,
		RuleID:    DefaultRuleID,
	}

	if path == "" {
		path = DefaultConfigPath
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults plus env overrides are enough to run.
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("FEEDSWITCH_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("FEEDSWITCH_NATS_URL"); v != "" {
		cfg.NATSURL = v
	}
	if v := os.Getenv("FEEDSWITCH_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("FEEDSWITCH_SITE"); v != "" {
		cfg.Site = v
	}
	if v := os.Getenv("FEEDSWITCH_RULE_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FEEDSWITCH_RULE_ID: %q", v)
		}
		cfg.RuleID = id
	}

	if cfg.APIBase == "" {
		return Config{}, errors.New("api_base is required")
	}
	if cfg.CachePath == "" {
		return Config{}, errors.New("cache_path is required")
	}
	if cfg.Site == "" {
		return Config{}, errors.New("site is required")
	}
	if cfg.RuleID <= 0 {
		return Config{}, errors.New("rule_id must be positive")
	}

	return cfg, nil
}
