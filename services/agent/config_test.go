package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearAgentEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FEEDSWITCH_API_BASE", "FEEDSWITCH_NATS_URL", "FEEDSWITCH_CACHE_PATH",
		"FEEDSWITCH_SITE", "FEEDSWITCH_RULE_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	clearAgentEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3000", cfg.APIBase)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	require.Equal(t, "x.com", cfg.Site)
	require.Equal(t, DefaultRuleID, cfg.RuleID)
}

func TestLoadConfigFromFile(t *testing.T) {
	clearAgentEnv(t)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base: https://tokens.internal:8443
nats_url: nats://bus:4222
cache_path: /tmp/cache.db
site: staging.x.com
rule_id: 7
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "https://tokens.internal:8443", cfg.APIBase)
	require.Equal(t, "nats://bus:4222", cfg.NATSURL)
	require.Equal(t, "/tmp/cache.db", cfg.CachePath)
	require.Equal(t, "staging.x.com", cfg.Site)
	require.Equal(t, 7, cfg.RuleID)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearAgentEnv(t)
	t.Setenv("FEEDSWITCH_SITE", "override.example")
	t.Setenv("FEEDSWITCH_RULE_ID", "3")

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: file.example\nrule_id: 9\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "override.example", cfg.Site)
	require.Equal(t, 3, cfg.RuleID)
}

func TestLoadConfigInvalid(t *testing.T) {
	clearAgentEnv(t)

	t.Run("bad rule id env", func(t *testing.T) {
		t.Setenv("FEEDSWITCH_RULE_ID", "one")
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("non-positive rule id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rule_id: 0\n"), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("empty site", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agent.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`site: ""`+"\n"), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}
