package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable that Load consults so host settings do not
// leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "SERPAPI_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Transport != "stdio" {
		t.Errorf("Transport = %q, want %q", cfg.Server.Transport, "stdio")
	}
	if cfg.SerpAPI.DefaultEngine != "google_light" {
		t.Errorf("DefaultEngine = %q, want %q", cfg.SerpAPI.DefaultEngine, "google_light")
	}
	if cfg.SerpAPI.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.SerpAPI.Timeout)
	}
	if cfg.Logger.Output != "stderr" {
		t.Errorf("Logger.Output = %q, want %q", cfg.Logger.Output, "stderr")
	}
	if cfg.SerpAPI.Breaker.Enabled {
		t.Error("breaker should be disabled by default")
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server, cfg.Server)
	assert.Empty(t, cfg.SerpAPI.APIKey)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", `
server:
  transport: "http"
  addr: "0.0.0.0:9000"
serpapi:
  api_key: "yaml-key"
  default_engine: "bing"
  timeout: 5s
tools:
  default_format: "text"
  enabled: ["search"]
logger:
  level: "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "/mcp", cfg.Server.EndpointPath, "unset fields keep defaults")
	assert.Equal(t, "yaml-key", cfg.SerpAPI.APIKey)
	assert.Equal(t, "bing", cfg.SerpAPI.DefaultEngine)
	assert.Equal(t, 5*time.Second, cfg.SerpAPI.Timeout)
	assert.Equal(t, "text", cfg.Tools.DefaultFormat)
	assert.Equal(t, []string{"search"}, cfg.Tools.Enabled)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", "server: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadValidationFailure(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", `
server:
  transport: "carrier-pigeon"
`)
	_, err := Load(path)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, err.Error(), "server.transport")
}

func TestLoadInsecurePermissions(t *testing.T) {
	for _, mode := range []os.FileMode{0o666, 0o622, 0o606, 0o602, 0o620} {
		t.Run(mode.String(), func(t *testing.T) {
			clearEnv(t)
			path := writeConfigFile(t, t.TempDir(), "config.yaml", "logger:\n  level: info\n")
			require.NoError(t, os.Chmod(path, mode))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "insecure permissions")
		})
	}
}

func TestLoadReadablePermissions(t *testing.T) {
	for _, mode := range []os.FileMode{0o600, 0o640, 0o644, 0o400} {
		t.Run(mode.String(), func(t *testing.T) {
			clearEnv(t)
			path := writeConfigFile(t, t.TempDir(), "config.yaml", "logger:\n  level: info\n")
			require.NoError(t, os.Chmod(path, mode))

			_, err := Load(path)
			assert.NoError(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERPAPI_MCP_TRANSPORT", "http")
	t.Setenv("SERPAPI_MCP_ADDR", ":9999")
	t.Setenv("SERPAPI_MCP_TIMEOUT", "12s")
	t.Setenv("SERPAPI_MCP_BREAKER_ENABLED", "true")
	t.Setenv("SERPAPI_MCP_AUTH_TOKENS", "a,b")
	t.Setenv("SERPAPI_MCP_LOG_LEVEL", "debug")
	t.Setenv("SERPAPI_API_KEY", "env-key")

	cfg := Defaults()
	require.NoError(t, ApplyEnvOverrides(cfg))

	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 12*time.Second, cfg.SerpAPI.Timeout)
	assert.True(t, cfg.SerpAPI.Breaker.Enabled)
	assert.Equal(t, []string{"a", "b"}, cfg.Server.AuthTokens)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "env-key", cfg.SerpAPI.APIKey)
	assert.Equal(t, "google_light", cfg.SerpAPI.DefaultEngine, "unset vars keep defaults")
}

func TestEnvOverridesAltAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERPAPI_KEY", "alt-key")

	cfg := Defaults()
	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.Equal(t, "alt-key", cfg.SerpAPI.APIKey)
}

func TestEnvOverridesBadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERPAPI_MCP_TIMEOUT", "soon")

	err := ApplyEnvOverrides(Defaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "env overrides")
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", `
serpapi:
  api_key: "yaml-key"
`)
	t.Setenv("SERPAPI_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.SerpAPI.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERPAPI_API_KEY=dotenv-key\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SERPAPI_API_KEY") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "dotenv-key", os.Getenv("SERPAPI_API_KEY"))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERPAPI_API_KEY=dotenv-key\n"), 0o600))
	t.Setenv("SERPAPI_API_KEY", "real-key")

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "real-key", os.Getenv("SERPAPI_API_KEY"))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := EncryptValue("secret-api-key", "passphrase")
	require.NoError(t, err)
	assert.NotContains(t, enc, "secret-api-key")

	dec, err := DecryptValue(enc, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "secret-api-key", dec)
}

func TestDecryptWrongPassphrase(t *testing.T) {
	enc, err := EncryptValue("secret", "right")
	require.NoError(t, err)

	_, err = DecryptValue(enc, "wrong")
	assert.Error(t, err)
}

func TestDecryptMalformed(t *testing.T) {
	for _, in := range []string{"no-colon", "zz:00", "00:zz", "00:00"} {
		_, err := DecryptValue(in, "pass")
		assert.Error(t, err, "input %q", in)
	}
}

func TestLoadDecryptsSecrets(t *testing.T) {
	clearEnv(t)
	encKey, err := EncryptValue("decrypted-key", "pw")
	require.NoError(t, err)
	encTok, err := EncryptValue("decrypted-token", "pw")
	require.NoError(t, err)

	path := writeConfigFile(t, t.TempDir(), "config.yaml", `
serpapi:
  api_key: "enc:`+encKey+`"
server:
  auth_tokens: ["plain", "enc:`+encTok+`"]
`)
	t.Setenv(EnvConfigKey, "pw")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "decrypted-key", cfg.SerpAPI.APIKey)
	assert.Equal(t, []string{"plain", "decrypted-token"}, cfg.Server.AuthTokens)
}

func TestLoadDecryptWrongPassphrase(t *testing.T) {
	clearEnv(t)
	encKey, err := EncryptValue("decrypted-key", "pw")
	require.NoError(t, err)
	path := writeConfigFile(t, t.TempDir(), "config.yaml", "serpapi:\n  api_key: \"enc:"+encKey+"\"\n")
	t.Setenv(EnvConfigKey, "other")

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt secrets")
}
