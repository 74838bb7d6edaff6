package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIncludesSecretsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "secrets.yaml", `
serpapi:
  api_key: "from-include"
`)
	path := writeConfigFile(t, dir, "config.yaml", `
includes:
  - "secrets.yaml"
logger:
  level: "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-include", cfg.SerpAPI.APIKey)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Nil(t, cfg.Includes)
}

func TestIncludesMainFileWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", `
serpapi:
  default_engine: "bing"
  timeout: 3s
`)
	path := writeConfigFile(t, dir, "config.yaml", `
includes: ["base.yaml"]
serpapi:
  default_engine: "google"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.SerpAPI.DefaultEngine)
	assert.Equal(t, "3s", cfg.SerpAPI.Timeout.String())
}

func TestIncludesGlob(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "conf.d")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeConfigFile(t, sub, "a.yaml", "logger:\n  format: json\n")
	writeConfigFile(t, sub, "b.yaml", "tools:\n  default_format: text\n")
	path := writeConfigFile(t, dir, "config.yaml", "includes: [\"conf.d/*.yaml\"]\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "text", cfg.Tools.DefaultFormat)
}

func TestIncludesGlobNoMatch(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", "includes: [\"conf.d/*.yaml\"]\n")

	_, err := Load(path)
	assert.NoError(t, err)
}

func TestIncludesMissingLiteral(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", "includes: [\"nope.yaml\"]\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config include")
}

func TestIncludesCycle(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "a.yaml", "includes: [\"b.yaml\"]\n")
	writeConfigFile(t, dir, "b.yaml", "includes: [\"a.yaml\"]\n")
	path := writeConfigFile(t, dir, "config.yaml", "includes: [\"a.yaml\"]\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestIncludesPathTraversal(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "inner")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeConfigFile(t, dir, "outside.yaml", "logger:\n  level: debug\n")
	path := writeConfigFile(t, sub, "config.yaml", "includes: [\"../outside.yaml\"]\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside of")
}
