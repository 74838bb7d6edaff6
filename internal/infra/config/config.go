package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"
)

// Env var names that are read outside of envconfig tags.
const (
	EnvConfigPath = "SERPAPI_MCP_CONFIG"
	EnvConfigKey  = "SERPAPI_MCP_CONFIG_KEY"
	envAltAPIKey  = "SERPAPI_KEY"
)

// Config is the top-level application configuration.
//
// Every overridable field carries an envconfig tag with its full variable
// name; envconfig falls back to that name when the nested key is unset.
type Config struct {
	Includes []string `yaml:"includes,omitempty" ignored:"true"`

	Server  ServerConfig  `yaml:"server"`
	SerpAPI SerpAPIConfig `yaml:"serpapi"`
	Tools   ToolsConfig   `yaml:"tools"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds MCP server and transport settings.
type ServerConfig struct {
	Name            string        `yaml:"name" envconfig:"SERPAPI_MCP_SERVER_NAME"`
	Transport       string        `yaml:"transport" envconfig:"SERPAPI_MCP_TRANSPORT"` // "stdio" or "http"
	Addr            string        `yaml:"addr" envconfig:"SERPAPI_MCP_ADDR"`
	EndpointPath    string        `yaml:"endpoint_path" envconfig:"SERPAPI_MCP_ENDPOINT_PATH"`
	AuthTokens      []string      `yaml:"auth_tokens,omitempty" envconfig:"SERPAPI_MCP_AUTH_TOKENS"`
	RequestsPerMin  int           `yaml:"requests_per_min" envconfig:"SERPAPI_MCP_REQUESTS_PER_MIN"`
	BurstSize       int           `yaml:"burst_size" envconfig:"SERPAPI_MCP_BURST_SIZE"`
	TrustedProxies  []string      `yaml:"trusted_proxies,omitempty" envconfig:"SERPAPI_MCP_TRUSTED_PROXIES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERPAPI_MCP_SHUTDOWN_TIMEOUT"`
}

// SerpAPIConfig holds vendor search API settings.
type SerpAPIConfig struct {
	APIKey            string        `yaml:"api_key" envconfig:"SERPAPI_API_KEY"`
	BaseURL           string        `yaml:"base_url" envconfig:"SERPAPI_MCP_BASE_URL"`
	DefaultEngine     string        `yaml:"default_engine" envconfig:"SERPAPI_MCP_DEFAULT_ENGINE"`
	Timeout           time.Duration `yaml:"timeout" envconfig:"SERPAPI_MCP_TIMEOUT"`
	NoCache           bool          `yaml:"no_cache" envconfig:"SERPAPI_MCP_NO_CACHE"`
	RequestsPerMinute int           `yaml:"requests_per_minute" envconfig:"SERPAPI_MCP_UPSTREAM_REQUESTS_PER_MIN"` // 0 = unlimited
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the upstream circuit breaker.
type BreakerConfig struct {
	Enabled     bool          `yaml:"enabled" envconfig:"SERPAPI_MCP_BREAKER_ENABLED"`
	MaxFailures uint32        `yaml:"max_failures" envconfig:"SERPAPI_MCP_BREAKER_MAX_FAILURES"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"SERPAPI_MCP_BREAKER_TIMEOUT"`
	Interval    time.Duration `yaml:"interval" envconfig:"SERPAPI_MCP_BREAKER_INTERVAL"`
}

// ToolsConfig holds tool registration settings.
type ToolsConfig struct {
	Enabled          []string `yaml:"enabled,omitempty" envconfig:"SERPAPI_MCP_TOOLS_ENABLED"` // empty = all
	SchemaValidation bool     `yaml:"schema_validation" envconfig:"SERPAPI_MCP_TOOLS_SCHEMA_VALIDATION"`
	DefaultFormat    string   `yaml:"default_format" envconfig:"SERPAPI_MCP_TOOLS_DEFAULT_FORMAT"` // "json" or "text"
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level" envconfig:"SERPAPI_MCP_LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"SERPAPI_MCP_LOG_FORMAT"`
	Output string `yaml:"output" envconfig:"SERPAPI_MCP_LOG_OUTPUT"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"SERPAPI_MCP_TRACER_ENABLED"`
	Exporter string `yaml:"exporter" envconfig:"SERPAPI_MCP_TRACER_EXPORTER"`
}

// MetricsConfig holds Prometheus settings. Metrics are only served by the
// http transport.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"SERPAPI_MCP_METRICS_ENABLED"`
	Path    string `yaml:"path" envconfig:"SERPAPI_MCP_METRICS_PATH"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "universal_mcp_serpapi",
			Transport:       "stdio",
			Addr:            "127.0.0.1:8080",
			EndpointPath:    "/mcp",
			RequestsPerMin:  120,
			BurstSize:       20,
			ShutdownTimeout: 10 * time.Second,
		},
		SerpAPI: SerpAPIConfig{
			BaseURL:       "https://serpapi.com",
			DefaultEngine: "google_light",
			Timeout:       30 * time.Second,
			Breaker: BreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Tools: ToolsConfig{
			SchemaValidation: true,
			DefaultFormat:    "json",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored; variables that
// are already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Includes) > 0 {
			visited := map[string]bool{absPath: true}
			if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
				return nil, err
			}
			// The including file wins over anything it pulled in.
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config (second pass): %w", err)
			}
			cfg.Includes = nil
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if passphrase := os.Getenv(EnvConfigKey); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, fmt.Errorf("decrypt secrets: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps SERPAPI_MCP_* (and SERPAPI_API_KEY) env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	if cfg.SerpAPI.APIKey == "" {
		cfg.SerpAPI.APIKey = os.Getenv(envAltAPIKey)
	}
	return nil
}

// decryptSecrets finds "enc:..." values in secret fields and decrypts them.
func decryptSecrets(cfg *Config, passphrase string) error {
	if strings.HasPrefix(cfg.SerpAPI.APIKey, "enc:") {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.SerpAPI.APIKey, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("serpapi api_key: %w", err)
		}
		cfg.SerpAPI.APIKey = decrypted
	}

	for i, tok := range cfg.Server.AuthTokens {
		if !strings.HasPrefix(tok, "enc:") {
			continue
		}
		decrypted, err := DecryptValue(strings.TrimPrefix(tok, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("server auth token #%d: %w", i+1, err)
		}
		cfg.Server.AuthTokens[i] = decrypted
	}

	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value.
func DecryptValue(encrypted, passphrase string) (string, error) {
	parts := strings.SplitN(encrypted, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid encrypted format")
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Group or world write is rejected; read bits are fine.
	if mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (must not be group or world writable)", path, mode)
	}
	return nil
}
