package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"universal-mcp-serpapi/internal/adapter/serpapi"
	"universal-mcp-serpapi/internal/domain"
	"universal-mcp-serpapi/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

// accountFetcher is the part of the SerpApi client the doctor needs.
type accountFetcher interface {
	Account(ctx context.Context) (*serpapi.Account, error)
}

// newAccountClient is replaced in tests.
var newAccountClient = func(cfg config.SerpAPIConfig) (accountFetcher, error) {
	return serpapi.New(cfg)
}

const accountCheckTimeout = 15 * time.Second

// runDoctor executes all health checks and reports results.
func runDoctor(w io.Writer, args []string) error {
	cfg, cfgPath, cfgErr := loadConfig(args)
	if cfgPath == "" {
		cfgPath = configPath(args)
	}

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Encrypted secrets", Fn: checkEncryptedSecrets},
		{Name: "SerpApi API key", Fn: checkAPIKey},
		{Name: "Transport", Fn: checkTransport},
		{Name: "SerpApi account", Fn: checkAccount},
	}

	fmt.Fprintln(w, binaryName+" doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	results := runChecks(cfg, checks)
	var pass, warn, fail int
	for _, result := range results {
		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}
		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func runChecks(cfg *config.Config, checks []Check) []CheckResult {
	results := make([]CheckResult, 0, len(checks))
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name
		results = append(results, result)
	}
	return results
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile returns a check that verifies the config file loaded. A
// missing file is fine: defaults and environment variables are used.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Fix %s or the SERPAPI_MCP_* variables named above", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("no file at %s; using defaults and environment", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkEncryptedSecrets catches "enc:" values left undecrypted because the
// passphrase is missing.
func checkEncryptedSecrets(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped (config not loaded)"}
	}
	encrypted := strings.HasPrefix(cfg.SerpAPI.APIKey, "enc:")
	for _, tok := range cfg.Server.AuthTokens {
		encrypted = encrypted || strings.HasPrefix(tok, "enc:")
	}
	if !encrypted {
		return CheckResult{Status: StatusPass, Message: "no undecrypted secrets"}
	}
	return CheckResult{
		Status:  StatusFail,
		Message: "config holds enc: secrets but they were not decrypted",
		Fix:     fmt.Sprintf("Export %s with the passphrase used by '%s encrypt'", config.EnvConfigKey, binaryName),
	}
}

func checkAPIKey(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{
			Status:  StatusFail,
			Message: "cannot check API key (config not loaded)",
		}
	}
	key := cfg.SerpAPI.APIKey
	if key == "" {
		return CheckResult{
			Status:  StatusFail,
			Message: "no SerpApi API key configured",
			Fix:     "Set SERPAPI_API_KEY (or serpapi.api_key in the config file); get a key at https://serpapi.com/manage-api-key",
		}
	}
	if strings.HasPrefix(key, "enc:") {
		return CheckResult{Status: StatusFail, Message: "API key is still encrypted"}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("API key configured (%s)", maskKey(key)),
	}
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func checkTransport(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusWarn, Message: "skipped (config not loaded)"}
	}
	if cfg.Server.Transport != "http" {
		return CheckResult{Status: StatusPass, Message: "stdio"}
	}

	msg := fmt.Sprintf("http on %s%s", cfg.Server.Addr, cfg.Server.EndpointPath)
	if len(cfg.Server.AuthTokens) == 0 && !isLoopback(cfg.Server.Addr) {
		return CheckResult{
			Status:  StatusWarn,
			Message: msg + " without auth tokens on a non-loopback address",
			Fix:     "Set server.auth_tokens (SERPAPI_MCP_AUTH_TOKENS) or bind to 127.0.0.1",
		}
	}
	return CheckResult{Status: StatusPass, Message: msg}
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// checkAccount calls /account.json, which does not consume search credits.
func checkAccount(cfg *config.Config) CheckResult {
	if cfg == nil || cfg.SerpAPI.APIKey == "" || strings.HasPrefix(cfg.SerpAPI.APIKey, "enc:") {
		return CheckResult{Status: StatusWarn, Message: "skipped (no usable API key)"}
	}

	client, err := newAccountClient(cfg.SerpAPI)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("client setup: %v", err)}
	}

	ctx, cancel := context.WithTimeout(context.Background(), accountCheckTimeout)
	defer cancel()

	acct, err := client.Account(ctx)
	switch {
	case errors.Is(err, domain.ErrAuthInvalid):
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("SerpApi rejected the API key: %v", err),
			Fix:     "Check the key at https://serpapi.com/manage-api-key",
		}
	case err != nil:
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("SerpApi unreachable: %v", err),
			Fix:     fmt.Sprintf("Check network access to %s", cfg.SerpAPI.BaseURL),
		}
	}

	msg := fmt.Sprintf("plan %q, %d of %d searches left this month", acct.PlanName, acct.SearchesLeft, acct.SearchesPerMonth)
	if acct.SearchesLeft <= 0 {
		return CheckResult{
			Status:  StatusWarn,
			Message: msg,
			Fix:     "Searches will fail until the quota resets or the plan is upgraded",
		}
	}
	return CheckResult{Status: StatusPass, Message: msg}
}
