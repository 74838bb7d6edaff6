package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"universal-mcp-serpapi/internal/adapter/mcpserver"
	"universal-mcp-serpapi/internal/adapter/serpapi"
	"universal-mcp-serpapi/internal/adapter/tool"
	"universal-mcp-serpapi/internal/infra/config"
	"universal-mcp-serpapi/internal/infra/logger"
	"universal-mcp-serpapi/internal/infra/metrics"
	"universal-mcp-serpapi/internal/infra/middleware"
	"universal-mcp-serpapi/internal/infra/tracer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const binaryName = "universal_mcp_serpapi"

func main() {
	args := os.Args[1:]

	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		switch {
		case len(args) > 0 && (args[0] == "--help" || args[0] == "-h"):
			showUsage(os.Stdout)
			return
		case len(args) > 0 && args[0] == "--version":
			fmt.Println(version)
			return
		}
		exitOn("fatal", runServe(args))
		return
	}

	switch args[0] {
	case "serve":
		exitOn("serve", runServe(args[1:]))
	case "doctor":
		exitOn("doctor", runDoctor(os.Stdout, args[1:]))
	case "tools":
		exitOn("tools", runTools(os.Stdout, args[1:]))
	case "encrypt":
		exitOn("encrypt", runEncrypt(os.Stdout, args[1:]))
	case "version":
		fmt.Println(version)
	case "help":
		showUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun '%s --help' for usage information.\n", args[0], binaryName)
		os.Exit(2)
	}
}

func exitOn(prefix string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
		os.Exit(1)
	}
}

func showUsage(w io.Writer) {
	fmt.Fprintf(w, `%[1]s - MCP server for SerpApi web, Google Maps and review search

USAGE:
    %[1]s [COMMAND] [FLAGS]

COMMANDS:
    serve          Start the MCP server (default)
    doctor         Check configuration, API key and SerpApi reachability
    tools          Print the tool schemas as JSON
    encrypt VALUE  Encrypt a secret for the config file (needs %[2]s)
    version        Print the version

FLAGS:
    -h, --help             Show this help message
    --config PATH          Config file (default: $%[3]s or ./config.yaml)
    --transport NAME       stdio or http
    --addr HOST:PORT       Listen address for the http transport

CONFIGURATION:
    Config file: ./config.yaml (optional)
    Environment: SERPAPI_API_KEY (or SERPAPI_KEY), SERPAPI_MCP_* variables
    A .env file in the working directory is loaded first.

EXAMPLES:
    %[1]s                                   # stdio, for MCP clients
    %[1]s serve --transport http --addr :8080
    %[1]s doctor
    %[2]s=... %[1]s encrypt "$SERPAPI_API_KEY"
`, binaryName, config.EnvConfigKey, config.EnvConfigPath)
}

// flagValue returns the value of --name from args, in either "--name v" or
// "--name=v" form.
func flagValue(args []string, name string) string {
	flag := "--" + name
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, flag+"=") {
			return strings.TrimPrefix(arg, flag+"=")
		}
	}
	return ""
}

func configPath(args []string) string {
	if p := flagValue(args, "config"); p != "" {
		return p
	}
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		return p
	}
	return "config.yaml"
}

// loadConfig reads .env, the config file and the command-line overrides.
func loadConfig(args []string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}

	path := configPath(args)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}

	overridden := false
	if t := flagValue(args, "transport"); t != "" {
		cfg.Server.Transport = t
		overridden = true
	}
	if a := flagValue(args, "addr"); a != "" {
		cfg.Server.Addr = a
		overridden = true
	}
	if overridden {
		if err := config.Validate(cfg); err != nil {
			return nil, path, err
		}
	}
	return cfg, path, nil
}

func runServe(args []string) error {
	cfg, cfgPath, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger, binaryName)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer, tracer.WithServiceName(binaryName))
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	client, err := serpapi.New(cfg.SerpAPI, serpapi.WithMetrics(m), serpapi.WithLogger(log))
	if err != nil {
		return fmt.Errorf("serpapi client: %w", err)
	}
	if !client.HasAPIKey() {
		log.Warn("no SerpApi API key configured; every tool call will fail with AUTH_INVALID",
			"fix", "set SERPAPI_API_KEY or serpapi.api_key")
	}

	reg, err := tool.NewSearchRegistry(client, cfg, m, log)
	if err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	srv := mcpserver.New(cfg.Server.Name, version, reg, log)

	log.Info("universal_mcp_serpapi starting",
		"version", version,
		"config", cfgPath,
		"transport", cfg.Server.Transport,
		"tools", len(reg.List()),
		"default_engine", cfg.SerpAPI.DefaultEngine,
		"breaker", client.BreakerState(),
	)

	switch cfg.Server.Transport {
	case "http":
		httpSrv := mcpserver.NewHTTPServer(srv, httpConfig(cfg), m, client, log)
		return httpSrv.Start(ctx)
	default:
		return srv.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
}

func httpConfig(cfg *config.Config) mcpserver.HTTPConfig {
	hc := mcpserver.HTTPConfig{
		Addr:         cfg.Server.Addr,
		EndpointPath: cfg.Server.EndpointPath,
		AuthTokens:   cfg.Server.AuthTokens,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerMin: cfg.Server.RequestsPerMin,
			BurstSize:      cfg.Server.BurstSize,
			TrustedProxies: cfg.Server.TrustedProxies,
		},
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Version:         version,
	}
	if cfg.Metrics.Enabled {
		hc.MetricsPath = cfg.Metrics.Path
	}
	return hc
}

// runTools prints the enabled tools' schemas without contacting SerpApi.
func runTools(w io.Writer, args []string) error {
	cfg, _, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	client, err := serpapi.New(cfg.SerpAPI)
	if err != nil {
		return err
	}
	reg, err := tool.NewSearchRegistry(client, cfg, nil, logger.Discard())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reg.Schemas())
}

// runEncrypt prints an "enc:" value for the config file.
func runEncrypt(w io.Writer, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: " + binaryName + " encrypt VALUE")
	}
	passphrase := os.Getenv(config.EnvConfigKey)
	if passphrase == "" {
		return fmt.Errorf("%s must be set", config.EnvConfigKey)
	}
	enc, err := config.EncryptValue(args[0], passphrase)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "enc:"+enc)
	return nil
}
