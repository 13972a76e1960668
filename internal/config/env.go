package config

import (
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Environment variable names.
const (
	EnvHome          = "COREWALLET_HOME"
	EnvNetwork       = "COREWALLET_NETWORK"
	EnvCRPC          = "COREWALLET_C_RPC"
	EnvXPNode        = "COREWALLET_XP_NODE"
	EnvKeystore      = "COREWALLET_KEYSTORE"
	EnvSessionStore  = "COREWALLET_SESSION_STORE"
	EnvRedisAddr     = "COREWALLET_REDIS_ADDR"
	EnvMetricsListen = "COREWALLET_METRICS_LISTEN"
	EnvOutputFormat  = "COREWALLET_OUTPUT_FORMAT"
	EnvVerbose       = "COREWALLET_VERBOSE"
	EnvLogLevel      = "COREWALLET_LOG_LEVEL"
	EnvNoColor       = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
// The network preset is applied first so RPC overrides land on top of it.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvNetwork))) {
	case PresetFuji:
		cfg.Networks = FujiNetworks()
	case PresetMainnet:
		cfg.Networks = MainnetNetworks()
	}

	if v := os.Getenv(EnvCRPC); v != "" {
		cfg.Networks.C.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvXPNode); v != "" {
		node := SanitizeURL(v)
		cfg.Networks.X.RPC = node
		cfg.Networks.P.RPC = node
	}

	if v := os.Getenv(EnvKeystore); v != "" {
		cfg.Keystore.File = v
	}

	if v := os.Getenv(EnvSessionStore); v != "" {
		cfg.Sessions.Store = strings.ToLower(v)
	}

	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Sessions.RedisAddr = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvMetricsListen); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims a URL and drops whitespace and control characters
// left over from copy and paste.
func SanitizeURL(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
}
