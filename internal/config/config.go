// Package config provides configuration management for corewallet.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/corewallet/internal/chain"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/fileutil"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Networks NetworksConfig `yaml:"networks"`
	Fees     FeesConfig     `yaml:"fees"`
	Keystore KeystoreConfig `yaml:"keystore"`
	Arbiter  ArbiterConfig  `yaml:"arbiter"`
	Sessions SessionsConfig `yaml:"sessions"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NetworkConfig describes one chain.
type NetworkConfig struct {
	Name     string `yaml:"name"`
	CAIP2    string `yaml:"caip2"`
	ChainID  int64  `yaml:"chain_id,omitempty"`
	RPC      string `yaml:"rpc"`
	HRP      string `yaml:"hrp,omitempty"`
	Symbol   string `yaml:"symbol"`
	Decimals uint8  `yaml:"decimals"`
	Testnet  bool   `yaml:"testnet"`
}

// NetworksConfig holds the C, X and P chains of one Avalanche network.
// The X and P RPC values are the node base URL.
type NetworksConfig struct {
	Active string        `yaml:"active"`
	C      NetworkConfig `yaml:"c"`
	X      NetworkConfig `yaml:"x"`
	P      NetworkConfig `yaml:"p"`
}

// FeesConfig defines fee defaults. Zero values let the node decide.
type FeesConfig struct {
	DefaultMaxFeePerGasWei uint64 `yaml:"default_max_fee_per_gas_wei"`
	XPBaseFeeNAVAX         uint64 `yaml:"xp_base_fee_navax"`
}

// KeystoreConfig defines the local signer keystore.
type KeystoreConfig struct {
	File       string `yaml:"file"`
	Account    uint32 `yaml:"account"`
	XPAddrGap  uint32 `yaml:"xp_address_gap"`
	MemoryLock bool   `yaml:"memory_lock"`
}

// ArbiterConfig bounds inbound dapp traffic.
type ArbiterConfig struct {
	RatePerSecond        float64 `yaml:"rate_per_second"`
	Burst                int     `yaml:"burst"`
	PromptTimeoutSeconds int     `yaml:"prompt_timeout_seconds"`
	RetentionMinutes     int     `yaml:"retention_minutes"`
}

// SessionsConfig selects the connected-session store.
type SessionsConfig struct {
	Store       string `yaml:"store"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// MetricsConfig controls the Prometheus endpoint of serve.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file over the defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{"path": path, "reason": err.Error()})
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	return fileutil.WriteYAML(path, cfg, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default corewallet home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".corewallet"
	}
	return filepath.Join(home, ".corewallet")
}

// ExpandPath expands a leading ~/ to the user home directory.
func ExpandPath(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// ChainNetworks converts the configured chains into chain.Network values
// in C, X, P order.
func (c *Config) ChainNetworks() []*chain.Network {
	return []*chain.Network{
		c.Networks.C.toNetwork(chain.LedgerEVM),
		c.Networks.X.toNetwork(chain.LedgerAVM),
		c.Networks.P.toNetwork(chain.LedgerPVM),
	}
}

func (n NetworkConfig) toNetwork(l chain.LedgerType) *chain.Network {
	return &chain.Network{
		Name:      n.Name,
		ChainID:   n.ChainID,
		CAIP2:     n.CAIP2,
		Ledger:    l,
		Token:     chain.NativeToken{Symbol: n.Symbol, Name: "Avalanche", Decimals: n.Decimals},
		RPCURL:    n.RPC,
		HRP:       n.HRP,
		IsTestnet: n.Testnet,
	}
}

// Validate checks the configuration for values the services cannot use.
//
//nolint:gocyclo // Flat list of independent checks
func (c *Config) Validate() error {
	if err := c.Networks.C.validate("networks.c", true); err != nil {
		return err
	}
	if c.Networks.C.ChainID <= 0 {
		return invalid("networks.c.chain_id", "must be positive")
	}
	if want := chain.EVMCAIP2(c.Networks.C.ChainID); c.Networks.C.CAIP2 != want {
		return invalid("networks.c.caip2", "must be "+want)
	}
	for field, n := range map[string]NetworkConfig{"networks.x": c.Networks.X, "networks.p": c.Networks.P} {
		if err := n.validate(field, false); err != nil {
			return err
		}
		if _, ok := avax.ParamsForHRP(n.HRP); !ok {
			return invalid(field+".hrp", "unknown hrp "+n.HRP)
		}
	}
	switch c.Networks.Active {
	case c.Networks.C.CAIP2, c.Networks.X.CAIP2, c.Networks.P.CAIP2:
	default:
		return invalid("networks.active", "must be the caip2 of a configured chain")
	}

	if c.Arbiter.RatePerSecond <= 0 {
		return invalid("arbiter.rate_per_second", "must be positive")
	}
	if c.Arbiter.Burst < 1 {
		return invalid("arbiter.burst", "must be at least 1")
	}
	if c.Arbiter.PromptTimeoutSeconds < 0 || c.Arbiter.RetentionMinutes < 0 {
		return invalid("arbiter", "timeouts cannot be negative")
	}

	switch c.Sessions.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Sessions.RedisAddr == "" {
			return invalid("sessions.redis_addr", "required for the redis store")
		}
	default:
		return invalid("sessions.store", "must be memory or redis")
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return invalid("metrics.listen", "required when metrics are enabled")
	}
	switch c.Output.DefaultFormat {
	case "auto", "text", "json":
	default:
		return invalid("output.default_format", "must be auto, text or json")
	}
	return nil
}

func (n NetworkConfig) validate(field string, evmChain bool) error {
	if n.Name == "" {
		return invalid(field+".name", "required")
	}
	if _, _, ok := chain.SplitCAIP2(n.CAIP2); !ok {
		return invalid(field+".caip2", "must be namespace:reference")
	}
	if n.RPC == "" {
		return invalid(field+".rpc", "required")
	}
	if u, err := url.Parse(n.RPC); err != nil || u.Scheme == "" || u.Host == "" {
		return invalid(field+".rpc", "must be an absolute URL")
	}
	if !evmChain && n.HRP == "" {
		return invalid(field+".hrp", "required")
	}
	return nil
}

func invalid(field, reason string) error {
	return cwerr.WithDetails(cwerr.ErrConfigInvalid, map[string]string{"field": field, "reason": reason})
}
