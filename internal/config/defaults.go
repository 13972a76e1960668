package config

import "github.com/mrz1836/corewallet/internal/chain/avax"

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Network presets.
const (
	PresetMainnet = "mainnet"
	PresetFuji    = "fuji"
)

// Public API endpoints. They need no API key.
const (
	DefaultMainnetNode = "https://api.avax.network"
	DefaultFujiNode    = "https://api.avax-test.network"
)

// MainnetNetworks returns the Avalanche mainnet chains.
func MainnetNetworks() NetworksConfig {
	return NetworksConfig{
		Active: "eip155:43114",
		C: NetworkConfig{
			Name: "Avalanche C-Chain", CAIP2: "eip155:43114", ChainID: 43114,
			RPC: DefaultMainnetNode + "/ext/bc/C/rpc", Symbol: "AVAX", Decimals: 18,
		},
		X: NetworkConfig{
			Name: "Avalanche X-Chain", CAIP2: "avax:imji8papUf2EhV3le337w1vgFauqkJg-",
			RPC: DefaultMainnetNode, HRP: avax.HRPMainnet, Symbol: "AVAX", Decimals: avax.Decimals,
		},
		P: NetworkConfig{
			Name: "Avalanche P-Chain", CAIP2: "avax:Rr9hnPVPxuUvrdCul-vjEsU1zmqKqRDo",
			RPC: DefaultMainnetNode, HRP: avax.HRPMainnet, Symbol: "AVAX", Decimals: avax.Decimals,
		},
	}
}

// FujiNetworks returns the Fuji testnet chains.
func FujiNetworks() NetworksConfig {
	return NetworksConfig{
		Active: "eip155:43113",
		C: NetworkConfig{
			Name: "Avalanche Fuji C-Chain", CAIP2: "eip155:43113", ChainID: 43113,
			RPC: DefaultFujiNode + "/ext/bc/C/rpc", Symbol: "AVAX", Decimals: 18, Testnet: true,
		},
		X: NetworkConfig{
			Name: "Avalanche Fuji X-Chain", CAIP2: "avax:8AJTpRj3SAqv1e80Mtl9em08LhvKEbkl",
			RPC: DefaultFujiNode, HRP: avax.HRPFuji, Symbol: "AVAX", Decimals: avax.Decimals, Testnet: true,
		},
		P: NetworkConfig{
			Name: "Avalanche Fuji P-Chain", CAIP2: "avax:Sj7NVE3jXTbJvwFAiu7OEUo_8g8ctXMG",
			RPC: DefaultFujiNode, HRP: avax.HRPFuji, Symbol: "AVAX", Decimals: avax.Decimals, Testnet: true,
		},
	}
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version:  1,
		Home:     "~/.corewallet",
		Networks: MainnetNetworks(),
		Fees: FeesConfig{
			XPBaseFeeNAVAX: avax.DefaultBaseTxFee,
		},
		Keystore: KeystoreConfig{
			File:       "~/.corewallet/keystore.age",
			XPAddrGap:  5,
			MemoryLock: true,
		},
		Arbiter: ArbiterConfig{
			RatePerSecond:        5,
			Burst:                10,
			PromptTimeoutSeconds: 300,
			RetentionMinutes:     30,
		},
		Sessions: SessionsConfig{
			Store:       StoreMemory,
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "corewallet:sessions",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.corewallet/corewallet.log",
		},
	}
}
