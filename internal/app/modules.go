package app

import (
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/dapp/handlers"
	"github.com/mrz1836/corewallet/internal/module"
)

// Module names.
const (
	ModuleEVM       = "evm"
	ModuleAvalanche = "avalanche"
)

// Manifests returns the VM module manifests for the configured chains.
func Manifests(cfg *config.Config) []module.Manifest {
	return []module.Manifest{
		{
			Name:       ModuleEVM,
			Ledger:     "evm",
			Namespaces: []string{"eip155"},
			ChainIDs:   []string{cfg.Networks.C.CAIP2},
			Methods: []string{
				"eth_*",
				"personal_sign",
				handlers.MethodSwitchChain,
			},
		},
		{
			Name:       ModuleAvalanche,
			Ledger:     "avm",
			Namespaces: []string{"avax"},
			ChainIDs:   []string{cfg.Networks.X.CAIP2, cfg.Networks.P.CAIP2},
			Methods:    []string{"avalanche_*"},
		},
	}
}

// NewRegistry builds the module router with the shipped handlers.
func NewRegistry(cfg *config.Config) (*module.Registry, error) {
	manifests := Manifests(cfg)
	evmMod, err := module.New(manifests[0], handlers.EVM()...)
	if err != nil {
		return nil, err
	}
	avaxMod, err := module.New(manifests[1], handlers.Avalanche()...)
	if err != nil {
		return nil, err
	}
	return module.NewRegistry(evmMod, avaxMod)
}
