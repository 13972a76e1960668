package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/module"
	"github.com/mrz1836/corewallet/internal/output"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// routeCmd explains module resolution.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var routeCmd = &cobra.Command{
	Use:   "route [chain-id method]",
	Short: "Explain which module handles a request",
	Long: `Resolve a CAIP-2 chain id and method through the module router the way an
inbound dapp request would be resolved. Without arguments the module
manifests are listed.`,
	Example: `  corewallet route
  corewallet route eip155:43114 eth_sendTransaction
  corewallet route avax:imji8papUf2EhV3le337w1vgFauqkJg- avalanche_sendTransaction`,
	Args: func(_ *cobra.Command, args []string) error {
		if len(args) == 0 || len(args) == 2 {
			return nil
		}
		return cwerr.WithSuggestion(cwerr.ErrInvalidInput, "pass both a chain id and a method, or nothing")
	},
	RunE: runRoute,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(routeCmd)
	routeCmd.GroupID = "dapp"
}

// routeResult is one resolution.
type routeResult struct {
	ChainID   string `json:"chain_id"`
	Method    string `json:"method"`
	Module    string `json:"module"`
	Ledger    string `json:"ledger"`
	Handled   bool   `json:"handled"`
	MatchedBy string `json:"matched_by"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	reg, err := app.NewRegistry(cc.Cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	asJSON := cc.Fmt.IsJSON()

	if len(args) == 0 {
		manifests := make([]module.Manifest, 0, len(reg.Modules()))
		for _, m := range reg.Modules() {
			manifests = append(manifests, m.Manifest())
		}
		if asJSON {
			return writeJSON(w, manifests)
		}
		return writeManifests(w, manifests)
	}

	res, err := resolveRoute(reg, args[0], args[1])
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, res)
	}
	out(w, "Module:     %s (%s ledger)\n", res.Module, res.Ledger)
	out(w, "Matched by: %s\n", res.MatchedBy)
	out(w, "Handler:    %t\n", res.Handled)
	return nil
}

// resolveRoute runs the router and reports how the module was chosen.
func resolveRoute(reg *module.Registry, chainID, method string) (*routeResult, error) {
	mod, err := reg.LoadModule(chainID, method)
	if err != nil {
		return nil, err
	}
	res := &routeResult{
		ChainID:   chainID,
		Method:    method,
		Module:    mod.Name(),
		Ledger:    mod.Ledger().String(),
		MatchedBy: "namespace",
	}
	for _, id := range mod.Manifest().ChainIDs {
		if id == chainID {
			res.MatchedBy = "chain id"
			break
		}
	}
	_, res.Handled = mod.Handler(method)
	return res, nil
}

func writeManifests(w io.Writer, manifests []module.Manifest) error {
	table := output.NewTable("MODULE", "LEDGER", "NAMESPACES", "CHAINS", "METHODS").Truncate(4, 60)
	for _, m := range manifests {
		table.AddRow(
			m.Name,
			m.Ledger,
			strings.Join(m.Namespaces, ","),
			strings.Join(m.ChainIDs, ","),
			strings.Join(m.Methods, ","),
		)
	}
	return table.Render(w)
}
