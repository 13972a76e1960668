package cli

import (
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/chain/avax"
	"github.com/mrz1836/corewallet/internal/chain/evm"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/dapp"
	"github.com/mrz1836/corewallet/internal/output"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// contactsCmd is the parent command for the address book.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage the address book",
	Long: `Manage the contacts that dapps can read and update through the
avalanche_getContacts family of methods.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts",
	Long:  `List the address book entries.`,
	Example: `  corewallet contacts list
  corewallet contacts list -o json`,
	Args: cobra.NoArgs,
	RunE:  runContactsList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a contact",
	Long: `Add a contact, or replace the contact with --id.`,
	Example: `  corewallet contacts add alice --c 0x... --xp avax1...
  corewallet contacts add alice --id 3f0c... --c 0x...`,
	Args: cobra.ExactArgs(1),
	RunE: runContactsAdd,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var contactsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a contact",
	Long:  `Remove the address book entry with the given id.`,
	Example: `  corewallet contacts remove 3f0c5d1e-8a4b-4f4e-9d7a-0c1b2a3d4e5f`,
	Args:    cobra.ExactArgs(1),
	RunE:  runContactsRemove,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	contactID string
	contactC  string
	contactXP string
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(contactsCmd)
	contactsCmd.GroupID = "wallet"
	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsAddCmd)
	contactsCmd.AddCommand(contactsRemoveCmd)

	contactsAddCmd.Flags().StringVar(&contactID, "id", "", "contact id to replace (generated when empty)")
	contactsAddCmd.Flags().StringVar(&contactC, "c", "", "C-Chain address")
	contactsAddCmd.Flags().StringVar(&contactXP, "xp", "", "X/P-Chain address")
}

func openContacts(cfg *config.Config) (*app.ContactBook, error) {
	return app.LoadContacts(filepath.Join(config.ExpandPath(cfg.Home), app.ContactsFile))
}

func runContactsList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	book, err := openContacts(cc.Cfg)
	if err != nil {
		return err
	}

	list := book.List()
	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		if list == nil {
			list = []dapp.Contact{}
		}
		return writeJSON(w, list)
	}
	if len(list) == 0 {
		outln(w, "No contacts.")
		return nil
	}
	table := output.NewTable("ID", "NAME", "C-CHAIN", "X/P-CHAIN")
	for _, c := range list {
		table.AddRow(c.ID, c.Name, c.AddressC, c.AddressXP)
	}
	return table.Render(w)
}

func runContactsAdd(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	c, err := buildContact(cc.Cfg, contactID, args[0], contactC, contactXP)
	if err != nil {
		return err
	}
	book, err := openContacts(cc.Cfg)
	if err != nil {
		return err
	}
	if err := book.Put(commandContext(cmd), c); err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		return writeJSON(cmd.OutOrStdout(), c)
	}
	output.Std().Successf("Saved contact %s (%s)", c.Name, c.ID)
	return nil
}

// buildContact validates the addresses against the configured networks.
func buildContact(cfg *config.Config, id, name, addrC, addrXP string) (dapp.Contact, error) {
	if name == "" {
		return dapp.Contact{}, cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"reason": "contact name is required"})
	}
	if addrC == "" && addrXP == "" {
		return dapp.Contact{}, cwerr.WithSuggestion(cwerr.ErrInvalidInput, "pass --c, --xp or both")
	}
	if addrC != "" {
		if err := evm.ValidateAddress(addrC); err != nil {
			return dapp.Contact{}, err
		}
	}
	if addrXP != "" {
		_, hrp, _, err := avax.ParseAddress(addrXP)
		if err != nil {
			return dapp.Contact{}, err
		}
		if want := cfg.Networks.X.HRP; want != "" && hrp != want {
			return dapp.Contact{}, cwerr.WithDetails(cwerr.ErrInvalidAddress, map[string]string{
				"address":  addrXP,
				"expected": want,
				"got":      hrp,
			})
		}
		addrXP = avax.StripAlias(addrXP)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return dapp.Contact{ID: id, Name: name, AddressC: addrC, AddressXP: addrXP}, nil
}

func runContactsRemove(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	book, err := openContacts(cc.Cfg)
	if err != nil {
		return err
	}
	if err := book.Remove(commandContext(cmd), args[0]); err != nil {
		return err
	}
	out(cmd.OutOrStdout(), "Removed contact %s\n", args[0])
	return nil
}
