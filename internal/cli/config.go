package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/output"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify corewallet configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.corewallet/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified. --network selects the mainnet or fuji chains.`,
	Example: `  corewallet config init
  corewallet config init --network fuji --force`,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings.`,
	Example: `  corewallet config show
  corewallet config show -o json`,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation and the key names of config.yaml.`,
	Example: `  corewallet config get networks.c.rpc
  corewallet config get sessions.store
  corewallet config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path.

The path uses dot notation and the key names of config.yaml. The updated
configuration is validated before the file is written.`,
	Example: `  corewallet config set networks.c.rpc https://api.avax.network/ext/bc/C/rpc
  corewallet config set sessions.store redis
  corewallet config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	configForce   bool
	configNetwork string
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.GroupID = "config"
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
	configInitCmd.Flags().StringVar(&configNetwork, "network", config.PresetMainnet, "network preset: mainnet or fuji")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	configPath := config.Path(config.ExpandPath(cc.Cfg.Home))

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return cwerr.WithSuggestion(
			cwerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Cfg.Home
	switch configNetwork {
	case config.PresetMainnet, "":
	case config.PresetFuji:
		defaultCfg.Networks = config.FujiNetworks()
	default:
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"network": configNetwork})
	}

	if err := config.Save(defaultCfg, configPath); err != nil {
		return cwerr.Wrap(err, "writing config file")
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - networks.c.rpc: C-Chain JSON-RPC endpoint")
	outln(w, "  - networks.x.rpc / networks.p.rpc: Avalanche node base URL")
	outln(w, "  - sessions.store: memory or redis")
	outln(w, "  - metrics.enabled: expose Prometheus metrics while serving")
	outln(w, "  - logging.level: Log level (off/error/info/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	w := cmd.OutOrStdout()

	if cc.Fmt != nil && cc.Fmt.Format() == output.FormatJSON {
		return displayConfigJSON(w, cc.Cfg)
	}
	return displayConfigText(w, cc.Cfg)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	path := args[0]

	value, err := getConfigValue(GetCmdContext(cmd).Cfg, path)
	if err != nil {
		return cwerr.WithSuggestion(err, fmt.Sprintf("configuration path '%s' not found", path))
	}

	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]
	cc := GetCmdContext(cmd)

	configPath := config.Path(config.ExpandPath(cc.Cfg.Home))
	current, err := config.Load(configPath)
	if err != nil {
		if cwerr.Is(err, cwerr.ErrConfigInvalid) {
			return err
		}
		current = config.Defaults()
		current.Home = cc.Cfg.Home
	}

	if err := setConfigValue(current, path, value); err != nil {
		return err
	}

	if err := config.Save(current, configPath); err != nil {
		return cwerr.Wrap(err, "saving config")
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

// configTree renders c as a YAML node tree keyed like config.yaml.
func configTree(c *config.Config) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(c); err != nil {
		return nil, cwerr.Wrap(err, "encoding config")
	}
	return &n, nil
}

// lookupNode walks a dot path through mapping nodes.
func lookupNode(root *yaml.Node, path string) (*yaml.Node, error) {
	node := root
	for _, part := range strings.Split(path, ".") {
		if node.Kind != yaml.MappingNode {
			return nil, cwerr.WithDetails(cwerr.ErrUnknownConfigKey, map[string]string{"path": path})
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == part {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil, cwerr.WithDetails(cwerr.ErrUnknownConfigKey, map[string]string{"path": path, "key": part})
		}
		node = next
	}
	return node, nil
}

// getConfigValue retrieves a scalar value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	root, err := configTree(c)
	if err != nil {
		return "", err
	}
	node, err := lookupNode(root, path)
	if err != nil {
		return "", err
	}
	if node.Kind != yaml.ScalarNode {
		return "", cwerr.WithDetails(cwerr.ErrUnknownConfigKey, map[string]string{
			"path":   path,
			"reason": "not a single value",
		})
	}
	return node.Value, nil
}

// setConfigValue sets a scalar value using dot notation. The value is
// decoded with the field's type and the result must validate; c is only
// changed on success.
func setConfigValue(c *config.Config, path, value string) error {
	root, err := configTree(c)
	if err != nil {
		return err
	}
	node, err := lookupNode(root, path)
	if err != nil {
		return err
	}
	if node.Kind != yaml.ScalarNode {
		return cwerr.WithDetails(cwerr.ErrUnknownConfigKey, map[string]string{
			"path":   path,
			"reason": "not a single value",
		})
	}
	node.Value = value

	updated := *c
	if err := root.Decode(&updated); err != nil {
		return cwerr.WithDetails(cwerr.ErrInvalidInput, map[string]string{"path": path, "reason": err.Error()})
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*c = updated
	return nil
}

func displayConfigText(w io.Writer, c *config.Config) error {
	outln(w, "Configuration:")
	out(w, "  Home:             %s\n", c.Home)
	outln(w)
	outln(w, "Networks:")
	out(w, "  Active:           %s\n", c.Networks.Active)
	for _, n := range []struct {
		label string
		cfg   config.NetworkConfig
	}{{"C", c.Networks.C}, {"X", c.Networks.X}, {"P", c.Networks.P}} {
		out(w, "  %s: %-14s %s (%s)\n", n.label, n.cfg.Name, n.cfg.CAIP2, displayRPC(n.cfg.RPC))
	}
	outln(w)
	outln(w, "Keystore:")
	out(w, "  File:             %s\n", c.Keystore.File)
	out(w, "  Account:          %d\n", c.Keystore.Account)
	outln(w)
	outln(w, "Sessions:")
	out(w, "  Store:            %s\n", c.Sessions.Store)
	if c.Sessions.Store == config.StoreRedis {
		out(w, "  Redis:            %s/%d\n", c.Sessions.RedisAddr, c.Sessions.RedisDB)
	}
	outln(w)
	outln(w, "Arbiter:")
	out(w, "  Rate:             %.1f/s (burst %d)\n", c.Arbiter.RatePerSecond, c.Arbiter.Burst)
	out(w, "  Prompt timeout:   %ds\n", c.Arbiter.PromptTimeoutSeconds)
	outln(w)
	outln(w, "Metrics:")
	out(w, "  Enabled:          %t (%s)\n", c.Metrics.Enabled, c.Metrics.Listen)
	outln(w)
	outln(w, "Output:")
	out(w, "  Format:           %s\n", c.Output.DefaultFormat)
	out(w, "  Color:            %s\n", c.Output.Color)
	outln(w)
	outln(w, "Logging:")
	out(w, "  Level:            %s\n", c.Logging.Level)
	out(w, "  File:             %s\n", c.Logging.File)
	return nil
}

// displayRPC hides URL credentials and query strings.
func displayRPC(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	clean := config.SanitizeURL(raw)
	if u, err := url.Parse(clean); err == nil {
		return u.Redacted()
	}
	return clean
}

func displayConfigJSON(w io.Writer, c *config.Config) error {
	root, err := configTree(c)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := root.Decode(&m); err != nil {
		return cwerr.Wrap(err, "encoding config")
	}
	return writeJSON(w, m)
}
