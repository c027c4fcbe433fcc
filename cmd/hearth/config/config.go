// Package configcmder provides the config command for managing persistent
// hearth configuration stored in the .hearth/ directory.
package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/hearth/pkg/cliui"
	"github.com/papercomputeco/hearth/pkg/config"
)

const configLongDesc string = `Manage persistent hearth configuration.

Configuration is stored as config.toml in the .hearth/ directory and provides
default values for command flags. CLI flags and HEARTH_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example
llm.model, chat.history_limit, eventstream.brokers or embedding.dimensions.
Run "hearth config list" to see every key.

Examples:
  hearth config set llm.model gpt-4o
  hearth config set eventstream.provider kafka
  hearth config get chat.history_limit
  hearth config list`

const configShortDesc string = "Manage persistent hearth configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func validKey(key string) error {
	if config.IsValidConfigKey(key) {
		return nil
	}
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(cmd *cobra.Command, cfger *config.Configer) {
	out := cmd.OutOrStdout()
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}

// display masks credentials.
func display(key, value string) string {
	if value != "" && config.IsSecretKey(key) {
		return cliui.Mask(value)
	}
	return value
}
