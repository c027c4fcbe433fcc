// Package hearthcmder
package hearthcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/hearth/cmd/hearth/chat"
	configcmder "github.com/papercomputeco/hearth/cmd/hearth/config"
	initcmder "github.com/papercomputeco/hearth/cmd/hearth/init"
	servecmder "github.com/papercomputeco/hearth/cmd/hearth/serve"
	statuscmder "github.com/papercomputeco/hearth/cmd/hearth/status"
	versioncmder "github.com/papercomputeco/hearth/cmd/version"
)

const hearthLongDesc string = `Hearth is a household assistant that remembers.

Run the chat service and talk to it using:
  hearth init          Create a .hearth config directory
  hearth serve         Run the API server
  hearth chat          Chat with the assistant
  hearth status        Show server health and diagnostics
  hearth config        View and change configuration`

const hearthShortDesc string = "Hearth - Household Assistant"

func NewHearthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "hearth",
		Short:        hearthShortDesc,
		Long:         hearthLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .hearth config directory")

	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
