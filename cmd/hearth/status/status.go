// Package statuscmder provides the status command for checking a running
// hearth server and its recorded diagnostics.
package statuscmder

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/hearth/pkg/chatclient"
	"github.com/papercomputeco/hearth/pkg/cliui"
	"github.com/papercomputeco/hearth/pkg/config"
	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/utils"
)

const statusLongDesc string = `Show the state of a running hearth server.

Pings the server and lists the most recent error aggregates it has recorded,
such as a missing provider key or failed conversation writes.

Examples:
  hearth status
  hearth status --api-target http://localhost:8081 --limit 20`

const statusShortDesc string = "Show server health and diagnostics"

const defaultLimit = 10

type statusCommander struct {
	apiTarget string
	limit     int
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("could not initialize config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{config.FlagAPITarget})
			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVar(&cmder.limit, "limit", defaultLimit, "Number of error aggregates to show")

	return cmd
}

func (c *statusCommander) run(ctx context.Context, out io.Writer) error {
	client, err := chatclient.New(chatclient.Config{BaseURL: c.apiTarget})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s  %s\n\n", cliui.KeyStyle.Render("Server:"), cliui.ValueStyle.Render(c.apiTarget))
	if err := cliui.Step(out, "Pinging server", func() error { return client.Ping(ctx) }); err != nil {
		fmt.Fprintf(out, "    %s\n\n", cliui.DimStyle.Render("unreachable: "+err.Error()))
		return err
	}

	var aggs []*storage.ErrorAggregate
	if err := cliui.Step(out, "Loading diagnostics", func() error {
		aggs, err = client.Diagnostics(ctx, c.limit)
		return err
	}); err != nil {
		return err
	}
	fmt.Fprintln(out)

	if len(aggs) == 0 {
		fmt.Fprintf(out, "  %s No errors recorded.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(out, "  %s  %s\n\n", cliui.KeyStyle.Render("Errors:"), cliui.NameStyle.Render(strconv.Itoa(len(aggs))))
	for _, a := range aggs {
		fmt.Fprintf(out, "  %s %s %s %s\n",
			levelMark(a.Level),
			cliui.NameStyle.Render(a.Fingerprint),
			cliui.DimStyle.Render(fmt.Sprintf("x%d", a.Occurrences)),
			cliui.DimStyle.Render(a.LastSeen.Local().Format("2006-01-02 15:04")),
		)
		if a.LastMessage != "" {
			fmt.Fprintf(out, "    %s\n", cliui.ValueStyle.Render(utils.Truncate(a.LastMessage, 72)))
		}
	}

	fmt.Fprintln(out)
	return nil
}

func levelMark(level string) string {
	switch level {
	case "critical", "error":
		return cliui.FailMark
	case "warning":
		return cliui.WarnMark
	default:
		return cliui.InfoMark
	}
}
