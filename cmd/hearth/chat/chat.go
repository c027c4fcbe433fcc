// Package chatcmder provides the chat command, an interactive client for the
// hearth chat stream.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/chatclient"
	"github.com/papercomputeco/hearth/pkg/cliui"
	"github.com/papercomputeco/hearth/pkg/config"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/notify"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("hearth> ")
)

const (
	cmdExit  = "/exit"
	cmdRetry = "/retry"
)

type chatCommander struct {
	flags config.FlagSet

	apiTarget   string
	inactivity  uint
	householdID string
	userID      string
	ndjson      bool
	markdown    bool
	debug       bool

	in  io.Reader
	out io.Writer
}

const chatLongDesc string = `Start an interactive chat session with the household assistant.

Messages are sent to a running hearth API server and the reply is printed
as it streams in. Notes about the household are remembered between sessions.

If the stream fails or goes quiet for longer than the inactivity timeout,
type /retry to send the same message again. /exit or Ctrl+D quits.

Examples:
  hearth chat --household smiths
  hearth chat --household smiths --user sam --api-target http://localhost:8081
  hearth chat --household smiths --ndjson --markdown`

const chatShortDesc string = "Chat with the household assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{flags: config.DefaultFlags}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("could not initialize config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{
				config.FlagAPITarget,
				config.FlagInactivityTimeout,
			})

			cmder.apiTarget = v.GetString("client.api_target")
			cmder.inactivity = v.GetUint("client.inactivity_timeout_seconds")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddUintFlag(cmd, cmder.flags, config.FlagInactivityTimeout, &cmder.inactivity)
	cmd.Flags().StringVar(&cmder.householdID, "household", "", "Household to chat as (required)")
	cmd.Flags().StringVar(&cmder.userID, "user", "", "Household member sending the messages")
	cmd.Flags().BoolVar(&cmder.ndjson, "ndjson", false, "Use the POST + NDJSON transport instead of SSE")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render each finished reply as markdown")
	_ = cmd.MarkFlagRequired("household")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	transport := chatclient.TransportSSE
	if c.ndjson {
		transport = chatclient.TransportNDJSON
	}

	client, err := chatclient.New(chatclient.Config{
		BaseURL:           c.apiTarget,
		Transport:         transport,
		InactivityTimeout: time.Duration(c.inactivity) * time.Second,
		Notifier:          notify.NewTerminal(c.out),
		Logger:            log,
		ReportErrors:      true,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s %s\n", cliui.KeyStyle.Render("Household:"), cliui.NameStyle.Render(c.householdID))
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Server:"), cliui.DimStyle.Render(c.apiTarget))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /retry resends a failed message, /exit or Ctrl+D quits."))

	scanner := bufio.NewScanner(c.in)
	var last *chatclient.Session

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == cmdExit:
			return nil
		case input == cmdRetry:
			if last == nil || last.Status == chatclient.StatusDone {
				fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("Nothing to retry."))
				continue
			}
			last = c.exchange(ctx, func(onDelta func(string)) (*chatclient.Session, error) {
				return client.Retry(ctx, last, onDelta)
			})
		default:
			req := chat.Request{
				Message:     input,
				HouseholdID: c.householdID,
				UserID:      c.userID,
			}
			last = c.exchange(ctx, func(onDelta func(string)) (*chatclient.Session, error) {
				return client.Stream(ctx, req, onDelta)
			})
		}
	}

	return scanner.Err()
}

// exchange prints the reply as it streams. With markdown enabled and a
// terminal attached, the finished reply is rendered again below.
func (c *chatCommander) exchange(ctx context.Context, send func(onDelta func(string)) (*chatclient.Session, error)) *chatclient.Session {
	fmt.Fprint(c.out, assistantPrompt)

	session, err := send(func(delta string) {
		fmt.Fprint(c.out, delta)
	})
	fmt.Fprintln(c.out)

	var serverErr *chatclient.ServerError
	switch {
	case err == nil:
		if c.markdown && isTerminal(c.out) {
			rendered, rerr := cliui.RenderMarkdown(session.Response)
			if rerr == nil {
				fmt.Fprint(c.out, rendered)
			}
		}
	case errors.As(err, &serverErr) && serverErr.Status >= 400 && serverErr.Status < 500:
		fmt.Fprintf(c.out, "  %s %s\n", cliui.FailMark, serverErr.Message)
	case ctx.Err() != nil:
	default:
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("Type /retry to send the message again."))
	}

	fmt.Fprintln(c.out)
	return session
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
