// Package initcmder provides the init command for initializing a local
// .hearth directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/hearth/pkg/cliui"
	"github.com/papercomputeco/hearth/pkg/config"
)

const dirName = ".hearth"

const initLongDesc string = `Initialize a new .hearth/ directory in the current working directory.

Creates a local .hearth/ directory that takes precedence over the default
~/.hearth/ directory for configuration and the SQLite database.

With --preset a config.toml is written for a known provider setup. An
existing config.toml is never overwritten.

Examples:
  hearth init
  hearth init --preset ollama`

const initShortDesc string = "Initialize a local .hearth/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Write a config preset (%s)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	var preset *config.Config
	if c.preset != "" {
		var err error
		preset, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	case err == nil:
		return fmt.Errorf("%s exists and is not a directory", dir)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .hearth directory: %w", err)
		}
		fmt.Fprintf(out, "Initialized .hearth directory: %s\n", dir)
	}

	if preset == nil {
		return nil
	}
	return writePreset(cmd, dir, c.preset, preset)
}

func writePreset(cmd *cobra.Command, dir, name string, preset *config.Config) error {
	out := cmd.OutOrStdout()

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, err = os.Stat(cfger.GetTarget())
	if err == nil {
		fmt.Fprintf(out, "  %s %s\n", cliui.WarnMark,
			cliui.DimStyle.Render("config.toml already exists, preset not applied"))
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config: %w", err)
	}

	if err := cfger.SaveConfig(preset); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Wrote %s preset to %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(name),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
	return nil
}
