package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ha1tch/tidisk/cmd/add"
	"github.com/ha1tch/tidisk/cmd/check"
	"github.com/ha1tch/tidisk/cmd/convert"
	"github.com/ha1tch/tidisk/cmd/create"
	"github.com/ha1tch/tidisk/cmd/delete"
	"github.com/ha1tch/tidisk/cmd/dir"
	"github.com/ha1tch/tidisk/cmd/extract"
	"github.com/ha1tch/tidisk/cmd/info"
	"github.com/ha1tch/tidisk/cmd/list"
	"github.com/ha1tch/tidisk/cmd/typefile"
	"github.com/ha1tch/tidisk/internal/cli"
	"github.com/ha1tch/tidisk/internal/config"
	"github.com/ha1tch/tidisk/internal/logging"
)

func main() {
	env := cli.NewEnv(afero.NewOsFs(), config.Default(), nil, os.Stdout)
	root := newRootCommand(env, config.DefaultPath())
	err := root.Execute()
	env.Log.Sync()
	os.Exit(report(os.Stderr, err))
}

// newRootCommand wires the subcommands to env. The settings file at
// cfgPath is read before any subcommand runs; flags given on the command
// line win over it.
func newRootCommand(env *cli.Env, cfgPath string) *cobra.Command {
	root := &cobra.Command{
		Use:           "tidisk",
		Short:         "Inspect and modify TI-99/4A floppy and hard disk images",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(env, cmd, cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "settings file")
	env.Settings.BindFlags(root.PersistentFlags())

	root.AddCommand(
		dir.NewCommand(env),
		typefile.NewCommand(env),
		list.NewCommand(env),
		create.NewCommand(env),
		info.NewCommand(env),
		check.NewCommand(env),
		add.NewCommand(env),
		extract.NewCommand(env),
		delete.NewCommand(env),
		convert.NewCommand(env),
	)
	root.SetOut(env.Out)
	return root
}

func setup(env *cli.Env, cmd *cobra.Command, cfgPath string) error {
	loaded, err := config.Load(env.Fs, cfgPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.LogLevel = env.Settings.LogLevel
	}
	if flags.Changed("escape") {
		loaded.EscapeChar = env.Settings.EscapeChar
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	*env.Settings = *loaded

	logger, err := logging.New(env.Settings.LogLevel)
	if err != nil {
		return err
	}
	env.Log = logger
	return nil
}

// report prints err and returns the process exit code. An image that
// cannot be opened or a path that does not resolve is reported on stderr
// without a failure status.
func report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "tidisk: %v\n", err)
	var rerr *cli.ResolveError
	if errors.As(err, &rerr) {
		return 0
	}
	return 1
}
