// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/docker/go-units"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cortx-io/m0meta/pkg/mdconfig"
	"github.com/cortx-io/m0meta/pkg/segment"
	"github.com/cortx-io/m0meta/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newApp().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.Error(err)
		os.Exit(exitCode(err))
	}
}

func processGlobalFlags(rootCmd *cobra.Command) error {
	// --log-level will override --debug
	if debug, _ := rootCmd.Flags().GetBool("debug"); debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	l, _ := rootCmd.Flags().GetString("log-level")
	if l != "" {
		lvl, err := logrus.ParseLevel(l)
		if err != nil {
			return err
		}
		logrus.SetLevel(lvl)
	}

	logFormat, _ := rootCmd.Flags().GetString("log-format")
	switch logFormat {
	case "json":
		formatter := new(logrus.JSONFormatter)
		logrus.StandardLogger().SetFormatter(formatter)
	case "text":
		// logrus use text format by default.
		if runtime.GOOS == "windows" && isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			formatter := new(logrus.TextFormatter)
			// the default setting does not recognize cygwin on windows
			formatter.ForceColors = true
			logrus.StandardLogger().SetFormatter(formatter)
		}
	default:
		return fmt.Errorf("unsupported log-format: %q", logFormat)
	}
	return nil
}

func newApp() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "m0meta",
		Short:   "m0meta: inspect and corrupt motr metadata segments",
		Version: strings.TrimPrefix(version.Version, "v"),
		Example: `  List the B-tree nodes of a segment:
  $ m0meta scan /var/motr/m0d-0x7200000000000001:0xc/db/o/100000000000000:2a

  List the EMAP extents per device:
  $ m0meta emap ls SEGMENT

  Corrupt the EMAP record of a COB (stop the motr service first):
  $ m0meta emap corrupt SEGMENT 4300000000000005:2a`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	rootCmd.PersistentFlags().String("log-level", "", "Set the logging level [trace, debug, info, warn, error]")
	rootCmd.PersistentFlags().String("log-format", "text", "Set the logging format [text, json]")
	rootCmd.PersistentFlags().Bool("debug", false, "Debug mode")
	rootCmd.PersistentFlags().String("config", "", "Scan configuration YAML (see `m0meta config show`)")
	rootCmd.PersistentFlags().String("scan-bound", "", "Stop scanning past this offset, e.g. 4GiB (overrides the config)")
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return processGlobalFlags(rootCmd)
	}
	rootCmd.AddGroup(&cobra.Group{ID: "basic", Title: "Basic Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "advanced", Title: "Advanced Commands:"})

	rootCmd.AddCommand(
		newScanCommand(),
		newEmapCommand(),
		newRecordCommand(),
		newFIDCommand(),
		newConfigCommand(),
		newGenDocCommand(),
	)
	return rootCmd
}

// loadConfig applies --config and --scan-bound.
func loadConfig(cmd *cobra.Command) (*mdconfig.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := mdconfig.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("scan-bound") {
		bound, err := cmd.Flags().GetString("scan-bound")
		if err != nil {
			return nil, err
		}
		if _, err := units.RAMInBytes(bound); err != nil {
			return nil, fmt.Errorf("invalid --scan-bound %q: %w", bound, err)
		}
		cfg.ScanBound = bound
	}
	if err := mdconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// segmentOpts returns the options shared by every command that opens a segment.
func segmentOpts(cmd *cobra.Command) ([]segment.Opt, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []segment.Opt{
		segment.WithConfig(cfg),
		segment.WithLogger(logrus.NewEntry(logrus.StandardLogger())),
	}, nil
}

// WrapArgsError annotates cobra args error with some context, so the error message is more user-friendly.
func WrapArgsError(argFn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		err := argFn(cmd, args)
		if err == nil {
			return nil
		}

		return fmt.Errorf("%q %s.\nSee '%s --help'.\n\nUsage:  %s\n\n%s",
			cmd.CommandPath(), err.Error(),
			cmd.CommandPath(),
			cmd.UseLine(), cmd.Short,
		)
	}
}

// exitCode maps well-known errors to distinct process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, segment.ErrTargetNotFound):
		return 2
	}
	return 1
}
