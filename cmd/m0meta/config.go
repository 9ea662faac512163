// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cortx-io/m0meta/pkg/mdconfig"
)

func newConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:     "config",
		Short:   "Show or validate scan configuration",
		GroupID: "advanced",
	}
	configCommand.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective configuration as YAML",
			Args:  WrapArgsError(cobra.NoArgs),
			RunE:  configShowAction,
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print the JSON schema of the configuration",
			Args:  WrapArgsError(cobra.NoArgs),
			RunE:  configSchemaAction,
		},
		&cobra.Command{
			Use:   "validate FILE...",
			Short: "Validate configuration files",
			Args:  WrapArgsError(cobra.MinimumNArgs(1)),
			RunE:  configValidateAction,
		},
	)
	return configCommand
}

func configShowAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	b, err := mdconfig.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(b)
	return err
}

func configSchemaAction(cmd *cobra.Command, _ []string) error {
	j, err := json.MarshalIndent(mdconfig.Schema(), "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(j))
	return err
}

func configValidateAction(_ *cobra.Command, args []string) error {
	for _, f := range args {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := mdconfig.ValidateSchema(b, f); err != nil {
			return err
		}
		if _, err := mdconfig.Load(b, f); err != nil {
			return fmt.Errorf("failed to validate %q: %w", f, err)
		}
		logrus.Infof("%q: OK", f)
	}
	return nil
}
