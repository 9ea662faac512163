// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newGenDocCommand() *cobra.Command {
	genDocCommand := &cobra.Command{
		Use:    "generate-doc DIR",
		Short:  "Generate cli-reference pages",
		Args:   WrapArgsError(cobra.ExactArgs(1)),
		RunE:   gendocAction,
		Hidden: true,
	}
	genDocCommand.Flags().String("type", "man", "Output type (man, markdown)")
	return genDocCommand
}

func gendocAction(cmd *cobra.Command, args []string) error {
	outputType, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	dir := args[0]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	switch outputType {
	case "man":
		logrus.Infof("Generating man %q", dir)
		return doc.GenManTree(cmd.Root(), &doc.GenManHeader{
			Title:   "M0META",
			Section: "1",
			Source:  "m0meta",
		}, dir)
	case "markdown":
		logrus.Infof("Generating markdown %q", dir)
		return doc.GenMarkdownTree(cmd.Root(), dir)
	}
	return fmt.Errorf("unsupported output type %q", outputType)
}
