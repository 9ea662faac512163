// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cortx-io/m0meta/pkg/textutil"
)

func addOutputFlags(flags *pflag.FlagSet) {
	flags.StringP("format", "f", "", fmt.Sprintf("Format the output: \"table\", \"json\", \"yaml\" or a Go template.\nTemplate functions:\n  %s",
		strings.Join(textutil.FuncHelp, "\n  ")))
	flags.Bool("json", false, "JSONify output (same as --format=json)")
}

type outputKind int

const (
	outputTable outputKind = iota
	outputJSON
	outputYAML
	outputTemplate
)

type output struct {
	kind outputKind
	tmpl *template.Template
}

func outputOptions(cmd *cobra.Command) (*output, error) {
	goFormat, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}
	jsonFormat, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	if goFormat != "" && jsonFormat {
		return nil, errors.New("option --format conflicts with --json")
	}
	if jsonFormat {
		goFormat = "json"
	}
	switch goFormat {
	case "", "table":
		return &output{kind: outputTable}, nil
	case "json":
		return &output{kind: outputJSON}, nil
	case "yaml":
		return &output{kind: outputYAML}, nil
	}
	tmpl, err := textutil.Parse(goFormat)
	if err != nil {
		return nil, err
	}
	return &output{kind: outputTemplate, tmpl: tmpl}, nil
}

func (o *output) table() bool {
	return o.kind == outputTable
}

// write prints one item. JSON is one document per line; YAML documents
// are separated by "---".
func (o *output) write(w io.Writer, v interface{}) error {
	switch o.kind {
	case outputJSON:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case outputYAML:
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "---\n%s", b)
		return err
	case outputTemplate:
		if err := o.tmpl.Execute(w, v); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}
	return fmt.Errorf("output kind %d does not print items", o.kind)
}
