// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutil renders --format templates.
package textutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"text/template"

	"github.com/docker/go-units"
	"github.com/goccy/go-yaml"
)

// Parse parses tmpl with TemplateFuncMap.
func Parse(tmpl string) (*template.Template, error) {
	return template.New("format").Funcs(TemplateFuncMap).Parse(tmpl)
}

// ExecuteTemplate executes tmpl against args.
func ExecuteTemplate(tmpl string, args interface{}) ([]byte, error) {
	x, err := Parse(tmpl)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := x.Execute(&b, args); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// PrefixString adds prefix to beginning of each line
func PrefixString(prefix, text string) string {
	result := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			result = append(result, "")
			continue
		}
		result = append(result, prefix+line)
	}
	return strings.Join(result, "\n")
}

// IndentString add spaces to beginning of each line
func IndentString(size int, text string) string {
	prefix := strings.Repeat(" ", size)
	return PrefixString(prefix, text)
}

// toUint64 accepts any integer kind, including named types such as mdformat.Word.
func toUint64(v interface{}) (uint64, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), nil
	}
	return 0, fmt.Errorf("cannot convert %T to an integer", v)
}

// TemplateFuncMap is a text/template FuncMap.
var TemplateFuncMap = template.FuncMap{
	"json": func(v interface{}) string {
		var b bytes.Buffer
		enc := json.NewEncoder(&b)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			panic(fmt.Errorf("failed to marshal as JSON: %+v: %w", v, err))
		}
		return strings.TrimSuffix(b.String(), "\n")
	},
	"yaml": func(v interface{}) string {
		var b bytes.Buffer
		enc := yaml.NewEncoder(&b)
		if err := enc.Encode(v); err != nil {
			panic(fmt.Errorf("failed to marshal as YAML: %+v: %w", v, err))
		}
		return "---\n" + strings.TrimSuffix(b.String(), "\n")
	},
	"hex": func(v interface{}) (string, error) {
		u, err := toUint64(v)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%016x", u), nil
	},
	"size": func(v interface{}) (string, error) {
		u, err := toUint64(v)
		if err != nil {
			return "", err
		}
		return units.BytesSize(float64(u)), nil
	},
	"indent": func(a ...interface{}) (string, error) {
		if len(a) == 0 {
			return "", errors.New("function takes at least one string argument")
		}
		if len(a) > 2 {
			return "", errors.New("function takes at most 2 arguments")
		}
		var ok bool
		size := 2
		if len(a) > 1 {
			if size, ok = a[0].(int); !ok {
				return "", errors.New("optional first argument must be an integer")
			}
		}
		text := ""
		if text, ok = a[len(a)-1].(string); !ok {
			return "", errors.New("last argument must be a string")
		}
		return IndentString(size, text), nil
	},
}

// FuncHelp is help for TemplateFuncMap.
var FuncHelp = []string{
	"json: marshal as JSON",
	"yaml: marshal as YAML",
	"hex: format an integer as 16 hex digits",
	"size: format a byte count, e.g. 16KiB",
	"indent <size>: add spaces to beginning of each line",
}
