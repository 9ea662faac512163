// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package mdconfig holds the format-version parameters of a segment scan:
// the scan bound and the per-tree-type node strides.
package mdconfig

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/docker/go-units"
	"github.com/goccy/go-yaml"

	"github.com/cortx-io/m0meta/pkg/btreetype"
)

// Config is the YAML form. Sizes are human readable ("16KiB", "1GiB", "8").
type Config struct {
	ScanBound     string            `yaml:"scanBound,omitempty" json:"scanBound,omitempty"`
	DefaultStride string            `yaml:"defaultStride,omitempty" json:"defaultStride,omitempty"`
	Strides       map[string]string `yaml:"strides,omitempty" json:"strides,omitempty"`
}

// Limits is the resolved form consumed by the scanner.
type Limits struct {
	ScanBound     int64
	DefaultStride int64
	Strides       map[btreetype.TreeType]int64
}

// Stride returns the distance from a header of tree type t to the next probe.
func (l *Limits) Stride(t btreetype.TreeType) int64 {
	if s, ok := l.Strides[t]; ok {
		return s
	}
	return l.DefaultStride
}

const (
	DefaultScanBound     = "1GiB"
	DefaultDefaultStride = "8"
)

// DefaultStrides are the node body sizes per tree type.
// Tree types that are absent use the default stride.
func DefaultStrides() map[string]string {
	return map[string]string{
		btreetype.TreeBallocGroupDesc.String():    "4KiB",
		btreetype.TreeBallocGroupExtents.String(): "4KiB",
		btreetype.TreeEmapMapping.String():        "16KiB",
		btreetype.TreeCASCtg.String():             "64KiB",
		btreetype.TreeCOBObjectIndex.String():     "8KiB",
		btreetype.TreeCOBFileattrBasic.String():   "8KiB",
		btreetype.TreeCOBFileattrEA.String():      "8KiB",
		btreetype.TreeCOBFileattrOMG.String():     "8KiB",
		btreetype.TreeCOBBytecount.String():       "8KiB",
		btreetype.TreeConfDB.String():             "4KiB",
		btreetype.TreeUTKVOps.String():            "8KiB",
	}
}

// Default returns a config with every field filled.
func Default() *Config {
	var c Config
	FillDefault(&c)
	return &c
}

// FillDefault fills unspecified fields. Strides given in c override the
// defaults one tree type at a time.
func FillDefault(c *Config) {
	if c.ScanBound == "" {
		c.ScanBound = DefaultScanBound
	}
	if c.DefaultStride == "" {
		c.DefaultStride = DefaultDefaultStride
	}
	strides := DefaultStrides()
	for k, v := range c.Strides {
		strides[k] = v
	}
	c.Strides = strides
}

// Validate checks that every size parses and every tree name is known.
func Validate(c *Config) error {
	_, err := c.Resolve()
	return err
}

// Resolve parses c into Limits.
func (c *Config) Resolve() (*Limits, error) {
	var errs []error
	l := &Limits{Strides: make(map[btreetype.TreeType]int64)}

	bound, err := units.RAMInBytes(c.ScanBound)
	if err != nil {
		errs = append(errs, fmt.Errorf("field `scanBound` has an invalid value: %w", err))
	} else if bound <= 0 {
		errs = append(errs, fmt.Errorf("field `scanBound` must be positive, got %q", c.ScanBound))
	}
	l.ScanBound = bound

	l.DefaultStride, err = parseStride("defaultStride", c.DefaultStride)
	if err != nil {
		errs = append(errs, err)
	}

	names := make([]string, 0, len(c.Strides))
	for name := range c.Strides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t, ok := btreetype.ParseTreeType(name)
		if !ok {
			errs = append(errs, fmt.Errorf("field `strides` refers to an unknown tree type %q", name))
			continue
		}
		s, err := parseStride(fmt.Sprintf("strides[%s]", name), c.Strides[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.Strides[t] = s
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return l, nil
}

func parseStride(field, s string) (int64, error) {
	v, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("field `%s` has an invalid value: %w", field, err)
	}
	if v <= 0 || v%8 != 0 {
		return 0, fmt.Errorf("field `%s` must be a positive multiple of 8, got %q", field, s)
	}
	return v, nil
}

// Load parses b, fills defaults and validates.
func Load(b []byte, comment string) (*Config, error) {
	var c Config
	if err := Unmarshal(b, &c, comment); err != nil {
		return nil, err
	}
	FillDefault(&c)
	if err := Validate(&c); err != nil {
		return nil, fmt.Errorf("invalid config (%s): %w", comment, err)
	}
	return &c, nil
}

// LoadFile is Load for a file path. An empty path returns Default().
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(b, path)
}

// Unmarshal decodes YAML strictly, rejecting duplicate and unknown keys.
func Unmarshal(data []byte, v interface{}, comment string) error {
	if err := yaml.UnmarshalWithOptions(data, v, yaml.DisallowDuplicateKey(), yaml.Strict()); err != nil {
		return fmt.Errorf("failed to unmarshal YAML (%s): %w", comment, err)
	}
	return nil
}

// Marshal returns c as a YAML document.
func Marshal(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}
