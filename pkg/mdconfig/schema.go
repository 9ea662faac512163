// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package mdconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
	jsonschema2 "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/cortx-io/m0meta/pkg/btreetype"
)

const schemaURL = "https://github.com/cortx-io/m0meta/config.schema.json"

// Schema returns the JSON schema of Config. Stride keys are restricted to
// the known tree type names.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true}
	schema := r.Reflect(&Config{})
	schema.ID = schemaURL
	var names []any
	for _, t := range btreetype.TreeTypes() {
		names = append(names, t.String())
	}
	if strides, ok := schema.Properties.Get("strides"); ok {
		strides.PropertyNames = &jsonschema.Schema{Enum: names}
	}
	return schema
}

// ValidateSchema checks the YAML document b against Schema.
// It catches structural errors before Load parses the sizes.
func ValidateSchema(b []byte, comment string) error {
	j, err := json.Marshal(Schema())
	if err != nil {
		return err
	}
	doc, err := jsonschema2.UnmarshalJSON(bytes.NewReader(j))
	if err != nil {
		return err
	}
	compiler := jsonschema2.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return err
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return err
	}
	var y any
	if err := yaml.Unmarshal(b, &y); err != nil {
		return fmt.Errorf("failed to unmarshal YAML (%s): %w", comment, err)
	}
	if y == nil {
		y = map[string]any{}
	}
	if err := sch.Validate(y); err != nil {
		return fmt.Errorf("%s: %w", comment, err)
	}
	return nil
}
