// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package btreetype

import (
	"github.com/goccy/go-yaml"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry accumulates node offsets per tree type for one scan.
// Names appear in tree-type code order; offsets in discovery order.
type Registry struct {
	offsets *orderedmap.OrderedMap[string, []int64]
}

// NewRegistry returns a registry seeded with every known tree type.
func NewRegistry() *Registry {
	om := orderedmap.New[string, []int64]()
	for _, t := range TreeTypes() {
		om.Set(t.String(), []int64{})
	}
	return &Registry{offsets: om}
}

// Add records off under t. Unknown tree types are not stored.
func (r *Registry) Add(t TreeType, off int64) bool {
	if !t.Known() {
		return false
	}
	offs, _ := r.offsets.Get(t.String())
	r.offsets.Set(t.String(), append(offs, off))
	return true
}

// Offsets returns the offsets recorded for t.
func (r *Registry) Offsets(t TreeType) []int64 {
	offs, _ := r.offsets.Get(t.String())
	return offs
}

// Len returns the total number of recorded offsets.
func (r *Registry) Len() int {
	n := 0
	for pair := r.offsets.Oldest(); pair != nil; pair = pair.Next() {
		n += len(pair.Value)
	}
	return n
}

// Each calls fn for every tree type in code order.
func (r *Registry) Each(fn func(name string, offsets []int64)) {
	for pair := r.offsets.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// MarshalJSON implements json.Marshaler, keeping code order.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return r.offsets.MarshalJSON()
}

// MarshalYAML implements yaml.InterfaceMarshaler, keeping code order.
func (r *Registry) MarshalYAML() (interface{}, error) {
	var ms yaml.MapSlice
	r.Each(func(name string, offsets []int64) {
		ms = append(ms, yaml.MapItem{Key: name, Value: offsets})
	})
	return ms, nil
}
