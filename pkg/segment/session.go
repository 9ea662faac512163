// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"github.com/cortx-io/m0meta/pkg/btreetype"
)

// Node is a populated leaf found during a scan.
type Node struct {
	Offset int64               `json:"offset"` // segment header offset
	Tree   btreetype.TreeType  `json:"tree"`
	Shape  btreetype.NodeShape `json:"shape"`
	Used   uint16              `json:"used"`
	Len    int64               `json:"len"`
}

// Session is the result of one scan. Every scan starts from a fresh
// Session, so scans of different segments are independent.
type Session struct {
	Path  string              `json:"path"`
	Size  int64               `json:"size"`
	Trees *btreetype.Registry `json:"trees"`
	Nodes []Node              `json:"nodes"`
	// Headers counts segment headers with a known tree type.
	Headers int `json:"headers"`
	// Unrecognized counts segment headers with an unknown tree type.
	Unrecognized int   `json:"unrecognized"`
	Probes       int64 `json:"probes"`
	End          int64 `json:"end"`
}

// NewSession returns an empty session for the segment at path.
func NewSession(path string, size int64) *Session {
	return &Session{
		Path:  path,
		Size:  size,
		Trees: btreetype.NewRegistry(),
		Nodes: []Node{},
	}
}

// EmapNodes returns the offsets of EMAP mapping nodes.
func (s *Session) EmapNodes() []int64 {
	return s.Trees.Offsets(btreetype.TreeEmapMapping)
}
