// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/cortx-io/m0meta/pkg/btreetype"
	"github.com/cortx-io/m0meta/pkg/mdformat"
)

// ctxCheckInterval is the number of probes between context checks.
const ctxCheckInterval = 4096

// Scan walks the segment from offset 0 in aligned word steps. At each
// header magic it records the header in the returned Session and jumps
// ahead by the stride of its tree type. The scan stops at end of file or
// once the cursor passes the scan bound.
//
// Errors in individual headers are logged and skipped. Only context
// cancellation and I/O errors other than end of file are returned, together
// with the partial Session.
func (s *Segment) Scan(ctx context.Context) (*Session, error) {
	sess := NewSession(s.path, s.size)
	var cursor int64
	for cursor <= s.limits.ScanBound {
		if sess.Probes%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				sess.End = cursor
				return sess, err
			}
		}
		w, err := mdformat.ReadWord(s, cursor)
		if err != nil {
			if errors.Is(err, mdformat.ErrShortRead) {
				break
			}
			sess.End = cursor
			return sess, err
		}
		sess.Probes++

		next := cursor + mdformat.WordSize
		if w == mdformat.MagicHeader {
			h, err := mdformat.DecodeSegmentHeader(s, cursor)
			if err != nil {
				if !errors.Is(err, mdformat.ErrShortRead) {
					sess.End = cursor
					return sess, err
				}
				s.log.WithError(err).WithField("offset", cursor).Debug("Header magic too close to end of segment")
			} else {
				next = cursor + s.visitHeader(sess, h)
			}
		}
		if s.progress != nil {
			s.progress.Update(min(next, s.size) - cursor)
		}
		cursor = next
	}
	sess.End = cursor
	s.log.WithFields(logrus.Fields{
		"headers":      sess.Headers,
		"unrecognized": sess.Unrecognized,
		"leaves":       len(sess.Nodes),
		"probes":       sess.Probes,
	}).Debug("Scan finished")
	return sess, nil
}

// visitHeader records h and returns the distance to the next probe.
func (s *Segment) visitHeader(sess *Session, h *mdformat.SegmentHeader) int64 {
	tree := btreetype.TreeType(h.TreeType)
	fields := logrus.Fields{
		"offset":   h.Offset,
		"treeType": tree,
	}
	if name, ok := btreetype.RecordTypeName(h.RecordType()); ok {
		fields["recordType"] = name
	}
	if !tree.Known() {
		sess.Unrecognized++
		s.log.WithFields(fields).Debug("Skipping header with unrecognized tree type")
		return s.limits.DefaultStride
	}
	sess.Trees.Add(tree, h.Offset)
	sess.Headers++
	s.log.WithFields(fields).Trace("Found segment header")

	if node, ok := s.decodeNode(h, tree, fields); ok {
		sess.Nodes = append(sess.Nodes, node)
	}
	return s.limits.Stride(tree)
}

// decodeNode reads the node header that follows h. It returns false for
// anything but a populated leaf.
func (s *Segment) decodeNode(h *mdformat.SegmentHeader, tree btreetype.TreeType, fields logrus.Fields) (Node, bool) {
	node := Node{Offset: h.Offset, Tree: tree}
	off := h.Offset + mdformat.NodeHeaderOff
	shape, ok := btreetype.NodeShapeOf(h.NodeType)
	if !ok {
		s.log.WithFields(fields).WithField("nodeType", h.NodeType).Debug("Unknown node type")
		return node, false
	}
	node.Shape = shape
	var err error
	switch shape {
	case btreetype.ShapeFF:
		var hdr *mdformat.FFHeader
		if hdr, err = mdformat.DecodeFFHeader(s, off); err == nil && hdr.IsValidLeaf() {
			node.Used, node.Len = hdr.Used, hdr.Len()
			return node, true
		}
	case btreetype.ShapeFKVV:
		var hdr *mdformat.FKVVHeader
		if hdr, err = mdformat.DecodeFKVVHeader(s, off); err == nil && hdr.IsValidLeaf() {
			node.Used, node.Len = hdr.Used, hdr.Len()
			return node, true
		}
	case btreetype.ShapeVKFV:
		err = mdformat.DecodeVKFVHeader(s, off)
	case btreetype.ShapeVKVV:
		err = mdformat.DecodeVKVVHeader(s, off)
	}
	if err != nil {
		s.log.WithFields(fields).WithError(err).Warn("Failed to decode node header")
	}
	return node, false
}

// Scan opens path, scans it and closes it.
func Scan(ctx context.Context, path string, opts ...Opt) (*Session, error) {
	s, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Scan(ctx)
}
