// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package mdformat decodes the fixed-width structures of a motr metadata
// segment. All fields are little-endian on disk; their textual form is the
// zero-padded big-endian hex of the bytes read.
package mdformat

// Magic numbers.
const (
	MagicHeader Word = 0x33011ca5e511de77
	MagicFooter Word = 0x33f007e7f007e777

	// Hole marks an unallocated extent value.
	Hole Word = 0xffffffffffffffff
)

// WordSize is the width of every aligned read.
const WordSize = 8

// Segment header (m0_format_header + node_header) field offsets.
const (
	hdMagicOff        = 0
	hdBitsOff         = 8
	hTypeOff          = 16 // tree type (byte 0), node type (bytes 1..3), crc type (byte 4)
	hGenOff           = 24
	hFIDOff           = 32 // container, key
	hOpaqueOff        = 48
	SegmentHeaderSize = 56

	// NodeHeaderOff is the distance from a segment header to its node header.
	NodeHeaderOff = 64
)

// Record type lives in bits 48..55 of hd_bits.
const recordTypeShift = 48

// FF header: five words plus a three byte tail, consumed as a nibble stream.
const (
	ffReadSize      = 5*WordSize + 3
	ffNominalSize   = 35
	ffUsedNibble    = 16
	ffUsedNibbles   = 4
	ffLevelNibbles  = 2
	ffKSizeNibbles  = 4
	ffVSizeNibbles  = 4
	ffFlagsNibbles  = 1
	ffNSizeNibbles  = 4
	ffFooterNibbles = 16
)

// FKVV header field offsets.
const (
	fkvvUsedOff     = 0  // uint16
	fkvvShiftOff    = 2  // uint8
	fkvvLevelOff    = 3  // uint8
	fkvvKSizeOff    = 4  // uint16
	fkvvNSizeOff    = 8  // uint32
	fkvvFtMagicOff  = 16 // uint64
	fkvvFtCksumOff  = 24 // uint64
	fkvvFtOpaqueOff = 32 // uint64
	FKVVHeaderSize  = 40
)
