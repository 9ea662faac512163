// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package mdformat

import (
	"errors"
	"fmt"
	"io"
)

// ErrShapeNotImplemented is returned for node shapes whose on-disk
// layout is not known (VKFV and VKVV).
var ErrShapeNotImplemented = fmt.Errorf("node shape not implemented: %w", errors.ErrUnsupported)

// FFHeader is the fixed-format leaf header. Its fields are packed at nibble
// granularity and straddle word boundaries.
type FFHeader struct {
	Used       uint16 `json:"used"`
	Level      uint8  `json:"level"`
	KSize      uint16 `json:"ksize"`
	VSize      uint16 `json:"vsize"`
	Flags      uint8  `json:"flags"`
	NSize      uint16 `json:"nsize"`
	FtMagic    Word   `json:"ftMagic"`
	FtChecksum Word   `json:"ftChecksum"`
	FtOpaque   Word   `json:"ftOpaque"`
}

// IsValidLeaf reports whether the header describes a populated leaf.
func (h *FFHeader) IsValidLeaf() bool {
	return h.Level == 0 && h.Used != 0 && h.FtMagic == MagicFooter
}

// Len returns the header length: nsize when set, otherwise the nominal size.
func (h *FFHeader) Len() int64 {
	if h.NSize == 0 {
		return ffNominalSize
	}
	return int64(h.NSize)
}

// DecodeFFHeader reads the fixed-format header at offset.
func DecodeFFHeader(r io.ReaderAt, offset int64) (*FFHeader, error) {
	buf := make([]byte, ffReadSize)
	if err := ReadFull(r, offset, buf); err != nil {
		return nil, err
	}
	return decodeFF(buf)
}

func decodeFF(buf []byte) (*FFHeader, error) {
	nr := NewNibbleReader(buf)
	if err := nr.Skip(ffUsedNibble); err != nil {
		return nil, err
	}
	fields := []struct {
		nibbles int
		v       uint64
	}{
		{nibbles: ffUsedNibbles},
		{nibbles: ffLevelNibbles},
		{nibbles: ffKSizeNibbles},
		{nibbles: ffVSizeNibbles},
		{nibbles: ffFlagsNibbles},
		{nibbles: ffNSizeNibbles},
		{nibbles: ffFooterNibbles},
		{nibbles: ffFooterNibbles},
		{nibbles: ffFooterNibbles},
	}
	for i := range fields {
		v, err := nr.Read(fields[i].nibbles)
		if err != nil {
			return nil, fmt.Errorf("FF header field %d: %w", i, err)
		}
		fields[i].v = v
	}
	return &FFHeader{
		Used:       uint16(fields[0].v),
		Level:      uint8(fields[1].v),
		KSize:      uint16(fields[2].v),
		VSize:      uint16(fields[3].v),
		Flags:      uint8(fields[4].v),
		NSize:      uint16(fields[5].v),
		FtMagic:    Word(fields[6].v),
		FtChecksum: Word(fields[7].v),
		FtOpaque:   Word(fields[8].v),
	}, nil
}

// EncodeFFHeader is the inverse of DecodeFFHeader.
func EncodeFFHeader(h *FFHeader) []byte {
	buf := make([]byte, ffReadSize)
	nw := NewNibbleWriter(buf)
	nw.Skip(ffUsedNibble)
	nw.Write(ffUsedNibbles, uint64(h.Used))
	nw.Write(ffLevelNibbles, uint64(h.Level))
	nw.Write(ffKSizeNibbles, uint64(h.KSize))
	nw.Write(ffVSizeNibbles, uint64(h.VSize))
	nw.Write(ffFlagsNibbles, uint64(h.Flags))
	nw.Write(ffNSizeNibbles, uint64(h.NSize))
	nw.Write(ffFooterNibbles, uint64(h.FtMagic))
	nw.Write(ffFooterNibbles, uint64(h.FtChecksum))
	nw.Write(ffFooterNibbles, uint64(h.FtOpaque))
	return buf
}

// FKVVHeader is the fixed-key variable-value leaf header.
type FKVVHeader struct {
	Used       uint16 `json:"used"`
	Shift      uint8  `json:"shift"`
	Level      uint8  `json:"level"`
	KSize      uint16 `json:"ksize"`
	NSize      uint32 `json:"nsize"`
	FtMagic    Word   `json:"ftMagic"`
	FtChecksum Word   `json:"ftChecksum"`
	FtOpaque   Word   `json:"ftOpaque"`
}

// IsValidLeaf reports whether the header describes a populated leaf.
func (h *FKVVHeader) IsValidLeaf() bool {
	return h.Level == 0 && h.Used != 0 && h.FtMagic == MagicFooter
}

// Len returns the node length.
func (h *FKVVHeader) Len() int64 {
	if h.NSize == 0 {
		return FKVVHeaderSize
	}
	return int64(h.NSize)
}

// DecodeFKVVHeader reads the fixed-key variable-value header at offset.
func DecodeFKVVHeader(r io.ReaderAt, offset int64) (*FKVVHeader, error) {
	buf := make([]byte, FKVVHeaderSize)
	if err := ReadFull(r, offset, buf); err != nil {
		return nil, err
	}
	return &FKVVHeader{
		Used:       le.Uint16(buf[fkvvUsedOff:]),
		Shift:      buf[fkvvShiftOff],
		Level:      buf[fkvvLevelOff],
		KSize:      le.Uint16(buf[fkvvKSizeOff:]),
		NSize:      le.Uint32(buf[fkvvNSizeOff:]),
		FtMagic:    Word(le.Uint64(buf[fkvvFtMagicOff:])),
		FtChecksum: Word(le.Uint64(buf[fkvvFtCksumOff:])),
		FtOpaque:   Word(le.Uint64(buf[fkvvFtOpaqueOff:])),
	}, nil
}

// EncodeFKVVHeader is the inverse of DecodeFKVVHeader.
func EncodeFKVVHeader(h *FKVVHeader) []byte {
	buf := make([]byte, FKVVHeaderSize)
	le.PutUint16(buf[fkvvUsedOff:], h.Used)
	buf[fkvvShiftOff] = h.Shift
	buf[fkvvLevelOff] = h.Level
	le.PutUint16(buf[fkvvKSizeOff:], h.KSize)
	le.PutUint32(buf[fkvvNSizeOff:], h.NSize)
	le.PutUint64(buf[fkvvFtMagicOff:], uint64(h.FtMagic))
	le.PutUint64(buf[fkvvFtCksumOff:], uint64(h.FtChecksum))
	le.PutUint64(buf[fkvvFtOpaqueOff:], uint64(h.FtOpaque))
	return buf
}

// IsValidFKVVLeaf decodes the FKVV header at offset and returns only the
// validity gate. A header that cannot be read is reported as an error.
func IsValidFKVVLeaf(r io.ReaderAt, offset int64) (bool, error) {
	h, err := DecodeFKVVHeader(r, offset)
	if err != nil {
		return false, err
	}
	return h.IsValidLeaf(), nil
}

// DecodeVKFVHeader always fails: the variable-key fixed-value layout is unknown.
func DecodeVKFVHeader(_ io.ReaderAt, offset int64) error {
	return fmt.Errorf("VKFV header at offset %d: %w", offset, ErrShapeNotImplemented)
}

// DecodeVKVVHeader always fails: the variable-key variable-value layout is unknown.
func DecodeVKVVHeader(_ io.ReaderAt, offset int64) error {
	return fmt.Errorf("VKVV header at offset %d: %w", offset, ErrShapeNotImplemented)
}
