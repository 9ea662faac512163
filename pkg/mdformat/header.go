// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package mdformat

import (
	"io"
)

// SegmentHeader is the format header plus the B-tree node header that
// precedes every node in a segment.
type SegmentHeader struct {
	Offset   int64   `json:"offset"`
	Magic    Word    `json:"hdMagic"`
	Bits     Word    `json:"hdBits"`
	TreeType uint8   `json:"treeType"`
	NodeType uint32  `json:"nodeType"`
	CRCType  uint8   `json:"crcType"`
	Gen      Word    `json:"gen"`
	FID      [2]Word `json:"fid"`
	Opaque   Word    `json:"opaque"`
}

// RecordType returns the format record type carried in hd_bits.
func (h *SegmentHeader) RecordType() uint8 {
	return uint8(h.Bits >> recordTypeShift)
}

// HasMagic reports whether the header starts with MagicHeader.
func (h *SegmentHeader) HasMagic() bool {
	return h.Magic == MagicHeader
}

// DecodeSegmentHeader reads the segment header at offset.
// Only the read itself can fail; field values are not validated.
func DecodeSegmentHeader(r io.ReaderAt, offset int64) (*SegmentHeader, error) {
	buf := make([]byte, SegmentHeaderSize)
	if err := ReadFull(r, offset, buf); err != nil {
		return nil, err
	}
	hType := le.Uint64(buf[hTypeOff:])
	return &SegmentHeader{
		Offset:   offset,
		Magic:    Word(le.Uint64(buf[hdMagicOff:])),
		Bits:     Word(le.Uint64(buf[hdBitsOff:])),
		TreeType: uint8(hType),
		NodeType: uint32(hType>>8) & 0xffffff,
		CRCType:  uint8(hType >> 32),
		Gen:      Word(le.Uint64(buf[hGenOff:])),
		FID: [2]Word{
			Word(le.Uint64(buf[hFIDOff:])),
			Word(le.Uint64(buf[hFIDOff+WordSize:])),
		},
		Opaque: Word(le.Uint64(buf[hOpaqueOff:])),
	}, nil
}

// EncodeSegmentHeader is the inverse of DecodeSegmentHeader.
func EncodeSegmentHeader(h *SegmentHeader) []byte {
	buf := make([]byte, SegmentHeaderSize)
	le.PutUint64(buf[hdMagicOff:], uint64(h.Magic))
	le.PutUint64(buf[hdBitsOff:], uint64(h.Bits))
	hType := uint64(h.TreeType) | uint64(h.NodeType&0xffffff)<<8 | uint64(h.CRCType)<<32
	le.PutUint64(buf[hTypeOff:], hType)
	le.PutUint64(buf[hGenOff:], uint64(h.Gen))
	le.PutUint64(buf[hFIDOff:], uint64(h.FID[0]))
	le.PutUint64(buf[hFIDOff+WordSize:], uint64(h.FID[1]))
	le.PutUint64(buf[hOpaqueOff:], uint64(h.Opaque))
	return buf
}

// DecodeFooter reads the word at offset and reports whether it is MagicFooter.
func DecodeFooter(r io.ReaderAt, offset int64) (bool, Word, error) {
	w, err := ReadWord(r, offset)
	if err != nil {
		return false, 0, err
	}
	return w == MagicFooter, w, nil
}
