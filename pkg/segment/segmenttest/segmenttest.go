// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package segmenttest builds synthetic metadata segments for tests.
package segmenttest

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/cortx-io/m0meta/pkg/btreetype"
	"github.com/cortx-io/m0meta/pkg/fid"
	"github.com/cortx-io/m0meta/pkg/m0crc"
	"github.com/cortx-io/m0meta/pkg/mdformat"
)

// Record type codes written into hd_bits.
const (
	recordTypeBNode   = 0x04
	recordTypeEmapKey = 0x05
	recordTypeEmapRec = 0x06
)

func bits(recordType uint8) mdformat.Word {
	return mdformat.Word(recordType) << 48
}

// Builder is a zero-filled segment image that grows as it is written.
type Builder struct {
	buf []byte
}

// New returns a builder of size bytes.
func New(size int) *Builder {
	return &Builder{buf: make([]byte, size)}
}

// Put copies p to off.
func (b *Builder) Put(off int64, p []byte) *Builder {
	if end := int(off) + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	copy(b.buf[off:], p)
	return b
}

// PutWord writes w at off.
func (b *Builder) PutWord(off int64, w mdformat.Word) *Builder {
	return b.Put(off, w.Bytes())
}

// Bytes returns the image.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// WriteFile writes the image to a file under t.TempDir and returns its path.
func (b *Builder) WriteFile(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.bin")
	assert.NilError(t, os.WriteFile(path, b.buf, 0o644))
	return path
}

// Header writes a segment header at off.
func (b *Builder) Header(off int64, tree btreetype.TreeType, shape btreetype.NodeShape) *mdformat.SegmentHeader {
	h := &mdformat.SegmentHeader{
		Offset:   off,
		Magic:    mdformat.MagicHeader,
		Bits:     bits(recordTypeBNode),
		TreeType: uint8(tree),
		NodeType: uint32(shape),
		Gen:      1,
		FID:      [2]mdformat.Word{0x6200000000000001, mdformat.Word(off)},
	}
	b.Put(off, mdformat.EncodeSegmentHeader(h))
	return h
}

// FKVV writes the node header of the node whose segment header is at node.
func (b *Builder) FKVV(node int64, h *mdformat.FKVVHeader) *Builder {
	return b.Put(node+mdformat.NodeHeaderOff, mdformat.EncodeFKVVHeader(h))
}

// FF writes the node header of the node whose segment header is at node.
func (b *Builder) FF(node int64, h *mdformat.FFHeader) *Builder {
	return b.Put(node+mdformat.NodeHeaderOff, mdformat.EncodeFFHeader(h))
}

// Extent describes one EMAP key and its record.
type Extent struct {
	STOB     fid.FID
	Start    mdformat.Word
	End      mdformat.Word
	Hole     bool
	Checksum []mdformat.Word
	// BadChecksum stores a footer checksum that does not match the record.
	BadChecksum bool
}

// EmapNode writes a populated EMAP leaf of nsize bytes at node with one key
// per extent. Records are packed backwards from the end of the node. It
// returns the records as written.
func (b *Builder) EmapNode(node int64, nsize uint32, extents ...Extent) []*mdformat.EmapRecord {
	b.Header(node, btreetype.TreeEmapMapping, btreetype.ShapeFKVV)
	b.FKVV(node, &mdformat.FKVVHeader{
		Used:    uint16(len(extents)),
		KSize:   mdformat.EmapKeySize,
		NSize:   nsize,
		FtMagic: mdformat.MagicFooter,
	})

	var recs []*mdformat.EmapRecord
	var valueOff uint32
	for i, e := range extents {
		valueOff += uint32(mdformat.EmapRecordSize(len(e.Checksum)))
		rec := NewEmapRecord(node+int64(nsize)-int64(valueOff), e, i)
		b.Put(rec.Offset, mdformat.EncodeEmapRecord(rec))
		recs = append(recs, rec)

		k := &mdformat.EmapKey{
			Offset:      mdformat.EmapKeyOffset(node, i+1),
			Magic:       mdformat.MagicHeader,
			Bits:        bits(recordTypeEmapKey),
			Prefix:      [2]mdformat.Word{mdformat.Word(e.STOB.Container), mdformat.Word(e.STOB.Key)},
			ExtentEnd:   e.End,
			FtMagic:     mdformat.MagicFooter,
			ValueOffset: valueOff,
		}
		k.FtChecksum = mdformat.Word(m0crc.SumWords([]mdformat.Word{k.Magic, k.Bits, k.Prefix[0], k.Prefix[1], k.ExtentEnd}))
		b.Put(k.Offset, mdformat.EncodeEmapKey(k))
	}
	return recs
}

// NewEmapRecord returns the record for e at offset. i varies the value word.
func NewEmapRecord(offset int64, e Extent, i int) *mdformat.EmapRecord {
	rec := &mdformat.EmapRecord{
		Offset:   offset,
		Magic:    mdformat.MagicHeader,
		Bits:     bits(recordTypeEmapRec),
		Value:    mdformat.Word(0x100000 * (i + 1)),
		UnitSize: 4096,
		CSNob:    mdformat.Word(len(e.Checksum) * mdformat.WordSize),
		Start:    e.Start,
		End:      e.End,
		Checksum: e.Checksum,
		FtMagic:  mdformat.MagicFooter,
	}
	if e.Hole {
		rec.Value = mdformat.Hole
	}
	if len(e.Checksum) > 0 {
		rec.CSType = 1
	}
	rec.FtChecksum = rec.ComputeChecksum()
	if e.BadChecksum {
		rec.FtChecksum ^= 1
	}
	return rec
}
