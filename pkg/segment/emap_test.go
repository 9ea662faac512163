// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"

	"github.com/cortx-io/m0meta/pkg/btreetype"
	"github.com/cortx-io/m0meta/pkg/fid"
	"github.com/cortx-io/m0meta/pkg/m0crc"
	"github.com/cortx-io/m0meta/pkg/mdformat"
	"github.com/cortx-io/m0meta/pkg/segment/segmenttest"
)

var (
	checksummed = segmenttest.Extent{
		STOB:     fid.FID{Container: 0x0200000000000005, Key: 0x2a},
		Start:    0,
		End:      0x1000,
		Checksum: []mdformat.Word{0xaaaa, 0xbbbb},
	}
	unchecksummed = segmenttest.Extent{
		STOB:  fid.FID{Container: 0x0207000000000001, Key: 1},
		Start: 0x1000,
		End:   0x2000,
	}
	hole = segmenttest.Extent{
		STOB:     fid.FID{Container: 0x0203000000000003, Key: 3},
		Start:    0x2000,
		End:      0x3000,
		Hole:     true,
		Checksum: []mdformat.Word{0xcccc},
	}
)

func cobOf(e segmenttest.Extent) fid.FID {
	cob, _ := fid.ToCOB(e.STOB)
	return cob
}

func emapSegment(t *testing.T, extents ...segmenttest.Extent) (string, []*mdformat.EmapRecord) {
	t.Helper()
	b := segmenttest.New(0)
	recs := b.EmapNode(0, 16384, extents...)
	return b.WriteFile(t), recs
}

func TestParseEmapKeys(t *testing.T) {
	path, recs := emapSegment(t, checksummed, unchecksummed)
	s, sess := scanBuilderPath(t, path)
	assert.DeepEqual(t, sess.EmapNodes(), []int64{0})

	keys, err := s.ParseEmapKeys(0)
	assert.NilError(t, err)
	assert.Equal(t, len(keys), 2)
	for i, k := range keys {
		assert.Equal(t, k.Index, i+1)
		assert.Equal(t, k.Key.Offset, int64(mdformat.EmapKeyBase+i*mdformat.EmapKeySize))
		assert.Equal(t, k.NodeLen, int64(16384))
		assert.Equal(t, k.RecordOffset(), recs[i].Offset)
	}
	assert.Equal(t, keys[0].STOB, checksummed.STOB)
	assert.Equal(t, keys[1].Key.ExtentEnd, unchecksummed.End)
}

func scanBuilderPath(t *testing.T, path string, opts ...Opt) (*Segment, *Session) {
	t.Helper()
	s := openPath(t, path, opts...)
	sess, err := s.Scan(context.Background())
	assert.NilError(t, err)
	return s, sess
}

func TestParseEmapKeysGate(t *testing.T) {
	testCases := []struct {
		name string
		hdr  mdformat.FKVVHeader
		keys int
	}{
		{"leaf", mdformat.FKVVHeader{Used: 1, NSize: 4096, FtMagic: mdformat.MagicFooter}, 1},
		{"internal", mdformat.FKVVHeader{Used: 1, Level: 2, NSize: 4096, FtMagic: mdformat.MagicFooter}, 0},
		{"empty", mdformat.FKVVHeader{NSize: 4096, FtMagic: mdformat.MagicFooter}, 0},
		{"no footer", mdformat.FKVVHeader{Used: 1, NSize: 4096, FtMagic: 0x1234}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := segmenttest.New(4096)
			b.Header(0, btreetype.TreeEmapMapping, btreetype.ShapeFKVV)
			b.FKVV(0, &tc.hdr)
			s := openPath(t, b.WriteFile(t))
			keys, err := s.ParseEmapKeys(0)
			assert.NilError(t, err)
			assert.Equal(t, len(keys), tc.keys)
		})
	}
}

func TestParseEmapKeysShortSegment(t *testing.T) {
	b := segmenttest.New(0)
	b.Header(0, btreetype.TreeEmapMapping, btreetype.ShapeFKVV)
	b.FKVV(0, &mdformat.FKVVHeader{Used: 3, NSize: 4096, FtMagic: mdformat.MagicFooter})
	// room for one key only
	b.Put(mdformat.EmapKeyOffset(0, 2)-1, []byte{0})
	s := openPath(t, b.WriteFile(t))

	keys, err := s.ParseEmapKeys(0)
	assert.ErrorIs(t, err, mdformat.ErrShortRead)
	assert.Equal(t, len(keys), 1)
}

func TestListAllPerDevice(t *testing.T) {
	path, recs := emapSegment(t, checksummed, unchecksummed, hole)
	s, sess := scanBuilderPath(t, path)

	entries, err := s.ListAllPerDevice(sess)
	assert.NilError(t, err)
	assert.DeepEqual(t, entries, []DeviceEntry{
		{
			Count:        1,
			KeyOffset:    mdformat.EmapKeyOffset(0, 1),
			RecordOffset: recs[0].Offset,
			STOB:         checksummed.STOB,
			COB:          fid.FID{Container: 0x4300000000000005, Key: 0x2a},
			DeviceID:     0,
			Start:        0,
			End:          0x1000,
			CSNob:        16,
			ChecksumOK:   true,
		},
		{
			Count:        2,
			KeyOffset:    mdformat.EmapKeyOffset(0, 2),
			RecordOffset: recs[1].Offset,
			STOB:         unchecksummed.STOB,
			COB:          fid.FID{Container: 0x4307000000000001, Key: 1},
			DeviceID:     0x07 << 16,
			Start:        0x1000,
			End:          0x2000,
			ChecksumOK:   true,
		},
	})
}

func TestListAllPerDeviceChecksumMismatch(t *testing.T) {
	bad := checksummed
	bad.BadChecksum = true
	ignored := unchecksummed
	ignored.BadChecksum = true
	path, _ := emapSegment(t, bad, ignored)
	log, hook := newLogger()
	s, sess := scanBuilderPath(t, path, WithLogger(log))

	entries, err := s.ListAllPerDevice(sess)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 2)
	assert.Assert(t, !entries[0].ChecksumOK)
	assert.Assert(t, entries[1].ChecksumOK)

	last := hook.LastEntry()
	assert.Equal(t, last.Level, logrus.WarnLevel)
	assert.Equal(t, last.Message, "EMAP record checksum mismatch")
}

func TestListAllPerDeviceSkipsUnreadableRecord(t *testing.T) {
	b := segmenttest.New(0)
	recs := b.EmapNode(0, 16384, checksummed, unchecksummed)
	// the first record ends the segment; without its footer it is truncated
	b.PutWord(recs[0].FooterOffset(), 0)
	log, hook := newLogger()
	s, sess := scanBuilderPath(t, b.WriteFile(t), WithLogger(log))

	entries, err := s.ListAllPerDevice(sess)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].STOB, unchecksummed.STOB)
	assert.Equal(t, entries[0].Count, 1)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Failed to read EMAP record" {
			warned = true
			assert.ErrorIs(t, e.Data[logrus.ErrorKey].(error), ErrTruncatedRecord)
		}
	}
	assert.Assert(t, warned)
}

func TestListAllEmapPerDevice(t *testing.T) {
	path, _ := emapSegment(t, checksummed, hole)
	entries, err := ListAllEmapPerDevice(context.Background(), path)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 1)
	assert.Equal(t, entries[0].COB, cobOf(checksummed))
}

func TestCorruptEmap(t *testing.T) {
	path, recs := emapSegment(t, checksummed, unchecksummed)
	before, err := os.ReadFile(path)
	assert.NilError(t, err)

	n, err := CorruptEmap(context.Background(), path, cobOf(checksummed))
	assert.NilError(t, err)
	assert.Equal(t, n, 1)

	after, err := os.ReadFile(path)
	assert.NilError(t, err)
	r := recs[0].Offset
	assert.DeepEqual(t, after[r+60:r+68], []byte{0x33, 0x33, 0x44, 0x44, 0x22, 0x22, 0x11, 0x11})

	s := openPath(t, path)
	rec, err := s.ReadEmapRecord(r)
	assert.NilError(t, err)
	assert.Equal(t, rec.End, CorruptPattern)
	assert.Equal(t, rec.ChecksumOffset(), r+84+8*2)
	assert.Equal(t, rec.FtChecksum, mdformat.Word(m0crc.SumWords(rec.Words())))
	assert.Assert(t, rec.FtChecksum != recs[0].FtChecksum)

	// only er_end and the footer checksum changed
	for i := range before {
		off := int64(i)
		if (off >= r+60 && off < r+68) || (off >= rec.ChecksumOffset() && off < rec.ChecksumOffset()+8) {
			continue
		}
		if before[i] != after[i] {
			t.Fatalf("byte at offset %d changed", off)
		}
	}

	sess, err := s.Scan(context.Background())
	assert.NilError(t, err)
	entries, err := s.ListAllPerDevice(sess)
	assert.NilError(t, err)
	assert.Assert(t, entries[0].ChecksumOK)
	assert.Equal(t, entries[0].End, CorruptPattern)
}

func TestCorruptEmapNothingToDo(t *testing.T) {
	testCases := []struct {
		name   string
		target fid.FID
		err    error
	}{
		{"no checksum", cobOf(unchecksummed), nil},
		{"hole", cobOf(hole), nil},
		{"unknown", fid.FID{Container: 0x4300000000000099, Key: 1}, ErrTargetNotFound},
		{"stob id", checksummed.STOB, ErrTargetNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path, _ := emapSegment(t, checksummed, unchecksummed, hole)
			before, err := os.ReadFile(path)
			assert.NilError(t, err)

			n, err := CorruptEmap(context.Background(), path, tc.target)
			assert.Equal(t, n, 0)
			if tc.err == nil {
				assert.NilError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.err)
			}

			after, err := os.ReadFile(path)
			assert.NilError(t, err)
			assert.Assert(t, bytes.Equal(before, after))
		})
	}
}

func TestCorruptEmapFirstExtentDecides(t *testing.T) {
	first := unchecksummed
	first.STOB = checksummed.STOB
	second := checksummed
	second.Start, second.End = 0x1000, 0x2000
	path, _ := emapSegment(t, first, second)
	before, err := os.ReadFile(path)
	assert.NilError(t, err)

	n, err := CorruptEmap(context.Background(), path, cobOf(checksummed))
	assert.NilError(t, err)
	assert.Equal(t, n, 0)

	after, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Assert(t, bytes.Equal(before, after))
}

func TestCorruptEmapSkipsHoles(t *testing.T) {
	first := hole
	first.STOB = checksummed.STOB
	second := checksummed
	second.Start, second.End = 0x3000, 0x4000
	path, recs := emapSegment(t, first, second)

	n, err := CorruptEmap(context.Background(), path, cobOf(checksummed))
	assert.NilError(t, err)
	assert.Equal(t, n, 1)

	s := openPath(t, path)
	rec, err := s.ReadEmapRecord(recs[1].Offset)
	assert.NilError(t, err)
	assert.Equal(t, rec.End, CorruptPattern)
	assert.Equal(t, rec.FtChecksum, rec.ComputeChecksum())
}

func TestCorruptEmapReadOnly(t *testing.T) {
	path, _ := emapSegment(t, checksummed)
	s, sess := scanBuilderPath(t, path)
	_, err := s.CorruptEmap(sess, cobOf(checksummed))
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestReadRecord(t *testing.T) {
	b := segmenttest.New(0)
	b.PutWord(0, mdformat.MagicHeader)
	b.PutWord(8, 7)
	b.PutWord(16, mdformat.MagicFooter)
	b.PutWord(24, 0xc0ffee)
	s := openPath(t, b.WriteFile(t))

	words, footer, err := s.ReadRecord(0)
	assert.NilError(t, err)
	assert.DeepEqual(t, words, []mdformat.Word{mdformat.MagicHeader, 7})
	assert.Equal(t, footer, int64(16))

	words, footer, err = s.ReadRecordWithCRC(8)
	assert.NilError(t, err)
	assert.DeepEqual(t, words, []mdformat.Word{7, mdformat.MagicFooter, 0xc0ffee})
	assert.Equal(t, footer, int64(16))
}

func TestReadRecordTruncated(t *testing.T) {
	b := segmenttest.New(0)
	b.PutWord(0, mdformat.MagicHeader)
	b.PutWord(8, 7)
	s := openPath(t, b.WriteFile(t))
	_, _, err := s.ReadRecord(0)
	assert.ErrorIs(t, err, ErrTruncatedRecord)

	b.PutWord(16, mdformat.MagicFooter)
	s = openPath(t, b.WriteFile(t))
	_, _, err = s.ReadRecord(0)
	assert.NilError(t, err)
	_, _, err = s.ReadRecordWithCRC(0)
	assert.ErrorIs(t, err, ErrTruncatedRecord)
}
