// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package mdformat

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"
)

func TestEmapKeyRoundTrip(t *testing.T) {
	k := &EmapKey{
		Offset:      EmapKeyOffset(4096, 3),
		Magic:       MagicHeader,
		Bits:        0x0005000000000000,
		Prefix:      [2]Word{0x0200000000000005, 0x2a},
		ExtentEnd:   0x2000,
		FtMagic:     MagicFooter,
		FtChecksum:  0x1234,
		ValueOffset: 200,
	}
	assert.Equal(t, k.Offset, int64(4096+104+120))

	img := make([]byte, k.Offset)
	img = append(img, EncodeEmapKey(k)...)
	got, err := DecodeEmapKey(bytes.NewReader(img), k.Offset)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, k)
}

func TestEmapRecordOffsets(t *testing.T) {
	rec := &EmapRecord{
		Offset:   1000,
		Magic:    MagicHeader,
		CSNob:    24,
		Checksum: []Word{1, 2, 3},
		FtMagic:  MagicFooter,
	}
	rec.FtChecksum = rec.ComputeChecksum()
	assert.Equal(t, rec.EndOffset(), int64(1060))
	assert.Equal(t, rec.FooterOffset(), int64(1000+76+24))
	assert.Equal(t, rec.ChecksumOffset(), int64(1000+84+24))
	assert.Equal(t, len(rec.Words()), 12)

	b := EncodeEmapRecord(rec)
	assert.Equal(t, len(b), EmapRecordSize(3))
	assert.Equal(t, le.Uint32(b), uint32(len(b)-RecordPrefixSize))
	assert.Equal(t, Word(le.Uint64(b[rec.EndOffset()-rec.Offset:])), rec.End)
	assert.Equal(t, Word(le.Uint64(b[rec.FooterOffset()-rec.Offset:])), MagicFooter)
	assert.Equal(t, Word(le.Uint64(b[rec.ChecksumOffset()-rec.Offset:])), rec.FtChecksum)

	words, err := ReadWords(bytes.NewReader(b), RecordPrefixSize, (len(b)-RecordPrefixSize)/WordSize)
	assert.NilError(t, err)
	got, err := DecodeEmapRecord(rec.Offset, words)
	assert.NilError(t, err)
	assert.DeepEqual(t, got, rec)
}

func TestDecodeEmapRecordMalformed(t *testing.T) {
	_, err := DecodeEmapRecord(0, []Word{MagicHeader, MagicFooter, 0})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	words := make([]Word, 11)
	words[5] = 16 // two payload words that are not there
	words[9] = MagicFooter
	_, err = DecodeEmapRecord(0, words)
	assert.ErrorIs(t, err, ErrMalformedRecord)

	words[5] = 0
	rec, err := DecodeEmapRecord(0, words)
	assert.NilError(t, err)
	assert.Assert(t, !rec.IsHole())
	assert.Equal(t, len(rec.Checksum), 0)
}
