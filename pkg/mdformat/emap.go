// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package mdformat

import (
	"errors"
	"fmt"
	"io"

	"github.com/cortx-io/m0meta/pkg/m0crc"
)

// ErrMalformedRecord is returned for an EMAP record whose footer position
// does not agree with its checksum length.
var ErrMalformedRecord = errors.New("malformed EMAP record")

// EMAP key layout. Keys are packed from EmapKeyBase past the segment header.
const (
	EmapKeyBase = 104
	EmapKeySize = 60

	ekMagicOff    = 0
	ekBitsOff     = 8
	ekPrefixOff   = 16 // STOB container, key
	ekOffsetOff   = 32
	ekFtMagicOff  = 40
	ekFtCksumOff  = 48
	ekValueOffOff = 56 // uint32
)

// EMAP record layout. A record is a 4-byte length followed by words.
const (
	RecordPrefixSize = 4

	erEndWord    = 7
	erFixedWords = 9 // w0..w8, before the checksum payload
)

// EmapKeyOffset returns the offset of the i-th key (1-based) of the node at node.
func EmapKeyOffset(node int64, i int) int64 {
	return node + EmapKeyBase + int64(i-1)*EmapKeySize
}

// EmapKey is one fixed-size key of an EMAP leaf.
type EmapKey struct {
	Offset      int64   `json:"offset"`
	Magic       Word    `json:"magic"`
	Bits        Word    `json:"bits"`
	Prefix      [2]Word `json:"prefix"`
	ExtentEnd   Word    `json:"extentEnd"`
	FtMagic     Word    `json:"ftMagic"`
	FtChecksum  Word    `json:"ftChecksum"`
	ValueOffset uint32  `json:"valueOffset"`
}

// DecodeEmapKey reads the key at offset.
func DecodeEmapKey(r io.ReaderAt, offset int64) (*EmapKey, error) {
	buf := make([]byte, EmapKeySize)
	if err := ReadFull(r, offset, buf); err != nil {
		return nil, err
	}
	return &EmapKey{
		Offset: offset,
		Magic:  Word(le.Uint64(buf[ekMagicOff:])),
		Bits:   Word(le.Uint64(buf[ekBitsOff:])),
		Prefix: [2]Word{
			Word(le.Uint64(buf[ekPrefixOff:])),
			Word(le.Uint64(buf[ekPrefixOff+WordSize:])),
		},
		ExtentEnd:   Word(le.Uint64(buf[ekOffsetOff:])),
		FtMagic:     Word(le.Uint64(buf[ekFtMagicOff:])),
		FtChecksum:  Word(le.Uint64(buf[ekFtCksumOff:])),
		ValueOffset: le.Uint32(buf[ekValueOffOff:]),
	}, nil
}

// EncodeEmapKey is the inverse of DecodeEmapKey.
func EncodeEmapKey(k *EmapKey) []byte {
	buf := make([]byte, EmapKeySize)
	le.PutUint64(buf[ekMagicOff:], uint64(k.Magic))
	le.PutUint64(buf[ekBitsOff:], uint64(k.Bits))
	le.PutUint64(buf[ekPrefixOff:], uint64(k.Prefix[0]))
	le.PutUint64(buf[ekPrefixOff+WordSize:], uint64(k.Prefix[1]))
	le.PutUint64(buf[ekOffsetOff:], uint64(k.ExtentEnd))
	le.PutUint64(buf[ekFtMagicOff:], uint64(k.FtMagic))
	le.PutUint64(buf[ekFtCksumOff:], uint64(k.FtChecksum))
	le.PutUint32(buf[ekValueOffOff:], k.ValueOffset)
	return buf
}

// EmapRecord is the value of one EMAP key.
type EmapRecord struct {
	Offset     int64  `json:"offset"`
	Magic      Word   `json:"magic"`
	Bits       Word   `json:"bits"`
	Value      Word   `json:"value"`
	UnitSize   Word   `json:"unitSize"`
	CSType     Word   `json:"csType"`
	CSNob      Word   `json:"csNob"`
	Start      Word   `json:"start"`
	End        Word   `json:"end"`
	Reserved   Word   `json:"reserved"`
	Checksum   []Word `json:"checksum"`
	FtMagic    Word   `json:"ftMagic"`
	FtChecksum Word   `json:"ftChecksum"`
}

// IsHole reports whether the extent is unallocated.
func (r *EmapRecord) IsHole() bool {
	return r.Value == Hole
}

// Words returns the checksummed span: the fixed words and the payload.
func (r *EmapRecord) Words() []Word {
	words := []Word{r.Magic, r.Bits, r.Value, r.UnitSize, r.CSType, r.CSNob, r.Start, r.End, r.Reserved}
	return append(words, r.Checksum...)
}

// ComputeChecksum returns the checksum the footer should carry.
func (r *EmapRecord) ComputeChecksum() Word {
	return Word(m0crc.SumWords(r.Words()))
}

func (r *EmapRecord) wordOffset(i int) int64 {
	return r.Offset + RecordPrefixSize + int64(i)*WordSize
}

// EndOffset is the position of the er_end word.
func (r *EmapRecord) EndOffset() int64 {
	return r.wordOffset(erEndWord)
}

// FooterOffset is the position of the footer magic.
func (r *EmapRecord) FooterOffset() int64 {
	return r.wordOffset(erFixedWords + len(r.Checksum))
}

// ChecksumOffset is the position of the footer checksum.
func (r *EmapRecord) ChecksumOffset() int64 {
	return r.wordOffset(erFixedWords + len(r.Checksum) + 1)
}

// DecodeEmapRecord builds a record at offset from the words following its
// length prefix. words must end with the footer magic and the footer
// checksum, and the footer must sit where er_cs_nob places it.
func DecodeEmapRecord(offset int64, words []Word) (*EmapRecord, error) {
	if len(words) < erFixedWords+2 {
		return nil, fmt.Errorf("%w at offset %d: %d words", ErrMalformedRecord, offset, len(words))
	}
	n := int(words[5] / WordSize)
	if len(words) != erFixedWords+n+2 {
		return nil, fmt.Errorf("%w at offset %d: er_cs_nob %d does not match %d words",
			ErrMalformedRecord, offset, words[5], len(words))
	}
	return &EmapRecord{
		Offset:     offset,
		Magic:      words[0],
		Bits:       words[1],
		Value:      words[2],
		UnitSize:   words[3],
		CSType:     words[4],
		CSNob:      words[5],
		Start:      words[6],
		End:        words[7],
		Reserved:   words[8],
		Checksum:   append([]Word{}, words[erFixedWords:erFixedWords+n]...),
		FtMagic:    words[erFixedWords+n],
		FtChecksum: words[erFixedWords+n+1],
	}, nil
}

// EncodeEmapRecord returns the on-disk form, length prefix included.
func EncodeEmapRecord(r *EmapRecord) []byte {
	words := append(r.Words(), r.FtMagic, r.FtChecksum)
	buf := make([]byte, RecordPrefixSize+len(words)*WordSize)
	le.PutUint32(buf, uint32(len(words)*WordSize))
	for i, w := range words {
		le.PutUint64(buf[RecordPrefixSize+i*WordSize:], uint64(w))
	}
	return buf
}

// EmapRecordSize returns the encoded size of a record with n payload words.
func EmapRecordSize(n int) int {
	return RecordPrefixSize + (erFixedWords+n+2)*WordSize
}
