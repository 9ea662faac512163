// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package mdformat

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var le = binary.LittleEndian

// ErrShortRead is returned when fewer bytes than requested remain in the segment.
var ErrShortRead = errors.New("short read")

// Word is one 8-byte little-endian field.
type Word uint64

// String returns the fixed-width big-endian hex form, without a 0x prefix.
func (w Word) String() string {
	return fmt.Sprintf("%016x", uint64(w))
}

// MarshalText implements encoding.TextMarshaler.
func (w Word) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Word) UnmarshalText(b []byte) error {
	v, err := ParseWord(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// ParseWord parses the big-endian hex form produced by Word.String.
func ParseWord(s string) (Word, error) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid word %q: %w", s, err)
	}
	return Word(v), nil
}

// Bytes returns the on-disk (little-endian) encoding of w.
func (w Word) Bytes() []byte {
	b := make([]byte, WordSize)
	le.PutUint64(b, uint64(w))
	return b
}

// ReadFull reads exactly len(buf) bytes at off.
// A read that hits the end of the segment returns an error wrapping ErrShortRead.
func ReadFull(r io.ReaderAt, off int64, buf []byte) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: got %d of %d bytes at offset %d", ErrShortRead, n, len(buf), off)
	}
	return fmt.Errorf("read %d bytes at offset %d: %w", len(buf), off, err)
}

// ReadBEHex reads length bytes at offset, reverses their order, and
// hex-encodes them.
func ReadBEHex(r io.ReaderAt, offset int64, length int) (string, error) {
	buf := make([]byte, length)
	if err := ReadFull(r, offset, buf); err != nil {
		return "", err
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return hex.EncodeToString(buf), nil
}

// ReadWord reads one word at off.
func ReadWord(r io.ReaderAt, off int64) (Word, error) {
	var buf [WordSize]byte
	if err := ReadFull(r, off, buf[:]); err != nil {
		return 0, err
	}
	return Word(le.Uint64(buf[:])), nil
}

// ReadWords reads n consecutive words starting at off.
func ReadWords(r io.ReaderAt, off int64, n int) ([]Word, error) {
	buf := make([]byte, n*WordSize)
	if err := ReadFull(r, off, buf); err != nil {
		return nil, err
	}
	words := make([]Word, n)
	for i := range words {
		words[i] = Word(le.Uint64(buf[i*WordSize:]))
	}
	return words, nil
}

// WriteWord overwrites the word at off.
func WriteWord(w io.WriterAt, off int64, v Word) error {
	if _, err := w.WriteAt(v.Bytes(), off); err != nil {
		return fmt.Errorf("write word at offset %d: %w", off, err)
	}
	return nil
}
