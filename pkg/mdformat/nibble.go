// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package mdformat

import "fmt"

// NibbleReader reads fields that are not byte aligned.
//
// The buffer is treated as a little-endian stream of 4-bit units: nibble i
// is the low half of byte i/2 for even i and the high half for odd i.
// A field of n nibbles takes its least significant nibble first.
type NibbleReader struct {
	buf []byte
	pos int
}

// NewNibbleReader returns a reader positioned at nibble 0 of buf.
func NewNibbleReader(buf []byte) *NibbleReader {
	return &NibbleReader{buf: buf}
}

// Pos returns the index of the next nibble.
func (r *NibbleReader) Pos() int {
	return r.pos
}

// Len returns the number of unread nibbles.
func (r *NibbleReader) Len() int {
	return len(r.buf)*2 - r.pos
}

// Skip advances by n nibbles.
func (r *NibbleReader) Skip(n int) error {
	if n < 0 || n > r.Len() {
		return fmt.Errorf("skip %d nibbles at nibble %d: %w", n, r.pos, ErrShortRead)
	}
	r.pos += n
	return nil
}

// Read returns the next n nibbles (at most 16) as an integer.
func (r *NibbleReader) Read(n int) (uint64, error) {
	if n < 0 || n > 16 {
		return 0, fmt.Errorf("cannot read %d nibbles into 64 bits", n)
	}
	if n > r.Len() {
		return 0, fmt.Errorf("read %d nibbles at nibble %d: %w", n, r.pos, ErrShortRead)
	}
	var v uint64
	for i := range n {
		v |= uint64(r.nibble(r.pos+i)) << (4 * i)
	}
	r.pos += n
	return v, nil
}

func (r *NibbleReader) nibble(i int) byte {
	b := r.buf[i/2]
	if i%2 == 1 {
		return b >> 4
	}
	return b & 0x0f
}

// NibbleWriter is the inverse of NibbleReader.
type NibbleWriter struct {
	buf []byte
	pos int
}

// NewNibbleWriter returns a writer over buf positioned at nibble 0.
func NewNibbleWriter(buf []byte) *NibbleWriter {
	return &NibbleWriter{buf: buf}
}

// Write stores the low n nibbles of v at the current position.
func (w *NibbleWriter) Write(n int, v uint64) {
	for i := range n {
		idx := w.pos + i
		nib := byte(v>>(4*i)) & 0x0f
		if idx%2 == 1 {
			w.buf[idx/2] = w.buf[idx/2]&0x0f | nib<<4
		} else {
			w.buf[idx/2] = w.buf[idx/2]&0xf0 | nib
		}
	}
	w.pos += n
}

// Skip advances by n nibbles without writing.
func (w *NibbleWriter) Skip(n int) {
	w.pos += n
}
