// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package m0crc implements the 64-bit FNV variant motr uses for record
// checksums.
//
// Input is a sequence of 8-byte groups in big-endian word form. Within a
// group the bytes are consumed from the last to the first, which is the
// on-disk (little-endian) order. Each byte multiplies first and xors second.
package m0crc

import (
	"hash"
)

const (
	offsetBasis uint64 = 14695981039346656037
	prime       uint64 = 1099511628211
	groupSize          = 8
)

// Sum64 returns the checksum of b. A trailing partial group is consumed
// in reverse like a full one.
func Sum64(b []byte) uint64 {
	d := New()
	_, _ = d.Write(b)
	return d.Sum64()
}

// SumWords returns the checksum of words, each taken as one group.
func SumWords[W ~uint64](words []W) uint64 {
	val := offsetBasis
	for _, w := range words {
		for k := range groupSize {
			val *= prime
			val ^= (uint64(w) >> (8 * k)) & 0xff
		}
	}
	return val
}

type digest struct {
	val uint64
	buf [groupSize]byte
	n   int
}

// New returns a streaming hash.Hash64 computing Sum64.
func New() hash.Hash64 {
	d := &digest{}
	d.Reset()
	return d
}

func (d *digest) Reset() {
	d.val = offsetBasis
	d.n = 0
}

func (d *digest) Size() int { return 8 }

func (d *digest) BlockSize() int { return groupSize }

func (d *digest) Write(p []byte) (int, error) {
	for _, b := range p {
		d.buf[d.n] = b
		d.n++
		if d.n == groupSize {
			d.val = mixGroup(d.val, d.buf[:])
			d.n = 0
		}
	}
	return len(p), nil
}

func (d *digest) Sum64() uint64 {
	if d.n == 0 {
		return d.val
	}
	return mixGroup(d.val, d.buf[:d.n])
}

func (d *digest) Sum(in []byte) []byte {
	v := d.Sum64()
	return append(in, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func mixGroup(val uint64, group []byte) uint64 {
	for i := len(group) - 1; i >= 0; i-- {
		val *= prime
		val ^= uint64(group[i])
	}
	return val
}
