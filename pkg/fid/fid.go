// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package fid converts between storage-object (STOB) and component-object
// (COB) identifiers. The high byte of the container word is a type tag.
package fid

import (
	"fmt"
	"strconv"
	"strings"
)

// Type tags stored in the high byte of the container.
const (
	TagCOB    byte = 'C'
	TagSTOBAD byte = 2
)

const (
	typeShift  = 56
	TypeMask   = 0x00ffffffffffffff
	deviceMask = 0x00ff000000000000
	// TODO: motr keeps the device id at bits 48..55; confirm whether the
	// shift should be 48 before relying on DeviceID outside fault injection.
	deviceShift = 32
)

// FID is a two-word object identifier.
type FID struct {
	Container uint64 `json:"container"`
	Key       uint64 `json:"key"`
}

// String returns the "container:key" form with fixed-width hex.
func (f FID) String() string {
	return fmt.Sprintf("%016x:%016x", f.Container, f.Key)
}

// MarshalText implements encoding.TextMarshaler.
func (f FID) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *FID) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Tag returns the type tag.
func (f FID) Tag() byte {
	return byte(f.Container >> typeShift)
}

// Parse parses "container:key"; both halves are hex with an optional 0x prefix.
func Parse(s string) (FID, error) {
	c, k, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return FID{}, fmt.Errorf("invalid fid %q: expected \"container:key\"", s)
	}
	container, err := parseHex(c)
	if err != nil {
		return FID{}, fmt.Errorf("invalid fid container %q: %w", c, err)
	}
	key, err := parseHex(k)
	if err != nil {
		return FID{}, fmt.Errorf("invalid fid key %q: %w", k, err)
	}
	return FID{Container: container, Key: key}, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func retag(tag byte, container uint64) uint64 {
	return uint64(tag)<<typeShift | container&TypeMask
}

// ToCOB converts a STOB identifier to the owning COB identifier and
// returns the device id encoded in it.
func ToCOB(stob FID) (cob FID, deviceID uint64) {
	cob = FID{Container: retag(TagCOB, stob.Container), Key: stob.Key}
	return cob, DeviceID(cob)
}

// ToSTOB converts a COB identifier back to its STOB_AD identifier.
func ToSTOB(cob FID) FID {
	return FID{Container: retag(TagSTOBAD, cob.Container), Key: cob.Key}
}

// DeviceID extracts the device id from a COB container.
func DeviceID(cob FID) uint64 {
	return (cob.Container & deviceMask) >> deviceShift
}
