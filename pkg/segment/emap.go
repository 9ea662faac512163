// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cortx-io/m0meta/pkg/fid"
	"github.com/cortx-io/m0meta/pkg/mdformat"
)

// KeyEntry is one key of a populated EMAP leaf.
type KeyEntry struct {
	Index      int               `json:"index"` // 1-based
	NodeOffset int64             `json:"nodeOffset"`
	NodeLen    int64             `json:"nodeLen"`
	Key        *mdformat.EmapKey `json:"key"`
	STOB       fid.FID           `json:"stob"`
}

// RecordOffset returns the offset of the record length prefix.
func (k *KeyEntry) RecordOffset() int64 {
	return k.NodeOffset + k.NodeLen - int64(k.Key.ValueOffset)
}

// ParseEmapKeys returns the keys of the EMAP node whose segment header is
// at node. A node that fails the FKVV leaf gate has no keys. A key that
// cannot be read ends the walk; the keys before it are returned along with
// the error.
func (s *Segment) ParseEmapKeys(node int64) ([]KeyEntry, error) {
	hdr, err := mdformat.DecodeFKVVHeader(s, node+mdformat.NodeHeaderOff)
	if err != nil {
		return nil, fmt.Errorf("EMAP node at offset %d: %w", node, err)
	}
	if !hdr.IsValidLeaf() {
		s.log.WithFields(logrus.Fields{
			"offset": node,
			"level":  hdr.Level,
			"used":   hdr.Used,
		}).Debug("EMAP node is not a populated leaf")
		return nil, nil
	}
	keys := make([]KeyEntry, 0, hdr.Used)
	for i := 1; i <= int(hdr.Used); i++ {
		k, err := mdformat.DecodeEmapKey(s, mdformat.EmapKeyOffset(node, i))
		if err != nil {
			return keys, fmt.Errorf("EMAP key %d of node at offset %d: %w", i, node, err)
		}
		keys = append(keys, KeyEntry{
			Index:      i,
			NodeOffset: node,
			NodeLen:    hdr.Len(),
			Key:        k,
			STOB:       fid.FID{Container: uint64(k.Prefix[0]), Key: uint64(k.Prefix[1])},
		})
	}
	return keys, nil
}

// walkEmap calls fn for every EMAP key with a readable record, in node
// discovery order. Unreadable nodes and records are logged and skipped.
func (s *Segment) walkEmap(sess *Session, fn func(k *KeyEntry, rec *mdformat.EmapRecord) error) error {
	for _, node := range sess.EmapNodes() {
		keys, err := s.ParseEmapKeys(node)
		if err != nil {
			s.log.WithError(err).Warn("Failed to parse EMAP keys")
		}
		for i := range keys {
			k := &keys[i]
			rec, err := s.ReadEmapRecord(k.RecordOffset())
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"keyOffset":    k.Key.Offset,
					"recordOffset": k.RecordOffset(),
				}).Warn("Failed to read EMAP record")
				continue
			}
			if err := fn(k, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeviceEntry is one allocated extent, attributed to a device.
type DeviceEntry struct {
	Count        int     `json:"count"`
	KeyOffset    int64   `json:"keyOffset"`
	RecordOffset int64   `json:"recordOffset"`
	STOB         fid.FID `json:"stob"`
	COB          fid.FID `json:"cob"`
	DeviceID     uint64  `json:"deviceId"`
	// Start and End bound the extent.
	Start mdformat.Word `json:"start"`
	End   mdformat.Word `json:"end"`
	CSNob uint64        `json:"csNob"`
	// ChecksumOK is false when a stored checksum does not match the record.
	ChecksumOK bool `json:"checksumOk"`
}

// ListAllPerDevice lists every non-hole EMAP extent found by sess. The
// stored checksum of records carrying one is verified and mismatches are
// logged.
func (s *Segment) ListAllPerDevice(sess *Session) ([]DeviceEntry, error) {
	entries := []DeviceEntry{}
	err := s.walkEmap(sess, func(k *KeyEntry, rec *mdformat.EmapRecord) error {
		if rec.IsHole() {
			return nil
		}
		cob, dev := fid.ToCOB(k.STOB)
		e := DeviceEntry{
			Count:        len(entries) + 1,
			KeyOffset:    k.Key.Offset,
			RecordOffset: rec.Offset,
			STOB:         k.STOB,
			COB:          cob,
			DeviceID:     dev,
			Start:        rec.Start,
			End:          rec.End,
			CSNob:        uint64(rec.CSNob),
			ChecksumOK:   true,
		}
		if rec.CSNob != 0 {
			if computed := rec.ComputeChecksum(); computed != rec.FtChecksum {
				e.ChecksumOK = false
				s.log.WithFields(logrus.Fields{
					"recordOffset": rec.Offset,
					"cob":          cob,
					"stored":       rec.FtChecksum,
					"computed":     computed,
				}).Warn("EMAP record checksum mismatch")
			}
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// ListAllEmapPerDevice opens path, scans it, lists its EMAP extents and
// closes it.
func ListAllEmapPerDevice(ctx context.Context, path string, opts ...Opt) ([]DeviceEntry, error) {
	s, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	sess, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListAllPerDevice(sess)
}
