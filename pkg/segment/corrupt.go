// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cortx-io/m0meta/pkg/fid"
	"github.com/cortx-io/m0meta/pkg/mdformat"
)

// CorruptPattern replaces er_end of a corrupted record.
const CorruptPattern mdformat.Word = 0x1111222244443333

// errCorrupted and errNoChecksum stop the EMAP walk at the first record
// of the target that is not a hole.
var (
	errCorrupted  = errors.New("corrupted")
	errNoChecksum = errors.New("no checksum")
)

// CorruptEmap overwrites er_end of the first EMAP record whose COB id is
// target, then rewrites the record footer checksum so the damage is not
// detected by the checksum. Holes are skipped. If the first other record of
// target carries no checksum, nothing is written, even when later extents
// of target have one.
//
// It returns 1 when a record was modified and 0 otherwise. When no key at
// all matches target the error is ErrTargetNotFound.
func (s *Segment) CorruptEmap(sess *Session, target fid.FID) (int, error) {
	if !s.writable {
		return 0, ErrReadOnly
	}
	found := false
	err := s.walkEmap(sess, func(k *KeyEntry, rec *mdformat.EmapRecord) error {
		cob, dev := fid.ToCOB(k.STOB)
		if cob != target {
			return nil
		}
		found = true
		log := s.log.WithFields(logrus.Fields{
			"cob":          cob,
			"deviceId":     dev,
			"keyOffset":    k.Key.Offset,
			"recordOffset": rec.Offset,
		})
		if rec.IsHole() {
			log.Info("EMAP record is a hole, not corrupting")
			return nil
		}
		if rec.CSNob == 0 {
			log.Info("EMAP record has no checksum, not corrupting")
			return errNoChecksum
		}
		if err := s.corruptRecord(rec); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"endOffset":      rec.EndOffset(),
			"checksumOffset": rec.ChecksumOffset(),
			"checksum":       rec.FtChecksum,
		}).Info("Corrupted EMAP record")
		return errCorrupted
	})
	switch {
	case errors.Is(err, errCorrupted):
		return 1, nil
	case errors.Is(err, errNoChecksum):
		return 0, nil
	case err != nil:
		return 0, err
	case !found:
		return 0, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}
	return 0, nil
}

// corruptRecord writes the pattern over er_end and a matching checksum.
// rec is updated to reflect the new content.
func (s *Segment) corruptRecord(rec *mdformat.EmapRecord) error {
	if err := mdformat.WriteWord(s, rec.EndOffset(), CorruptPattern); err != nil {
		return err
	}
	rec.End = CorruptPattern
	rec.FtChecksum = rec.ComputeChecksum()
	return mdformat.WriteWord(s, rec.ChecksumOffset(), rec.FtChecksum)
}

// CorruptEmap opens path for writing, scans it, corrupts the record of
// target and closes it.
func CorruptEmap(ctx context.Context, path string, target fid.FID, opts ...Opt) (int, error) {
	s, err := OpenWritable(path, opts...)
	if err != nil {
		return 0, err
	}
	sess, err := s.Scan(ctx)
	if err != nil {
		s.Close()
		return 0, err
	}
	n, err := s.CorruptEmap(sess, target)
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return n, err
}
