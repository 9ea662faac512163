// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package segment

import (
	"errors"
	"fmt"

	"github.com/cortx-io/m0meta/pkg/mdformat"
)

// ReadRecord reads words from start until the footer magic. It returns the
// words before the footer and the footer offset.
func (s *Segment) ReadRecord(start int64) ([]mdformat.Word, int64, error) {
	words, footer, err := s.readUntilFooter(start)
	if err != nil {
		return nil, 0, err
	}
	return words[:len(words)-1], footer, nil
}

// ReadRecordWithCRC is ReadRecord but continues one word past the footer.
// The returned words end with the footer magic and the trailing checksum.
func (s *Segment) ReadRecordWithCRC(start int64) ([]mdformat.Word, int64, error) {
	words, footer, err := s.readUntilFooter(start)
	if err != nil {
		return nil, 0, err
	}
	crc, err := mdformat.ReadWord(s, footer+mdformat.WordSize)
	if err != nil {
		return nil, 0, truncated(start, err)
	}
	return append(words, crc), footer, nil
}

// readUntilFooter returns the words up to and including the footer magic.
func (s *Segment) readUntilFooter(start int64) ([]mdformat.Word, int64, error) {
	var words []mdformat.Word
	for off := start; ; off += mdformat.WordSize {
		w, err := mdformat.ReadWord(s, off)
		if err != nil {
			return nil, 0, truncated(start, err)
		}
		words = append(words, w)
		if w == mdformat.MagicFooter {
			return words, off, nil
		}
	}
}

func truncated(start int64, err error) error {
	if errors.Is(err, mdformat.ErrShortRead) {
		return fmt.Errorf("%w: record at offset %d", ErrTruncatedRecord, start)
	}
	return err
}

// ReadEmapRecord decodes the EMAP record whose length prefix is at off.
func (s *Segment) ReadEmapRecord(off int64) (*mdformat.EmapRecord, error) {
	words, _, err := s.ReadRecordWithCRC(off + mdformat.RecordPrefixSize)
	if err != nil {
		return nil, err
	}
	return mdformat.DecodeEmapRecord(off, words)
}
