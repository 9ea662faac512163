// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package segment scans a motr metadata segment file for B-tree node
// headers, walks the EMAP leaves it finds, and can deliberately corrupt one
// EMAP record for fault-injection tests.
//
// A Segment holds one open file handle for the duration of a top-level
// call. It performs no locking: callers that corrupt a segment must ensure
// nothing else reads or writes it concurrently.
package segment

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/cortx-io/m0meta/pkg/mdconfig"
)

var (
	// ErrTruncatedRecord is returned when the end of the segment is reached
	// before a record footer.
	ErrTruncatedRecord = errors.New("truncated record: footer not found before end of segment")
	// ErrTargetNotFound is returned when no EMAP key matches a corruption target.
	ErrTargetNotFound = errors.New("corruption target not found")
	// ErrReadOnly is returned when a write is attempted on a read-only segment.
	ErrReadOnly = errors.New("segment is opened read-only")
)

// Updater receives the number of bytes the scanner has advanced.
type Updater interface {
	Update(n int64)
}

type options struct {
	config   *mdconfig.Config
	logger   *logrus.Entry
	progress Updater
}

func (o *options) apply(opts []Opt) error {
	for _, f := range opts {
		if err := f(o); err != nil {
			return err
		}
	}
	return nil
}

// Opt configures Open and OpenWritable.
type Opt func(*options) error

// WithConfig sets the scan bound and strides. The default is mdconfig.Default().
func WithConfig(c *mdconfig.Config) Opt {
	return func(o *options) error {
		if err := mdconfig.Validate(c); err != nil {
			return err
		}
		o.config = c
		return nil
	}
}

// WithLogger sets the destination of diagnostics.
func WithLogger(l *logrus.Entry) Opt {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}

// WithProgress reports scan progress to u.
func WithProgress(u Updater) Opt {
	return func(o *options) error {
		o.progress = u
		return nil
	}
}

// Segment is an open metadata segment file.
type Segment struct {
	f        *os.File
	path     string
	size     int64
	writable bool
	limits   *mdconfig.Limits
	log      *logrus.Entry
	progress Updater
}

// Open opens path read-only.
func Open(path string, opts ...Opt) (*Segment, error) {
	return open(path, os.O_RDONLY, opts)
}

// OpenWritable opens path for in-place modification.
func OpenWritable(path string, opts ...Opt) (*Segment, error) {
	return open(path, os.O_RDWR, opts)
}

func open(path string, flag int, opts []Opt) (*Segment, error) {
	var o options
	if err := o.apply(opts); err != nil {
		return nil, err
	}
	if o.config == nil {
		o.config = mdconfig.Default()
	}
	limits, err := o.config.Resolve()
	if err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = logrus.NewEntry(logrus.StandardLogger())
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open segment: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat segment %q: %w", path, err)
	}
	return &Segment{
		f:        f,
		path:     path,
		size:     st.Size(),
		writable: flag&os.O_RDWR != 0,
		limits:   limits,
		log:      o.logger.WithField("segment", path),
		progress: o.progress,
	}, nil
}

// Close closes the underlying file.
func (s *Segment) Close() error {
	return s.f.Close()
}

// Path returns the file path.
func (s *Segment) Path() string {
	return s.path
}

// Size returns the file size at open time.
func (s *Segment) Size() int64 {
	return s.size
}

// Limits returns the resolved scan parameters.
func (s *Segment) Limits() *mdconfig.Limits {
	return s.limits
}

// ReadAt implements io.ReaderAt.
func (s *Segment) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

// WriteAt implements io.WriterAt. It fails unless the segment was opened
// with OpenWritable.
func (s *Segment) WriteAt(p []byte, off int64) (int, error) {
	if !s.writable {
		return 0, ErrReadOnly
	}
	return s.f.WriteAt(p, off)
}
