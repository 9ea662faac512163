// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

// Package progressbar reports segment scan progress on stderr.
package progressbar

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// ProgressBar adapts pb.ProgressBar to the segment.Updater interface.
type ProgressBar struct {
	*pb.ProgressBar
}

// Update advances the bar by n scanned bytes.
func (b *ProgressBar) Update(n int64) {
	b.Add64(n)
}

// New returns a bar for a scan of size bytes of the segment at path.
// The bar is static when stderr is not a terminal or logs are not text.
func New(path string, size int64) (*ProgressBar, error) {
	bar := &ProgressBar{pb.New64(size)}

	bar.Set(pb.Bytes, true)
	bar.Set("prefix", filepath.Base(path)+" ")

	if Enabled() {
		bar.SetTemplateString(`{{string . "prefix"}}{{counters . }} {{bar . | green }} {{percent .}} {{speed . "%s/s"}}`)
		bar.SetRefreshRate(200 * time.Millisecond)
	} else {
		bar.Set(pb.Static, true)
	}

	bar.SetWidth(80)
	if err := bar.Err(); err != nil {
		return nil, err
	}

	return bar, nil
}

// Enabled reports whether an animated bar would be shown.
func Enabled() bool {
	// Progress supports only text format for now.
	if _, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter); !ok {
		return false
	}

	// Both logrus and pb use stderr by default.
	logFd := os.Stderr.Fd()
	return isatty.IsTerminal(logFd) || isatty.IsCygwinTerminal(logFd)
}
