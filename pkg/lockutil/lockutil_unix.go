//go:build !windows

// Based on https://github.com/containerd/nerdctl/blob/v0.13.0/pkg/lockutil/lockutil_unix.go
/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package lockutil serializes access to segment files between m0meta
// processes. The locks are advisory: a running motr instance does not take them.
package lockutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// WithFileLock runs fn while holding an exclusive lock on path.
func WithFileLock(path string, fn func() error) error {
	return withLock(path, unix.LOCK_EX, fn)
}

// WithSharedFileLock runs fn while holding a shared lock on path.
func WithSharedFileLock(path string, fn func() error) error {
	return withLock(path, unix.LOCK_SH, fn)
}

func withLock(path string, how int, fn func() error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := flock(f, how); err != nil {
		return fmt.Errorf("failed to lock %q: %w", path, err)
	}
	defer func() {
		if err := flock(f, unix.LOCK_UN); err != nil {
			logrus.WithError(err).Errorf("failed to unlock %q", path)
		}
	}()
	return fn()
}

func flock(f *os.File, how int) error {
	fd := int(f.Fd())
	for {
		err := unix.Flock(fd, how)
		if err == nil || err != unix.EINTR {
			return err
		}
	}
}
