// Based on https://github.com/containerd/nerdctl/blob/v0.13.0/pkg/lockutil/lockutil_windows.go
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
	"golang.org/x/sys/windows"
)

// WithFileLock runs fn while holding an exclusive lock on path.
func WithFileLock(path string, fn func() error) error {
	return withLock(path, windows.LOCKFILE_EXCLUSIVE_LOCK, fn)
}

// WithSharedFileLock runs fn while holding a shared lock on path.
func WithSharedFileLock(path string, fn func() error) error {
	return withLock(path, 0, fn)
}

// withLock locks a sidecar "<path>.lock" file, since a locked byte range
// of the segment itself could not be read by fn.
func withLock(path string, flags uint32, fn func() error) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	h := windows.Handle(f.Fd())
	if err := windows.LockFileEx(h, flags, 0, 1, 0, &windows.Overlapped{}); err != nil {
		return fmt.Errorf("failed to lock %q: %w", path, err)
	}
	defer func() {
		if err := windows.UnlockFileEx(h, 0, 1, 0, &windows.Overlapped{}); err != nil {
			logrus.WithError(err).Errorf("failed to unlock %q", path)
		}
	}()
	return fn()
}
