// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package lockutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
)

const parallel = 20

// Each writer reads the counter stored in the locked file, then writes it
// back incremented. Lost updates would show up as a short count.
func TestWithFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.bin")
	assert.NilError(t, os.WriteFile(path, []byte{0}, 0o644))

	var wg sync.WaitGroup
	errc := make(chan error, parallel)
	for range parallel {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errc <- WithFileLock(path, func() error {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				return os.WriteFile(path, []byte{b[0] + 1}, 0o644)
			})
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		assert.NilError(t, err)
	}

	b, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, int(b[0]), parallel)
}

func TestWithSharedFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.bin")
	assert.NilError(t, os.WriteFile(path, []byte("data"), 0o644))

	// shared locks do not exclude each other
	err := WithSharedFileLock(path, func() error {
		return WithSharedFileLock(path, func() error { return nil })
	})
	assert.NilError(t, err)

	err = WithFileLock(filepath.Join(t.TempDir(), "missing"), func() error { return nil })
	assert.Assert(t, os.IsNotExist(err))
}
