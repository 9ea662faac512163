// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package progressbar

import (
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
)

func TestUpdate(t *testing.T) {
	bar, err := New("/var/motr/m0d-0x7200000000000001:0x2/db/o/100000000000000:2a", 4096)
	assert.NilError(t, err)
	bar.Update(1024)
	bar.Update(8)
	assert.Equal(t, bar.Current(), int64(1032))
	assert.Equal(t, bar.Total(), int64(4096))
}

func TestEnabledRequiresTextLogs(t *testing.T) {
	orig := logrus.StandardLogger().Formatter
	t.Cleanup(func() { logrus.SetFormatter(orig) })
	logrus.SetFormatter(new(logrus.JSONFormatter))
	assert.Assert(t, !Enabled())
}
