// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/cortx-io/m0meta/pkg/btreetype"
	"github.com/cortx-io/m0meta/pkg/fid"
	"github.com/cortx-io/m0meta/pkg/mdformat"
	"github.com/cortx-io/m0meta/pkg/segment"
	"github.com/cortx-io/m0meta/pkg/segment/segmenttest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newApp()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var (
	stob1 = fid.FID{Container: 0x0200000000000005, Key: 0x2a}
	stob2 = fid.FID{Container: 0x0207000000000001, Key: 1}
)

// testSegment has an EMAP leaf with two checksummed extents at 0 and a
// CAS node at 16KiB.
func testSegment(t *testing.T) (string, []*mdformat.EmapRecord) {
	t.Helper()
	b := segmenttest.New(0)
	recs := b.EmapNode(0, 16384,
		segmenttest.Extent{STOB: stob1, End: 0x1000, Checksum: []mdformat.Word{0xaa}},
		segmenttest.Extent{STOB: stob2, Start: 0x1000, End: 0x2000, Checksum: []mdformat.Word{0xbb}},
	)
	b.Header(16384, btreetype.TreeCASCtg, 0)
	b.Put(16384+65536, make([]byte, 8))
	return b.WriteFile(t), recs
}

func TestScanCommand(t *testing.T) {
	path, _ := testSegment(t)

	out, err := run(t, "scan", "--progress=false", "--json", path)
	assert.NilError(t, err)
	var sess struct {
		Path    string             `json:"path"`
		Trees   map[string][]int64 `json:"trees"`
		Headers int                `json:"headers"`
	}
	assert.NilError(t, json.Unmarshal([]byte(out), &sess))
	assert.Equal(t, sess.Path, path)
	assert.Equal(t, sess.Headers, 2)
	assert.DeepEqual(t, sess.Trees["M0_BT_EMAP_EM_MAPPING"], []int64{0})
	assert.DeepEqual(t, sess.Trees["M0_BT_CAS_CTG"], []int64{16384})

	out, err = run(t, "scan", "--progress=false", path)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, "M0_BT_CAS_CTG"), out)
	assert.Assert(t, strings.Contains(out, "0x4000"), out)

	out, err = run(t, "scan", "--progress=false", "--leaves", "--format", "{{.Tree}} {{.Used}}", path)
	assert.NilError(t, err)
	assert.Equal(t, out, "M0_BT_EMAP_EM_MAPPING 2\n")
}

func TestScanCommandPartialFailure(t *testing.T) {
	path, _ := testSegment(t)
	missing := filepath.Join(t.TempDir(), "missing")

	out, err := run(t, "scan", "--progress=false", "--json", path, missing)
	assert.Assert(t, errors.Is(err, os.ErrNotExist))
	assert.ErrorContains(t, err, missing)
	assert.Equal(t, strings.Count(out, "\n"), 1)
}

func TestScanCommandScanBound(t *testing.T) {
	path, _ := testSegment(t)
	out, err := run(t, "scan", "--progress=false", "--scan-bound", "8KiB", "--format", "{{json .Trees}}", path)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, `"M0_BT_CAS_CTG":[]`), out)

	_, err = run(t, "scan", "--scan-bound", "lots", path)
	assert.ErrorContains(t, err, "invalid --scan-bound")
}

func TestEmapListCommand(t *testing.T) {
	path, recs := testSegment(t)
	out, err := run(t, "emap", "ls", "--json", path)
	assert.NilError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, len(lines), 2)
	var e segment.DeviceEntry
	assert.NilError(t, json.Unmarshal([]byte(lines[1]), &e))
	assert.Equal(t, e.Count, 2)
	assert.Equal(t, e.DeviceID, uint64(0x07)<<16)
	assert.Equal(t, e.RecordOffset, recs[1].Offset)
	assert.Assert(t, e.ChecksumOK)

	out, err = run(t, "emap", "list", path)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, "4307000000000001:0000000000000001"), out)
	assert.Assert(t, strings.Contains(out, "ok"), out)
}

func TestEmapCorruptCommand(t *testing.T) {
	path, _ := testSegment(t)
	cob, _ := fid.ToCOB(stob2)

	backup := filepath.Join(t.TempDir(), "segment.bak")
	orig, err := os.ReadFile(path)
	assert.NilError(t, err)

	out, err := run(t, "emap", "corrupt", "--tty=false", "--backup", backup, path, cob.String())
	assert.NilError(t, err)
	assert.Equal(t, out, "1\n")
	saved, err := os.ReadFile(backup)
	assert.NilError(t, err)
	assert.DeepEqual(t, saved, orig)

	out, err = run(t, "emap", "ls", "--format", "{{hex .End}} {{.ChecksumOK}}", path)
	assert.NilError(t, err)
	assert.Equal(t, out, "0000000000001000 true\n1111222244443333 true\n")

	_, err = run(t, "emap", "corrupt", "-y", path, "4300000000000099:1")
	assert.ErrorIs(t, err, segment.ErrTargetNotFound)
	assert.Equal(t, exitCode(err), 2)

	_, err = run(t, "emap", "corrupt", "--yes", "--tty", path, "not-a-fid")
	assert.ErrorContains(t, err, "container:key")
	_, err = run(t, "emap", "corrupt", "--yes", "--tty", path, cob.String())
	assert.ErrorContains(t, err, "cannot use both --tty and --yes")
	_, err = run(t, "emap", "corrupt", "--yes", path, "not-a-fid")
	assert.ErrorContains(t, err, "container:key")
	assert.Equal(t, exitCode(err), 1)
}

func TestRecordReadCommand(t *testing.T) {
	path, recs := testSegment(t)
	r := recs[0]

	out, err := run(t, "record", "read", "--emap", "--json", path, "0x"+strings.TrimLeft(mdformat.Word(r.Offset).String(), "0"))
	assert.NilError(t, err)
	var got mdformat.EmapRecord
	assert.NilError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, got.End, mdformat.Word(0x1000))
	assert.DeepEqual(t, got.Checksum, []mdformat.Word{0xaa})

	out, err = run(t, "record", "read", "--crc", "--json", path, "16384")
	assert.ErrorIs(t, err, segment.ErrTruncatedRecord)
	assert.Equal(t, out, "")

	out, err = run(t, "record", "read", path, "0")
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(out, "OFFSET"), out)
}

func TestFIDCommand(t *testing.T) {
	out, err := run(t, "fid", "to-cob", "--json", "0207000000000005:2a")
	assert.NilError(t, err)
	assert.Equal(t, out, `{"stob":"0207000000000005:000000000000002a","cob":"4307000000000005:000000000000002a","deviceId":458752}`+"\n")

	out, err = run(t, "fid", "to-stob", "--format", "{{.STOB}}", "4307000000000005:2a")
	assert.NilError(t, err)
	assert.Equal(t, out, "0207000000000005:000000000000002a\n")

	_, err = run(t, "fid", "to-cob")
	assert.ErrorContains(t, err, "requires at least 1 arg")
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "config", "show", "--scan-bound", "4GiB")
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, "scanBound: 4GiB"), out)
	assert.Assert(t, strings.Contains(out, "M0_BT_EMAP_EM_MAPPING: 16KiB"), out)

	cfg := filepath.Join(t.TempDir(), "m0meta.yaml")
	assert.NilError(t, os.WriteFile(cfg, []byte("strides:\n  M0_BT_NOPE: 8KiB\n"), 0o644))
	_, err = run(t, "config", "validate", cfg)
	assert.ErrorContains(t, err, "jsonschema validation failed")

	out, err = run(t, "config", "schema")
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, `"scanBound"`), out)

	_, err = run(t, "--config", cfg, "config", "show")
	assert.ErrorContains(t, err, "unknown tree type")
}

func TestOutputFlagsConflict(t *testing.T) {
	path, _ := testSegment(t)
	_, err := run(t, "emap", "ls", "--json", "--format", "yaml", path)
	assert.ErrorContains(t, err, "option --format conflicts with --json")
}

func TestGenDocCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "generate-doc", "--type", "man", dir)
	assert.NilError(t, err)
	_, err = os.Stat(filepath.Join(dir, "m0meta-emap-corrupt.1"))
	assert.NilError(t, err)

	_, err = run(t, "generate-doc", "--type", "markdown", dir)
	assert.NilError(t, err)
	_, err = os.Stat(filepath.Join(dir, "m0meta_scan.md"))
	assert.NilError(t, err)

	_, err = run(t, "generate-doc", "--type", "pdf", dir)
	assert.ErrorContains(t, err, "unsupported output type")
}
