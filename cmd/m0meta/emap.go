// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/containerd/continuity/fs"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cortx-io/m0meta/pkg/fid"
	"github.com/cortx-io/m0meta/pkg/lockutil"
	"github.com/cortx-io/m0meta/pkg/segment"
	"github.com/cortx-io/m0meta/pkg/uiutil"
)

func newEmapCommand() *cobra.Command {
	emapCommand := &cobra.Command{
		Use:     "emap",
		Short:   "Inspect or corrupt extent map (EMAP) records",
		GroupID: "basic",
	}
	emapCommand.AddCommand(
		newEmapListCommand(),
		newEmapCorruptCommand(),
	)
	return emapCommand
}

func newEmapListCommand() *cobra.Command {
	listCommand := &cobra.Command{
		Use:     "list SEGMENT",
		Aliases: []string{"ls"},
		Short:   "List allocated EMAP extents with their device ids",
		Long: `List allocated EMAP extents with their device ids.

Holes are omitted. Records that carry a checksum are verified; mismatches are
reported in the CHECKSUM column and logged.`,
		Args: WrapArgsError(cobra.ExactArgs(1)),
		RunE: emapListAction,
	}
	addOutputFlags(listCommand.Flags())
	return listCommand
}

func emapListAction(cmd *cobra.Command, args []string) error {
	out, err := outputOptions(cmd)
	if err != nil {
		return err
	}
	opts, err := segmentOpts(cmd)
	if err != nil {
		return err
	}
	path := args[0]
	var entries []segment.DeviceEntry
	err = lockutil.WithSharedFileLock(path, func() error {
		var err error
		entries, err = segment.ListAllEmapPerDevice(cmd.Context(), path, opts...)
		return err
	})
	if err != nil {
		return err
	}

	switch {
	case out.kind == outputYAML:
		return out.write(cmd.OutOrStdout(), entries)
	case !out.table():
		for _, e := range entries {
			if err := out.write(cmd.OutOrStdout(), e); err != nil {
				return err
			}
		}
		return nil
	}

	if len(entries) == 0 {
		logrus.Warnf("No allocated EMAP extent found in %q", path)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "#\tDEVICE\tCOB\tSTART\tEND\tKEY\tRECORD\tCHECKSUM")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%#x\t%s\t%s\t%s\t%#x\t%#x\t%s\n",
			e.Count,
			e.DeviceID,
			e.COB,
			e.Start,
			e.End,
			e.KeyOffset,
			e.RecordOffset,
			checksumStatus(e),
		)
	}
	return w.Flush()
}

func checksumStatus(e segment.DeviceEntry) string {
	switch {
	case e.CSNob == 0:
		return "-"
	case e.ChecksumOK:
		return "ok"
	}
	return "MISMATCH"
}

func newEmapCorruptCommand() *cobra.Command {
	corruptCommand := &cobra.Command{
		Use:   "corrupt SEGMENT FID",
		Short: "Corrupt the EMAP record of a component object",
		Long: `Corrupt the EMAP record of a component object.

FID is the COB id as "container:key" in hex, e.g. 4300000000000005:2a.
The end of the first matching extent is overwritten with 0x1111222244443333
and the record checksum is recomputed, so the corruption passes checksum
verification. Holes and records without a checksum are left alone.

The segment is modified in place. Stop every process using it first.`,
		Args: WrapArgsError(cobra.ExactArgs(2)),
		RunE: emapCorruptAction,
	}
	corruptCommand.Flags().String("backup", "", "Copy the segment to this path before corrupting it")
	corruptCommand.Flags().Bool("tty", isatty.IsTerminal(os.Stdout.Fd()), "Ask for confirmation. Defaults to true when stdout is a terminal")
	corruptCommand.Flags().BoolP("yes", "y", false, "Alias of --tty=false")
	return corruptCommand
}

func emapCorruptAction(cmd *cobra.Command, args []string) error {
	path := args[0]
	target, err := fid.Parse(args[1])
	if err != nil {
		return err
	}
	if target.Tag() != fid.TagCOB {
		logrus.Warnf("%s does not carry the COB type tag %q; it will not match any EMAP record", target, fid.TagCOB)
	}
	opts, err := segmentOpts(cmd)
	if err != nil {
		return err
	}
	backup, err := cmd.Flags().GetString("backup")
	if err != nil {
		return err
	}
	tty, err := cmd.Flags().GetBool("tty")
	if err != nil {
		return err
	}
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		if cmd.Flags().Changed("tty") {
			return errors.New("cannot use both --tty and --yes flags at the same time")
		}
		tty = false
	}
	if tty {
		ok, err := uiutil.Confirm(fmt.Sprintf("Corrupt the EMAP record of %s in %q?", target, path), false)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("aborted")
		}
	}

	var n int
	err = lockutil.WithFileLock(path, func() error {
		if backup != "" {
			if err := fs.CopyFile(backup, path); err != nil {
				return fmt.Errorf("failed to back up %q to %q: %w", path, backup, err)
			}
			logrus.Infof("Backed up %q to %q", path, backup)
		}
		var err error
		n, err = segment.CorruptEmap(cmd.Context(), path, target, opts...)
		return err
	})
	if err != nil {
		return err
	}
	if n == 0 {
		logrus.Warnf("EMAP record of %s not corrupted", target)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
	return err
}
