// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cortx-io/m0meta/pkg/lockutil"
	"github.com/cortx-io/m0meta/pkg/progressbar"
	"github.com/cortx-io/m0meta/pkg/segment"
)

// maxTableOffsets is the number of offsets shown per tree type in a table.
const maxTableOffsets = 4

func newScanCommand() *cobra.Command {
	scanCommand := &cobra.Command{
		Use:   "scan SEGMENT...",
		Short: "Scan segments for B-tree node headers",
		Long: `Scan segments for B-tree node headers.

Each segment is scanned independently; multiple segments are scanned in parallel.`,
		Args:    WrapArgsError(cobra.MinimumNArgs(1)),
		RunE:    scanAction,
		GroupID: "basic",
	}
	addOutputFlags(scanCommand.Flags())
	scanCommand.Flags().Bool("leaves", false, "List populated leaf nodes instead of node offsets per tree type")
	scanCommand.Flags().Bool("progress", progressbar.Enabled(), "Show a progress bar when scanning a single segment")
	return scanCommand
}

func scanAction(cmd *cobra.Command, args []string) error {
	out, err := outputOptions(cmd)
	if err != nil {
		return err
	}
	leaves, err := cmd.Flags().GetBool("leaves")
	if err != nil {
		return err
	}
	showProgress, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return err
	}
	opts, err := segmentOpts(cmd)
	if err != nil {
		return err
	}
	showProgress = showProgress && len(args) == 1

	ctx := cmd.Context()
	sessions := make([]*segment.Session, len(args))
	errs := make([]error, len(args))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range args {
		g.Go(func() error {
			o := opts
			if showProgress {
				st, err := os.Stat(path)
				if err != nil {
					errs[i] = err
					return nil
				}
				bar, err := progressbar.New(path, st.Size())
				if err != nil {
					errs[i] = err
					return nil
				}
				bar.Start()
				defer bar.Finish()
				o = append(slices.Clone(opts), segment.WithProgress(bar))
			}
			errs[i] = lockutil.WithSharedFileLock(path, func() error {
				var err error
				sessions[i], err = segment.Scan(ctx, path, o...)
				return err
			})
			if errs[i] != nil {
				errs[i] = fmt.Errorf("failed to scan %q: %w", path, errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	var printErr error
	if leaves {
		printErr = printLeaves(cmd, out, sessions)
	} else {
		printErr = printSessions(cmd, out, sessions)
	}
	return errors.Join(append(errs, printErr)...)
}

func printSessions(cmd *cobra.Command, out *output, sessions []*segment.Session) error {
	if !out.table() {
		for _, sess := range sessions {
			if sess == nil {
				continue
			}
			if err := out.write(cmd.OutOrStdout(), sess); err != nil {
				return err
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "SEGMENT\tTREE\tNODES\tOFFSETS")
	for _, sess := range sessions {
		if sess == nil {
			continue
		}
		if sess.Trees.Len() == 0 {
			logrus.Warnf("No B-tree node header found in %q (%s scanned)", sess.Path, units.BytesSize(float64(sess.End)))
		}
		sess.Trees.Each(func(name string, offsets []int64) {
			if len(offsets) == 0 {
				return
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", sess.Path, name, len(offsets), formatOffsets(offsets))
		})
	}
	return w.Flush()
}

func formatOffsets(offsets []int64) string {
	var s []string
	for i, off := range offsets {
		if i == maxTableOffsets {
			s = append(s, "...")
			break
		}
		s = append(s, fmt.Sprintf("%#x", off))
	}
	return strings.Join(s, ",")
}

func printLeaves(cmd *cobra.Command, out *output, sessions []*segment.Session) error {
	if !out.table() {
		for _, sess := range sessions {
			if sess == nil {
				continue
			}
			for _, node := range sess.Nodes {
				if err := out.write(cmd.OutOrStdout(), node); err != nil {
					return err
				}
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "SEGMENT\tOFFSET\tTREE\tSHAPE\tUSED\tSIZE")
	for _, sess := range sessions {
		if sess == nil {
			continue
		}
		for _, node := range sess.Nodes {
			fmt.Fprintf(w, "%s\t%#x\t%s\t%s\t%d\t%s\n",
				sess.Path,
				node.Offset,
				node.Tree,
				node.Shape,
				node.Used,
				units.BytesSize(float64(node.Len)),
			)
		}
	}
	return w.Flush()
}
