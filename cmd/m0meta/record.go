// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cortx-io/m0meta/pkg/mdformat"
	"github.com/cortx-io/m0meta/pkg/segment"
)

func newRecordCommand() *cobra.Command {
	recordCommand := &cobra.Command{
		Use:     "record",
		Short:   "Read raw records",
		GroupID: "advanced",
	}
	recordCommand.AddCommand(newRecordReadCommand())
	return recordCommand
}

func newRecordReadCommand() *cobra.Command {
	readCommand := &cobra.Command{
		Use:   "read SEGMENT OFFSET",
		Short: "Read the words of a record up to its footer",
		Long: `Read the words of a record up to its footer.

OFFSET is decimal or 0x-prefixed hex. With --emap, OFFSET is the start of an
EMAP record (its length prefix) and the record is decoded.`,
		Args: WrapArgsError(cobra.ExactArgs(2)),
		RunE: recordReadAction,
	}
	readCommand.Flags().Bool("crc", false, "Also read the checksum word that follows the footer")
	readCommand.Flags().Bool("emap", false, "Decode an EMAP record")
	addOutputFlags(readCommand.Flags())
	return readCommand
}

func recordReadAction(cmd *cobra.Command, args []string) error {
	out, err := outputOptions(cmd)
	if err != nil {
		return err
	}
	withCRC, err := cmd.Flags().GetBool("crc")
	if err != nil {
		return err
	}
	emap, err := cmd.Flags().GetBool("emap")
	if err != nil {
		return err
	}
	offset, err := strconv.ParseInt(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", args[1], err)
	}
	opts, err := segmentOpts(cmd)
	if err != nil {
		return err
	}
	s, err := segment.Open(args[0], opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	if emap {
		rec, err := s.ReadEmapRecord(offset)
		if err != nil {
			return err
		}
		if computed := rec.ComputeChecksum(); rec.CSNob != 0 && computed != rec.FtChecksum {
			logrus.WithFields(logrus.Fields{
				"stored":   rec.FtChecksum,
				"computed": computed,
			}).Warn("EMAP record checksum mismatch")
		}
		if !out.table() {
			return out.write(cmd.OutOrStdout(), rec)
		}
		return printEmapRecord(cmd, rec)
	}

	var (
		words  []mdformat.Word
		footer int64
	)
	if withCRC {
		words, footer, err = s.ReadRecordWithCRC(offset)
	} else {
		words, footer, err = s.ReadRecord(offset)
	}
	if err != nil {
		return err
	}
	logrus.Debugf("Footer at offset %#x", footer)
	if !out.table() {
		return out.write(cmd.OutOrStdout(), words)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tWORD")
	for i, word := range words {
		fmt.Fprintf(w, "%#x\t%s\n", offset+int64(i)*mdformat.WordSize, word)
	}
	return w.Flush()
}

func printEmapRecord(cmd *cobra.Command, rec *mdformat.EmapRecord) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "FIELD\tVALUE")
	for _, f := range []struct {
		name  string
		value mdformat.Word
	}{
		{"magic", rec.Magic},
		{"bits", rec.Bits},
		{"value", rec.Value},
		{"unit_size", rec.UnitSize},
		{"cs_type", rec.CSType},
		{"cs_nob", rec.CSNob},
		{"start", rec.Start},
		{"end", rec.End},
	} {
		fmt.Fprintf(w, "%s\t%s\n", f.name, f.value)
	}
	for i, c := range rec.Checksum {
		fmt.Fprintf(w, "checksum[%d]\t%s\n", i, c)
	}
	fmt.Fprintf(w, "footer\t%s\n", rec.FtMagic)
	fmt.Fprintf(w, "footer_checksum\t%s\n", rec.FtChecksum)
	if rec.IsHole() {
		fmt.Fprintln(w, "hole\ttrue")
	}
	return w.Flush()
}
