// SPDX-FileCopyrightText: Copyright The m0meta Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cortx-io/m0meta/pkg/fid"
)

func newFIDCommand() *cobra.Command {
	fidCommand := &cobra.Command{
		Use:     "fid",
		Short:   "Convert between STOB and COB identifiers",
		GroupID: "advanced",
	}
	toCOBCommand := &cobra.Command{
		Use:   "to-cob FID...",
		Short: "Convert STOB ids to COB ids and show their device ids",
		Args:  WrapArgsError(cobra.MinimumNArgs(1)),
		RunE:  fidToCOBAction,
	}
	addOutputFlags(toCOBCommand.Flags())
	toSTOBCommand := &cobra.Command{
		Use:   "to-stob FID...",
		Short: "Convert COB ids to STOB ids",
		Args:  WrapArgsError(cobra.MinimumNArgs(1)),
		RunE:  fidToSTOBAction,
	}
	addOutputFlags(toSTOBCommand.Flags())
	fidCommand.AddCommand(toCOBCommand, toSTOBCommand)
	return fidCommand
}

type fidConversion struct {
	STOB     fid.FID `json:"stob"`
	COB      fid.FID `json:"cob"`
	DeviceID uint64  `json:"deviceId"`
}

func parseFIDs(args []string) ([]fid.FID, error) {
	res := make([]fid.FID, 0, len(args))
	for _, arg := range args {
		f, err := fid.Parse(arg)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	return res, nil
}

func fidToCOBAction(cmd *cobra.Command, args []string) error {
	fids, err := parseFIDs(args)
	if err != nil {
		return err
	}
	var convs []fidConversion
	for _, stob := range fids {
		cob, dev := fid.ToCOB(stob)
		convs = append(convs, fidConversion{STOB: stob, COB: cob, DeviceID: dev})
	}
	return printConversions(cmd, convs)
}

func fidToSTOBAction(cmd *cobra.Command, args []string) error {
	fids, err := parseFIDs(args)
	if err != nil {
		return err
	}
	var convs []fidConversion
	for _, cob := range fids {
		convs = append(convs, fidConversion{STOB: fid.ToSTOB(cob), COB: cob, DeviceID: fid.DeviceID(cob)})
	}
	return printConversions(cmd, convs)
}

func printConversions(cmd *cobra.Command, convs []fidConversion) error {
	out, err := outputOptions(cmd)
	if err != nil {
		return err
	}
	if !out.table() {
		for _, c := range convs {
			if err := out.write(cmd.OutOrStdout(), c); err != nil {
				return err
			}
		}
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 4, 8, 4, ' ', 0)
	fmt.Fprintln(w, "STOB\tCOB\tDEVICE")
	for _, c := range convs {
		fmt.Fprintf(w, "%s\t%s\t%#x\n", c.STOB, c.COB, c.DeviceID)
	}
	return w.Flush()
}
