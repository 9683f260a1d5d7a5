package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/shmimg"
	"github.com/spf13/cobra"
)

var cmdCreate = &cobra.Command{
	Use:   "create NAME",
	Short: "Provision a zero-filled segment sized for a layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var cmdUnlink = &cobra.Command{
	Use:   "unlink NAME",
	Short: "Remove a segment",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlink,
}

var cmdInspect = &cobra.Command{
	Use:   "inspect NAME",
	Short: "Check a segment's size against a layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	addLayoutFlags(cmdCreate)
	addLayoutFlags(cmdInspect)
	cmdMain.AddCommand(cmdCreate, cmdUnlink, cmdInspect)
}

func runCreate(cmd *cobra.Command, args []string) error {
	layout, err := layoutFromConfig(app.v)
	if err != nil {
		return err
	}
	if err := shmimg.Provision(args[0], layout, storeOptions(args[0])...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s: %s (%s)\n",
		args[0], layout, ibytes(layout.SegmentByteSize()))
	return nil
}

func runUnlink(cmd *cobra.Command, args []string) error {
	if err := shmimg.Unlink(args[0], storeOptions(args[0])...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "unlinked %s\n", args[0])
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	name := args[0]
	layout, err := layoutFromConfig(app.v)
	if err != nil {
		return err
	}

	size, err := shmimg.SegmentSize(name, storeOptions(name)...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "segment:    %s\n", name)
	fmt.Fprintf(out, "size:       %s (%s bytes)\n", humanize.IBytes(uint64(size)), humanize.Comma(size))
	fmt.Fprintf(out, "layout:     %s\n", layout)
	fmt.Fprintf(out, "slots:      %d x %s\n", layout.GroupCount, ibytes(layout.SlotByteCapacity()))
	fmt.Fprintf(out, "images:     %d\n", layout.NumImages())

	// Attaching runs the same validation as any other consumer.
	s, err := shmimg.Open(name, layout, shmimg.Identity(shmimg.Batch), storeOptions(name)...)
	if err != nil {
		var sme *shmimg.SizeMismatchError
		if errors.As(err, &sme) {
			fmt.Fprintf(out, "status:     size mismatch, layout needs %s bytes\n", humanize.Comma(int64(sme.Expected)))
		}
		return err
	}
	fmt.Fprintln(out, "status:     ok")
	return s.Finalize()
}
