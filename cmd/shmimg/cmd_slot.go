package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/internal/hash"
	"github.com/spf13/cobra"
)

var cmdWrite = &cobra.Command{
	Use:   "write NAME SLOT",
	Short: "Fill a slot with a constant byte or the contents of a file",
	Long: `Fill a slot with a constant byte or the contents of a file.

A file holding exactly one image is written to every image of the group;
a file holding a whole slot is copied as is.`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

var flagWrite struct {
	Value int
	File  string
}

var cmdRead = &cobra.Command{
	Use:   "read NAME SLOT",
	Short: "Dump a slot to a file or print its checksum",
	Args:  cobra.ExactArgs(2),
	RunE:  runRead,
}

var flagRead struct {
	Out string
}

func init() {
	addLayoutFlags(cmdWrite)
	addLayoutFlags(cmdRead)
	cmdWrite.Flags().IntVar(&flagWrite.Value, "value", 0, "Byte value to fill the slot with")
	cmdWrite.Flags().StringVar(&flagWrite.File, "file", "", "Raw image or slot file to write")
	cmdRead.Flags().StringVarP(&flagRead.Out, "out", "o", "", "Write the raw slot to this file")
	cmdMain.AddCommand(cmdWrite, cmdRead)
}

func parseSlot(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid slot %q: %w", s, err)
	}
	return i, nil
}

// slotImage turns raw bytes into an array the identity codec accepts.
func slotImage(layout shmimg.Layout, data []byte) (*shmimg.Array[byte], error) {
	switch len(data) {
	case layout.ImageByteSize():
		return shmimg.FromSlice(data, layout.ImageShape()...)
	case layout.SlotByteCapacity():
		return shmimg.FromSlice(data, layout.GroupedShape()...)
	default:
		return nil, fmt.Errorf("%d bytes is neither one image (%d) nor one slot (%d)",
			len(data), layout.ImageByteSize(), layout.SlotByteCapacity())
	}
}

func runWrite(cmd *cobra.Command, args []string) error {
	name := args[0]
	index, err := parseSlot(args[1])
	if err != nil {
		return err
	}
	layout, err := layoutFromConfig(app.v)
	if err != nil {
		return err
	}

	var data []byte
	if flagWrite.File != "" {
		if data, err = os.ReadFile(flagWrite.File); err != nil {
			return err
		}
	} else {
		if flagWrite.Value < 0 || flagWrite.Value > 255 {
			return fmt.Errorf("value %d out of byte range", flagWrite.Value)
		}
		data = make([]byte, layout.ImageByteSize())
		for i := range data {
			data[i] = byte(flagWrite.Value)
		}
	}

	img, err := slotImage(layout, data)
	if err != nil {
		return err
	}

	log := app.logger.WithSegment(name)
	return shmimg.With(name, layout, shmimg.Identity(shmimg.Single), func(s *shmimg.Store[byte]) error {
		err := s.Write(index, img)
		log.LogWrite(cmd.Context(), index, layout.SlotByteCapacity(), err)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote slot %d of %s (%s)\n",
			index, name, ibytes(layout.SlotByteCapacity()))
		return nil
	}, storeOptions(name)...)
}

func runRead(cmd *cobra.Command, args []string) error {
	name := args[0]
	index, err := parseSlot(args[1])
	if err != nil {
		return err
	}
	layout, err := layoutFromConfig(app.v)
	if err != nil {
		return err
	}

	log := app.logger.WithSegment(name)
	return shmimg.With(name, layout, shmimg.Identity(shmimg.Single), func(s *shmimg.Store[byte]) error {
		slot, err := s.Seek(index)
		log.LogRead(cmd.Context(), index, err)
		if err != nil {
			return err
		}

		if flagRead.Out != "" {
			if err := os.WriteFile(flagRead.Out, slot, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s to %s\n", ibytes(len(slot)), flagRead.Out)
			return nil
		}

		lo, hi := byte(255), byte(0)
		for _, b := range slot {
			lo, hi = min(lo, b), max(hi, b)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "slot %d: %s crc32c=%08x min=%d max=%d\n",
			index, ibytes(len(slot)), hash.CRC32C(slot), lo, hi)
		return nil
	}, storeOptions(name)...)
}
