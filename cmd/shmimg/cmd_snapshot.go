package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/shmimg"
	"github.com/hupe1980/shmimg/internal/conv"
	"github.com/hupe1980/shmimg/resource"
	"github.com/hupe1980/shmimg/snapshot"
	"github.com/spf13/cobra"
)

var cmdSnapshot = &cobra.Command{
	Use:   "snapshot",
	Short: "Save and restore segment snapshots",
}

var cmdSnapshotSave = &cobra.Command{
	Use:   "save SEGMENT BLOB",
	Short: "Save every slot of a segment to a blob",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotSave,
}

var cmdSnapshotRestore = &cobra.Command{
	Use:   "restore SEGMENT BLOB",
	Short: "Restore a blob into a segment with the same layout",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotRestore,
}

var cmdSnapshotInspect = &cobra.Command{
	Use:   "inspect BLOB",
	Short: "Print the header of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotInspect,
}

var cmdSnapshotList = &cobra.Command{
	Use:   "list [PREFIX]",
	Short: "List snapshots in the store",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshotList,
}

func init() {
	addStoreFlags(cmdSnapshot)
	addLayoutFlags(cmdSnapshotSave)
	addLayoutFlags(cmdSnapshotRestore)

	for _, c := range []*cobra.Command{cmdSnapshotSave, cmdSnapshotRestore} {
		c.Flags().String("io-limit", "", "Throughput limit, e.g. 50MiB (per second)")
		c.Flags().String("memory-limit", "", "Buffer memory limit, e.g. 64MiB")
	}
	cmdSnapshotSave.Flags().String("compression", "none", "Block compression (none, lz4 or zstd)")

	cmdSnapshot.AddCommand(cmdSnapshotSave, cmdSnapshotRestore, cmdSnapshotInspect, cmdSnapshotList)
	cmdMain.AddCommand(cmdSnapshot)
}

func snapshotOptions() ([]snapshot.Option, error) {
	var cfg resource.Config
	for key, dst := range map[string]*int64{
		"io-limit":     &cfg.IOLimitBytesPerSec,
		"memory-limit": &cfg.MemoryLimitBytes,
	} {
		s := app.v.GetString(key)
		if s == "" {
			continue
		}
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", key, err)
		}
		limit, err := conv.Uint64ToInt(n)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", key, err)
		}
		*dst = int64(limit)
	}

	opts := []snapshot.Option{
		snapshot.WithLogger(app.logger),
		snapshot.WithController(resource.NewController(cfg)),
	}

	if app.v.IsSet("compression") {
		c, err := snapshot.ParseCompression(app.v.GetString("compression"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, snapshot.WithCompression(c))
	}
	return opts, nil
}

func printStats(cmd *cobra.Command, verb string, st snapshot.Stats) {
	rate := float64(st.RawBytes) / max(st.Duration.Seconds(), 1e-9)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d slots, %s raw, %s stored (%.1f%%) in %s, %s/s\n",
		verb, st.Slots,
		humanize.IBytes(uint64(st.RawBytes)), humanize.IBytes(uint64(st.StoredBytes)),
		100*st.Ratio(), st.Duration.Round(time.Millisecond), humanize.IBytes(uint64(rate)))
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	segment, blob := args[0], args[1]
	ctx := cmd.Context()

	layout, err := layoutFromConfig(app.v)
	if err != nil {
		return err
	}
	opts, err := snapshotOptions()
	if err != nil {
		return err
	}
	store, err := openBlobStore(ctx, app.v)
	if err != nil {
		return err
	}

	return shmimg.With(segment, layout, shmimg.Identity(shmimg.Batch), func(s *shmimg.Store[byte]) error {
		st, err := snapshot.Save(ctx, s, store, blob, opts...)
		if err != nil {
			return err
		}
		printStats(cmd, "saved", st)
		return nil
	}, storeOptions(segment)...)
}

func runSnapshotRestore(cmd *cobra.Command, args []string) error {
	segment, blob := args[0], args[1]
	ctx := cmd.Context()

	layout, err := layoutFromConfig(app.v)
	if err != nil {
		return err
	}
	opts, err := snapshotOptions()
	if err != nil {
		return err
	}
	store, err := openBlobStore(ctx, app.v)
	if err != nil {
		return err
	}

	return shmimg.With(segment, layout, shmimg.Identity(shmimg.Batch), func(s *shmimg.Store[byte]) error {
		st, err := snapshot.Restore(ctx, store, blob, s, opts...)
		if err != nil {
			return err
		}
		printStats(cmd, "restored", st)
		return nil
	}, storeOptions(segment)...)
}

func runSnapshotInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openBlobStore(ctx, app.v)
	if err != nil {
		return err
	}

	h, err := snapshot.Inspect(ctx, store, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "version:     %d\n", h.Version)
	fmt.Fprintf(out, "compression: %s\n", h.Compression)
	fmt.Fprintf(out, "layout:      %s\n", h.Layout)
	fmt.Fprintf(out, "raw size:    %s\n", ibytes(h.Layout.SegmentByteSize()))
	fmt.Fprintf(out, "flags:       --shape %d,%d,%d --channel-byte-width %d --group-size %d --group-count %d\n",
		h.Layout.Height, h.Layout.Width, h.Layout.Channels,
		h.Layout.ChannelByteWidth, h.Layout.GroupSize, h.Layout.GroupCount)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openBlobStore(ctx, app.v)
	if err != nil {
		return err
	}

	var prefix string
	if len(args) > 0 {
		prefix = args[0]
	}
	names, err := store.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}
