// Command ntfsboot is the headless/scripted CLI entry point for the
// NTFS boot sector rebuild engine, cobra-based per
// ostafen-digler/cmd/cmd/root.go and scan.go's command pattern.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shubham/ntfsboot/internal/apply"
	"github.com/shubham/ntfsboot/internal/config"
	"github.com/shubham/ntfsboot/internal/diskio"
	"github.com/shubham/ntfsboot/internal/fusepreview"
	"github.com/shubham/ntfsboot/internal/mftscan"
	"github.com/shubham/ntfsboot/internal/rebuild"
	"github.com/shubham/ntfsboot/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ntfsboot",
		Short:        "ntfsboot - rebuild a missing or corrupt NTFS boot sector",
		SilenceUsage: true,
		RunE:         run,
	}

	cmd.Flags().String("device", "", "path to the block device or disk image")
	cmd.Flags().Int64("partition-offset", 0, "byte offset of the partition within the device")
	cmd.Flags().Int64("partition-size", 0, "byte size of the partition (0 = rest of the device)")
	cmd.Flags().String("headless", "", "comma-separated apply command stream (dump,list,noconfirm,write)")
	cmd.Flags().String("geometry-file", "", "YAML file overriding scan-derived geometry")
	cmd.Flags().String("fuse-mountpoint", "", "mount the recovered root directory read-only at this path (linux only) until interrupted")
	cmd.Flags().String("log-level", "info", "zerolog level (debug, info, warn, error)")
	cmd.MarkFlagRequired("device")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	device, _ := cmd.Flags().GetString("device")
	partOffset, _ := cmd.Flags().GetInt64("partition-offset")
	partSize, _ := cmd.Flags().GetInt64("partition-size")
	headless, _ := cmd.Flags().GetString("headless")
	geometryFile, _ := cmd.Flags().GetString("geometry-file")
	fuseMountpoint, _ := cmd.Flags().GetString("fuse-mountpoint")
	logLevel, _ := cmd.Flags().GetString("log-level")

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
	log.Logger = logger

	disk, err := diskio.Open(device)
	if err != nil {
		return fmt.Errorf("opening %s: %w", device, err)
	}
	defer disk.Close()

	if partSize == 0 {
		partSize = disk.Size() - partOffset
	}

	var override *rebuild.Override
	if geometryFile != "" {
		override, err = config.LoadGeometryOverride(geometryFile)
		if err != nil {
			return err
		}
	}

	cfg := rebuild.Config{
		Disk:      disk,
		Partition: mftscan.Partition{Offset: uint64(partOffset), Size: uint64(partSize)},
		UI:        consoleUI{log: logger},
		Headless:  headless,
		Override:  override,
		Log:       logger,
	}

	result := rebuild.RebuildNTFSBoot(cfg)
	if result.Applier == nil {
		return nil
	}

	if fuseMountpoint != "" {
		if err := serveFusePreview(result.Applier, fuseMountpoint, logger); err != nil {
			return err
		}
	}

	if headless != "" {
		return nil // RebuildNTFSBoot already ran the headless command stream
	}

	p := tea.NewProgram(tui.New(result.Applier))
	_, err = p.Run()
	return err
}

// serveFusePreview mounts the recovered root directory read-only at
// mountpoint and blocks until a termination signal arrives, then
// unmounts, mirroring ostafen-digler/internal/fuse's mount-then-wait-
// for-signal pattern.
func serveFusePreview(a *apply.Applier, mountpoint string, logger zerolog.Logger) error {
	names, err := a.List()
	if err != nil {
		return fmt.Errorf("listing root directory for fuse preview: %w", err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- fusepreview.Mount(mountpoint, names)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	logger.Info().Str("mountpoint", mountpoint).Msg("serving recovered root directory over fuse; ctrl+c to unmount")

	select {
	case sig := <-sigc:
		logger.Info().Stringer("signal", sig).Msg("unmounting fuse preview")
		if err := fusepreview.Unmount(mountpoint); err != nil {
			return fmt.Errorf("unmounting %s: %w", mountpoint, err)
		}
		return <-errc
	case err := <-errc:
		return err
	}
}

// consoleUI is the default mftscan.UI adapter for the headless CLI: it
// logs progress, never stops early, and accepts the first
// fully-resolved geometry the scanner offers, since the headless path
// has no live operator to ask.
type consoleUI struct {
	log zerolog.Logger
}

func (c consoleUI) Progress(scanned, total uint64) {
	c.log.Debug().Uint64("scanned", scanned).Uint64("total", total).Msg("scanning")
}

func (c consoleUI) StopRequested() bool { return false }

func (c consoleUI) ConfirmEarlyAccept(g mftscan.EarlyAcceptGeometry) bool {
	c.log.Info().
		Uint32("sectors_per_cluster", g.SectorsPerCluster).
		Uint64("mft_lcn", g.MFTLcn).
		Uint64("mftmirr_lcn", g.MFTMirrLcn).
		Msg("accepting first fully-resolved geometry")
	return true
}
