// Package rebuild wires the scanner, resolver, composer and applier
// into spec.md §4.7's top-level orchestrator, rebuild_ntfs_boot: a
// two-phase scan feeding geometry resolution, a single boot-sector
// composition, and a single apply step.
package rebuild

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shubham/ntfsboot/internal/apply"
	"github.com/shubham/ntfsboot/internal/bootsector"
	"github.com/shubham/ntfsboot/internal/dirpreview"
	"github.com/shubham/ntfsboot/internal/diskio"
	"github.com/shubham/ntfsboot/internal/geometry"
	"github.com/shubham/ntfsboot/internal/mftattr"
	"github.com/shubham/ntfsboot/internal/mftscan"
	"github.com/shubham/ntfsboot/internal/overlay"
)

// Exit codes per spec.md §6.
const (
	ExitNormal            = 0 // geometry found (or accepted user-abort)
	ExitFatalComposerRead = 1
)

const defaultMFTRecordSize = 1024
const defaultIndexBlockSize = 4096
const rootMFTRecordIndex = 5

// Override lets a caller supply operator-known geometry instead of
// trusting the scan, the headless equivalent of original_source's
// expert-mode ask_number prompts (SPEC_FULL's "expert-mode manual
// override" supplemented feature). A zero-value field means "not
// overridden, use the scan/resolve result".
type Override struct {
	SectorsPerCluster uint32
	MFTLcn            uint64
	MFTMirrLcn        uint64
	MFTRecordSize     uint32
}

func (o *Override) applied() bool {
	return o != nil && o.SectorsPerCluster != 0
}

// Config bundles everything one rebuild invocation needs.
type Config struct {
	Disk      diskio.Disk
	Partition mftscan.Partition
	UI        mftscan.UI
	Lister    apply.DirLister
	Headless  string // non-empty runs the apply step headlessly; the Applier is still returned
	Override  *Override
	Log       zerolog.Logger
}

// Result is what one rebuild run produced: the orchestrator's exit
// code, the resolved geometry (zero value if unresolved), and - when
// geometry was found - an Applier ready to run headlessly or be driven
// by an interactive adapter (internal/tui).
type Result struct {
	ExitCode int
	Geometry bootsector.Geometry
	Applier  *apply.Applier
}

// RebuildNTFSBoot implements the orchestrator. When it returns with
// ExitNormal and a nil Applier, no geometry could be resolved; the
// caller should treat that the same as a user abort (spec.md §7: log
// and return with no write).
func RebuildNTFSBoot(cfg Config) Result {
	g, ok := resolveGeometry(cfg)
	if !ok {
		cfg.Log.Warn().Msg("Failed to rebuild NTFS boot sector")
		return Result{ExitCode: ExitNormal}
	}

	indexBlockSize, err := resolveIndexBlockSize(cfg, g)
	if err != nil {
		cfg.Log.Error().Err(err).Msg("could not read root MFT record for index_block_size")
		return Result{ExitCode: ExitFatalComposerRead}
	}

	geom := bootsector.Geometry{
		SectorsPerCluster: g.SectorsPerCluster,
		MFTLcn:            g.MFTLcn,
		MFTMirrLcn:        g.MFTMirrLcn,
		MFTRecordSize:     g.MFTRecordSize,
		IndexBlockSize:    indexBlockSize,
	}

	sectorSize := cfg.Disk.SectorSize()
	original := make([]byte, bootsector.Size)
	if err := cfg.Disk.ReadAt(original, int64(cfg.Partition.Offset)); err != nil {
		cfg.Log.Debug().Err(err).Msg("original boot sector unreadable, treating as zero-filled")
		original = make([]byte, bootsector.Size)
	}

	chs := cfg.Disk.CHS()
	composed := bootsector.Compose(geom, bootsector.Params{
		SectorSize:     sectorSize,
		CHS:            bootsector.CHS{Heads: chs.Heads, Sectors: chs.Sectors},
		PartitionOff:   cfg.Partition.Offset,
		PartitionSize:  cfg.Partition.Size,
		OriginalSector: original,
	})

	lister := cfg.Lister
	if lister == nil {
		lister = func(disk overlay.Disk) ([]string, error) {
			return dirpreview.List(disk, dirpreview.Params{
				PartitionOffset:   int64(cfg.Partition.Offset),
				MFTLcn:            geom.MFTLcn,
				SectorsPerCluster: geom.SectorsPerCluster,
				MFTRecordSize:     geom.MFTRecordSize,
			})
		}
	}

	a := &apply.Applier{
		Disk:            cfg.Disk,
		PartitionOffset: int64(cfg.Partition.Offset),
		PartitionSize:   int64(cfg.Partition.Size),
		Composed:        composed,
		Log:             cfg.Log,
		Lister:          lister,
	}

	if cfg.Headless != "" {
		a.RunHeadless(cfg.Headless)
	}

	return Result{ExitCode: ExitNormal, Geometry: geom, Applier: a}
}

// resolvedGeometry is the internal shape used before the index-block
// size fallback is folded in.
type resolvedGeometry struct {
	SectorsPerCluster uint32
	MFTLcn            uint64
	MFTMirrLcn        uint64
	MFTRecordSize     uint32
}

func resolveGeometry(cfg Config) (resolvedGeometry, bool) {
	if cfg.Override.applied() {
		recSize := cfg.Override.MFTRecordSize
		if recSize == 0 {
			recSize = defaultMFTRecordSize
		}
		return resolvedGeometry{
			SectorsPerCluster: cfg.Override.SectorsPerCluster,
			MFTLcn:            cfg.Override.MFTLcn,
			MFTMirrLcn:        cfg.Override.MFTMirrLcn,
			MFTRecordSize:     recSize,
		}, true
	}

	scanResult := mftscan.Scan(cfg.Disk, cfg.Partition, cfg.UI, cfg.Log)
	if scanResult.EarlyAccept != nil {
		ea := scanResult.EarlyAccept
		return resolvedGeometry{
			SectorsPerCluster: ea.SectorsPerCluster,
			MFTLcn:            ea.MFTLcn,
			MFTMirrLcn:        ea.MFTMirrLcn,
			MFTRecordSize:     ea.MFTRecordSize,
		}, true
	}

	obs := make([]geometry.Observation, len(scanResult.Observations))
	for i, o := range scanResult.Observations {
		obs[i] = geometry.Observation(o)
	}
	pairResults := geometry.Resolve(obs)
	if len(pairResults) == 0 {
		return resolvedGeometry{}, false
	}

	best := pairResults[0]
	correctedOffset := best.CorrectedOffset(int64(cfg.Partition.Offset), cfg.Disk.SectorSize())
	cfg.Log.Info().
		Uint64("sectors_per_cluster", best.SectorsPerCluster).
		Int64("potential_partition_offset", correctedOffset).
		Msg("pair-correlation resolved sectors-per-cluster")

	// mft_lcn/mftmirr_lcn are not independently recoverable from
	// pair-correlation alone; fall back to the first observation's
	// values, which is what produced this candidate pair.
	mftLcn, mftMirrLcn := uint64(0), uint64(0)
	if len(scanResult.Observations) > 0 {
		mftLcn = scanResult.Observations[0].MFTLcn
		mftMirrLcn = scanResult.Observations[0].MFTMirrLcn
	}

	return resolvedGeometry{
		SectorsPerCluster: uint32(best.SectorsPerCluster),
		MFTLcn:            mftLcn,
		MFTMirrLcn:        mftMirrLcn,
		MFTRecordSize:     defaultMFTRecordSize,
	}, true
}

// resolveIndexBlockSize implements SPEC_FULL's 4.4a: read
// bytes_per_index_record from the root directory's $INDEX_ROOT
// attribute (MFT record 5). A disk read failure on that record is
// fatal (original_source/src/ntfs_adv.c treats it the same way,
// display_message + return 1, surfaced here as ExitFatalComposerRead);
// only a successful read whose value is zero or not a multiple of the
// sector size falls back to the 4096 default.
func resolveIndexBlockSize(cfg Config, g resolvedGeometry) (uint32, error) {
	sectorSize := cfg.Disk.SectorSize()
	clusterBytes := uint64(g.SectorsPerCluster) * uint64(sectorSize)
	if clusterBytes == 0 {
		return defaultIndexBlockSize, nil
	}

	mftOffset := int64(cfg.Partition.Offset) + int64(g.MFTLcn)*int64(clusterBytes)
	recordSize := g.MFTRecordSize
	if recordSize == 0 {
		recordSize = defaultMFTRecordSize
	}
	recordOffset := mftOffset + rootMFTRecordIndex*int64(recordSize)

	record := make([]byte, recordSize)
	if err := cfg.Disk.ReadAt(record, recordOffset); err != nil {
		return 0, fmt.Errorf("reading root MFT record at %d: %w", recordOffset, err)
	}

	size := mftattr.IndexRecordSize(record)
	if size == 0 || uint64(size)%uint64(sectorSize) != 0 {
		return defaultIndexBlockSize, nil
	}
	return size, nil
}
