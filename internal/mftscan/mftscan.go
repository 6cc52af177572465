// Package mftscan sweeps a partition for MFT-record signatures and
// harvests the (sector, mft_lcn, mftmirr_lcn) tuples the geometry
// resolver needs. Grounded on shubham030-recovery/internal/ntfs.go's
// ScanDeletedFiles sweep structure and readMFTRecord validation,
// retargeted from "find deleted files" to "find $MFT copies" per
// spec.md §4.3-4.4.
package mftscan

import (
	"github.com/rs/zerolog"
	"github.com/shubham/ntfsboot/internal/bitutil"
	"github.com/shubham/ntfsboot/internal/geometry"
	"github.com/shubham/ntfsboot/internal/mftattr"
)

// maxObservations is the observation buffer cap; spec.md §3 documents
// overflow as a silent drop, noted as a possible improvement in the
// design notes' ring-buffer suggestion (not adopted here).
const maxObservations = 10

// progressInterval is how often, in sectors, the scanner reports
// progress and checks for a requested stop.
const progressInterval = 65536

const mftReadSectors = 8 // 8 sectors = 4 KiB scratch buffer per spec.md §5

// Observation is spec.md §3's MftObservation entity.
type Observation struct {
	Sector     uint64
	MFTLcn     uint64
	MFTMirrLcn uint64
}

// Disk is the minimal read surface the scanner needs; internal/diskio.Disk
// satisfies it.
type Disk interface {
	ReadAt(buf []byte, off int64) error
	SectorSize() uint32
}

// Partition is the byte range the scanner sweeps within Disk.
type Partition struct {
	Offset uint64
	Size   uint64
}

// UI is the collaborator the scanner reports progress to and asks for
// early-accept confirmation and stop requests - the interactive/headless
// split spec.md's design notes describe lives entirely in the adapter
// that implements this interface, not in the scanner itself.
type UI interface {
	Progress(scannedSectors, totalSectors uint64)
	StopRequested() bool
	ConfirmEarlyAccept(g EarlyAcceptGeometry) bool
}

// EarlyAcceptGeometry is the fully-resolved candidate the scanner
// offers the UI before terminating early, per spec.md §4.3.
type EarlyAcceptGeometry struct {
	SectorsPerCluster uint32
	MFTLcn            uint64
	MFTMirrLcn        uint64
	MFTRecordSize     uint32
}

// Result is everything a scan run produced.
type Result struct {
	Observations []Observation
	EarlyAccept  *EarlyAcceptGeometry
}

// Scan runs Phase A (mirror-region sweep) then, unless Phase A ended
// early, Phase B (full ascending sweep), per spec.md §4.3's ordering
// policy.
func Scan(disk Disk, part Partition, ui UI, log zerolog.Logger) Result {
	sectorSize := uint64(disk.SectorSize())
	if sectorSize == 0 {
		sectorSize = 512
	}
	totalSectors := part.Size / sectorSize

	s := &scanner{disk: disk, part: part, sectorSize: sectorSize, ui: ui, log: log, totalSectors: totalSectors}

	mid := totalSectors / 2
	lo := uint64(1)
	if mid > 20 {
		lo = mid - 20
	}
	hi := mid + 20
	if hi > totalSectors {
		hi = totalSectors
	}

	log.Debug().Uint64("lo", lo).Uint64("hi", hi).Msg("phase A: mirror-region sweep")
	if s.sweep(lo, hi, true) {
		return s.result()
	}

	log.Debug().Uint64("total", totalSectors).Msg("phase B: full ascending sweep")
	s.sweep(1, totalSectors, false)
	return s.result()
}

type scanner struct {
	disk         Disk
	part         Partition
	sectorSize   uint64
	ui           UI
	log          zerolog.Logger
	totalSectors uint64

	observations []Observation
	earlyAccept  *EarlyAcceptGeometry
	scanned      uint64
}

func (s *scanner) result() Result {
	return Result{Observations: s.observations, EarlyAccept: s.earlyAccept}
}

// sweep scans sectors [lo, hi) in ascending order. requireInUse gates
// Phase A's extra admit criterion. Returns true if the sweep ended
// early (stop requested or early-accept confirmed).
func (s *scanner) sweep(lo, hi uint64, requireInUse bool) bool {
	buf := make([]byte, mftReadSectors*s.sectorSize)

	for sector := lo; sector < hi; sector++ {
		s.scanned++
		if s.scanned%progressInterval == 0 {
			s.ui.Progress(s.scanned, s.totalSectors)
			if s.ui.StopRequested() {
				return true
			}
		}

		if err := s.disk.ReadAt(buf, int64(s.part.Offset+sector*s.sectorSize)); err != nil {
			continue // transient read error: skip this sector silently
		}
		if !admit(buf, requireInUse) {
			continue
		}
		if !mftattr.FileNameEquals(buf, "$MFT") {
			continue
		}

		obs, proposal, code := readMFTInfo(s.disk, s.part, sector, s.sectorSize)
		switch code {
		case codeResolved:
			if s.ui.ConfirmEarlyAccept(*proposal) {
				s.earlyAccept = proposal
				return true
			}
			s.pushObservation(obs)
		case codeUnresolvedInformative:
			s.pushObservation(obs)
		}
		// codeReadError and codeZeroRecordSize are skipped silently.
	}
	return false
}

func (s *scanner) pushObservation(o Observation) {
	if len(s.observations) >= maxObservations {
		return // overflow silently drops later observations, per spec.md §3
	}
	s.observations = append(s.observations, o)
}

// admit implements the record-header criteria from spec.md §4.3: FILE
// signature and a sane attribute-list offset at 0x14 always, plus the
// IN_USE flag at 0x16 in Phase A only. The $MFT file-name check is
// made separately by sweep.
func admit(rec []byte, requireInUse bool) bool {
	if len(rec) < 24 || string(rec[0:4]) != "FILE" {
		return false
	}
	usaOff := bitutil.ReadLE16(rec, 0x14)
	if usaOff < 42 || usaOff%8 != 0 {
		return false
	}
	if requireInUse {
		flags := bitutil.ReadLE16(rec, 0x16)
		if flags&0x1 == 0 {
			return false
		}
	}
	return true
}

const (
	codeResolved              = 0
	codeReadError             = 1
	codeZeroRecordSize        = 2
	codeUnresolvedInformative = 3
)

// readMFTInfo is original_source's read_mft_info: read 8 sectors from
// mftSector, pull mft_lcn and mft_record_size out of record 0, advance
// by mft_record_size to reach record 1 ($MFTMirr) and pull its LCN,
// then try to resolve sectors-per-cluster by divisibility.
func readMFTInfo(disk Disk, part Partition, mftSector uint64, sectorSize uint64) (Observation, *EarlyAcceptGeometry, int) {
	buf := make([]byte, mftReadSectors*sectorSize)
	if err := disk.ReadAt(buf, int64(part.Offset+mftSector*sectorSize)); err != nil {
		return Observation{}, nil, codeReadError
	}

	mftLcn := mftattr.DataFirstLCN(buf)
	recordSize := bitutil.ReadLE32(buf, 0x1C)
	if recordSize == 0 {
		return Observation{}, nil, codeZeroRecordSize
	}

	var mftMirrLcn uint64
	if int(recordSize) < len(buf) {
		mftMirrLcn = mftattr.DataFirstLCN(buf[recordSize:])
	}

	obs := Observation{Sector: mftSector, MFTLcn: mftLcn, MFTMirrLcn: mftMirrLcn}

	if spc, ok := geometry.ResolveSingle(geometry.Observation(obs)); ok {
		return obs, &EarlyAcceptGeometry{
			SectorsPerCluster: uint32(spc),
			MFTLcn:            mftLcn,
			MFTMirrLcn:        mftMirrLcn,
			MFTRecordSize:     recordSize,
		}, codeResolved
	}
	return obs, nil, codeUnresolvedInformative
}
