// Package diskio is the block-device collaborator the rebuild engine
// consumes: read/write/sync at arbitrary byte offsets plus the sector
// size and CHS geometry a composed boot sector needs. It owns no
// partition-table knowledge and performs no filesystem parsing -
// that is the caller's job (spec's "partition table discovery upstream
// of this engine").
//
// Grounded on shubham030-recovery's internal/disk.Reader for the
// open/ReadAt/Size shape, extended with Write/Sync and CHS per
// ostafen-digler's internal/disk/stat.go ioctl probing.
package diskio

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DefaultSectorSize is used when a device's sector size cannot be
// determined (regular image files, non-Linux platforms).
const DefaultSectorSize = 512

// CHS is the cylinder/head/sectors-per-track geometry of a disk, used
// to populate the boot sector's secs_track/heads fields.
type CHS struct {
	Cylinders uint32
	Heads     uint32
	Sectors   uint32
}

// Partition describes the byte range the rebuild engine operates on.
// It is externally owned; the engine reads Offset/Size and may propose
// a corrected Offset, but never mutates a Partition without caller
// consent (see geometry.Resolve's offset-correction output).
type Partition struct {
	Offset uint64
	Size   uint64
}

// Disk is the external block-device collaborator. Implementations must
// be safe to use with no assumption of exclusive access beyond the
// duration of a single call.
type Disk interface {
	ReadAt(buf []byte, off int64) error
	WriteAt(buf []byte, off int64) error
	Sync() error
	SectorSize() uint32
	Size() int64
	CHS() CHS
	Description() string
}

// FileDisk implements Disk over a regular file or a block device node.
type FileDisk struct {
	file       *os.File
	path       string
	size       int64
	sectorSize uint32
	chs        CHS
}

// Open opens path for read/write. If read-write access is refused (a
// read-only image, insufficient privilege) it falls back to read-only;
// WriteAt on a read-only FileDisk returns an error rather than
// panicking, matching spec's "transient write error: report, continue"
// policy at the applier layer.
func Open(path string) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		f, err = os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "diskio: open %s", path)
		}
	}

	d := &FileDisk{file: f, path: path, sectorSize: DefaultSectorSize}
	if err := d.probe(); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "diskio: probe %s", path)
	}
	return d, nil
}

func (d *FileDisk) probe() error {
	st, err := d.file.Stat()
	if err != nil {
		return err
	}

	if st.Mode()&os.ModeDevice != 0 {
		if sz, ss, chs, ok := deviceGeometry(d.file); ok {
			d.size = sz
			d.sectorSize = ss
			d.chs = chs
			return nil
		}
	}

	size := st.Size()
	if size == 0 {
		size, err = d.file.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		if _, err := d.file.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}
	d.size = size
	d.chs = legacyCHS(size, int64(d.sectorSize))
	return nil
}

func (d *FileDisk) Close() error { return d.file.Close() }

func (d *FileDisk) ReadAt(buf []byte, off int64) error {
	n, err := d.file.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return err
	}
	return nil
}

func (d *FileDisk) WriteAt(buf []byte, off int64) error {
	if _, err := d.file.WriteAt(buf, off); err != nil {
		return errors.Wrapf(err, "diskio: write %d bytes at %d", len(buf), off)
	}
	return nil
}

func (d *FileDisk) Sync() error {
	return d.file.Sync()
}

func (d *FileDisk) SectorSize() uint32 { return d.sectorSize }
func (d *FileDisk) Size() int64        { return d.size }
func (d *FileDisk) CHS() CHS           { return d.chs }

func (d *FileDisk) Description() string {
	return fmt.Sprintf("%s (%d bytes, %d bytes/sector)", d.path, d.size, d.sectorSize)
}

// legacyCHS fabricates a plausible CHS geometry for regular image files
// the way old BIOS/INT13 translation schemes did: 63 sectors/track,
// 255 heads, cylinders derived from the total size. NTFS itself never
// uses CHS addressing, but the boot sector's secs_track/heads fields
// are still populated for compatibility with tools that read them.
func legacyCHS(size, sectorSize int64) CHS {
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	const sectorsPerTrack = 63
	const heads = 255
	totalSectors := uint64(size) / uint64(sectorSize)
	cylinders := totalSectors / (sectorsPerTrack * heads)
	return CHS{Cylinders: uint32(cylinders), Heads: heads, Sectors: sectorsPerTrack}
}
