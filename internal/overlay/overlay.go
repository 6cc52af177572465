// Package overlay implements the scoped read-redirect spec.md's design
// notes ask for in place of the original's global redirect table: a
// disk wrapper that serves a speculative boot sector out of memory
// while every other read passes through unchanged, so the directory
// lister can preview a composed sector without it ever touching disk.
package overlay

// Disk is the minimal disk surface the overlay wraps; it matches
// internal/diskio.Disk and internal/mftscan.Disk's read side.
type Disk interface {
	ReadAt(buf []byte, off int64) error
	SectorSize() uint32
}

// Overlay wraps a Disk and redirects reads that fall within [Offset,
// Offset+len(Bytes)) to Bytes instead of the underlying disk. It is
// built, used for a single List invocation, and discarded - there is
// no global mutable state to leak across calls.
type Overlay struct {
	disk   Disk
	offset int64
	bytes  []byte
}

// New scopes an overlay to a single region: typically the partition's
// boot sector, so previews see the speculative new sector instead of
// whatever (or nothing) is actually on disk.
func New(disk Disk, offset int64, bytes []byte) *Overlay {
	return &Overlay{disk: disk, offset: offset, bytes: bytes}
}

// ReadAt serves bytes from the overlay region where it overlaps buf's
// request, and falls through to the underlying disk for everything
// else - including a read that only partially overlaps the overlay
// region, ensuring partial reads never expose uninitialized memory.
func (o *Overlay) ReadAt(buf []byte, off int64) error {
	if err := o.disk.ReadAt(buf, off); err != nil {
		return err
	}
	end := off + int64(len(buf))
	ovEnd := o.offset + int64(len(o.bytes))
	if end <= o.offset || off >= ovEnd {
		return nil
	}

	lo := off
	if lo < o.offset {
		lo = o.offset
	}
	hi := end
	if hi > ovEnd {
		hi = ovEnd
	}
	copy(buf[lo-off:hi-off], o.bytes[lo-o.offset:hi-o.offset])
	return nil
}

func (o *Overlay) SectorSize() uint32 { return o.disk.SectorSize() }

// Scoped runs fn with an overlay installed over disk at offset, and
// guarantees the overlay is discarded on every exit path from fn -
// including a panic - matching the applier's "removal on every exit
// path from the List action" guarantee in spec.md §5.
func Scoped(disk Disk, offset int64, bytes []byte, fn func(Disk)) {
	ov := New(disk, offset, bytes)
	defer func() { ov = nil }()
	fn(ov)
}
