// Package bootsector composes and compares NTFS boot-sector images.
// The on-disk layout and field encodings are grounded on
// other_examples/19209324_t9t-gomft__bootsect-bootsect.go.go's Parse
// function, cross-checked against original_source/src/ntfs_adv.c's
// create_ntfs_boot_sector.
package bootsector

import (
	"encoding/binary"

	"github.com/shubham/ntfsboot/internal/bitutil"
)

// Size is the fixed length of an NTFS boot sector.
const Size = 512

// CHS is the disk's reported cylinder/head/sector geometry, used only
// for the two legacy fields at 0x18/0x1A.
type CHS struct {
	Heads   uint32
	Sectors uint32
}

// Geometry is the resolved set of NTFS parameters the composer turns
// into an image - spec.md §3's Geometry entity.
type Geometry struct {
	SectorsPerCluster uint32 // must be a power of two in [1,128]
	MFTLcn            uint64
	MFTMirrLcn        uint64
	MFTRecordSize     uint32 // default 1024 if unknown
	IndexBlockSize    uint32 // default 4096 if unknown
}

// Params bundles the remaining inputs Compose needs beyond Geometry:
// the disk's physical parameters and the partition's placement.
type Params struct {
	SectorSize     uint32
	CHS            CHS
	PartitionOff   uint64
	PartitionSize  uint64
	OriginalSector []byte // current on-disk sector; nil or short treated as zero-filled
}

// Compose produces a fresh Size-byte boot sector image per the field
// table in spec.md §4.6. Any bytes the table doesn't name are carried
// over from Params.OriginalSector (zero-filled if that read failed or
// was too short), matching "all other bytes carried over from the
// original read (or zero)".
func Compose(g Geometry, p Params) []byte {
	img := make([]byte, Size)
	copy(img, p.OriginalSector)

	copy(img[0x03:0x0B], "NTFS    ")

	bitutil.WriteLE16(img, 0x0B, uint16(p.SectorSize))

	clusterBytes := uint64(g.SectorsPerCluster) * uint64(p.SectorSize)
	img[0x0D] = byte(g.SectorsPerCluster)

	bitutil.WriteLE16(img, 0x0E, 0) // reserved_sectors
	img[0x10] = 0                   // number_of_fats
	bitutil.WriteLE16(img, 0x11, 0) // root_dir_entries
	bitutil.WriteLE16(img, 0x13, 0) // sectors16
	img[0x15] = 0xF8                // media_descriptor
	bitutil.WriteLE16(img, 0x16, 0) // sectors_per_fat

	bitutil.WriteLE16(img, 0x18, uint16(p.CHS.Sectors))
	bitutil.WriteLE16(img, 0x1A, uint16(p.CHS.Heads+1))
	bitutil.WriteLE32(img, 0x1C, uint32(p.PartitionOff/uint64(p.SectorSize)))
	bitutil.WriteLE32(img, 0x20, 0) // sectors32

	totalSectors := p.PartitionSize/uint64(p.SectorSize) - 1
	bitutil.WriteLE64(img, 0x28, totalSectors)

	bitutil.WriteLE64(img, 0x30, g.MFTLcn)
	bitutil.WriteLE64(img, 0x38, g.MFTMirrLcn)

	img[0x40] = encodeClusterCount(uint64(g.MFTRecordSize), clusterBytes)
	img[0x44] = encodeClusterCount(uint64(g.IndexBlockSize), clusterBytes)

	for i := 0x48; i < 0x50; i++ {
		img[i] = 0
	}
	bitutil.WriteLE32(img, 0x50, 0) // checksum, intentionally left zero

	bitutil.WriteLE16(img, 0x1FE, 0xAA55)

	return img
}

// encodeClusterCount implements the clusters_per_mft_record /
// clusters_per_index_record encoding: when size is at least one
// cluster, store size/clusterBytes; otherwise store
// -(ffs(size)-1) as a signed 8-bit quantity. Callers must not widen
// the negative result to an unsigned byte before storing - the cast
// to byte here preserves the two's-complement bit pattern spec.md's
// S4 expects (e.g. -10 -> 0xF6).
func encodeClusterCount(size, clusterBytes uint64) byte {
	if size >= clusterBytes && clusterBytes > 0 {
		return byte(size / clusterBytes)
	}
	shift := bitutil.FFS(uint32(size))
	return byte(int8(-(int32(shift) - 1)))
}

// ParsedGeometry extracts the geometry-relevant fields back out of a
// composed image, used by the round-trip property test (spec.md §8
// invariant 4).
type ParsedGeometry struct {
	SectorsPerCluster uint32
	MFTLcn            uint64
	MFTMirrLcn        uint64
}

func Parse(img []byte) ParsedGeometry {
	return ParsedGeometry{
		SectorsPerCluster: uint32(img[0x0D]),
		MFTLcn:            binary.LittleEndian.Uint64(img[0x30:0x38]),
		MFTMirrLcn:         binary.LittleEndian.Uint64(img[0x38:0x40]),
	}
}

// IsValidBootSignature reports whether img ends with the mandatory
// 0x55 0xAA boot signature bytes.
func IsValidBootSignature(img []byte) bool {
	return len(img) >= Size && img[0x1FE] == 0x55 && img[0x1FF] == 0xAA
}
