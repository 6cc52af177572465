package mftscan

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

const sectorSize = 512

// fakeDisk is a flat in-memory byte slice addressed by absolute byte
// offset, standing in for internal/diskio.Disk in these tests.
type fakeDisk struct {
	data []byte
}

func (f *fakeDisk) ReadAt(buf []byte, off int64) error {
	if off < 0 || int(off) > len(f.data) {
		return io.ErrUnexpectedEOF
	}
	n := copy(buf, f.data[off:])
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return nil
}

func (f *fakeDisk) SectorSize() uint32 { return sectorSize }

type fakeUI struct {
	confirmed bool
}

func (f *fakeUI) Progress(uint64, uint64) {}
func (f *fakeUI) StopRequested() bool     { return false }
func (f *fakeUI) ConfirmEarlyAccept(EarlyAcceptGeometry) bool {
	return f.confirmed
}

func fileNameAttr(name string) []byte {
	u16 := make([]byte, len(name)*2)
	for i, r := range name {
		binary.LittleEndian.PutUint16(u16[i*2:], uint16(r))
	}
	value := make([]byte, 66+len(u16))
	value[64] = byte(len(name))
	copy(value[66:], u16)

	header := make([]byte, 24+len(value))
	binary.LittleEndian.PutUint32(header[0:4], 0x30)
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(value)))
	binary.LittleEndian.PutUint16(header[20:22], 24)
	copy(header[24:], value)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(header)))
	return header
}

func dataAttr(lcn int64) []byte {
	// single run: header byte 0x41 => 1 length byte, 4 offset bytes
	run := []byte{0x41, 0x05, byte(lcn), byte(lcn >> 8), byte(lcn >> 16), byte(lcn >> 24), 0x00}
	header := make([]byte, 34+len(run))
	binary.LittleEndian.PutUint32(header[0:4], 0x80)
	header[8] = 1
	binary.LittleEndian.PutUint16(header[32:34], 34)
	copy(header[34:], run)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(header)))
	return header
}

// buildMFTRecord writes a single 1024-byte record at dst with a FILE
// signature, a sane attrs-offset at 0x14, record size at 0x1C, and the
// given attribute bodies placed back to back starting at offset 56.
func buildMFTRecord(dst []byte, recordSize uint32, attrs ...[]byte) {
	copy(dst[0:4], "FILE")
	binary.LittleEndian.PutUint16(dst[0x14:], 56)
	binary.LittleEndian.PutUint16(dst[0x16:], 1) // IN_USE
	binary.LittleEndian.PutUint32(dst[0x1C:], recordSize)

	off := 56
	for _, a := range attrs {
		copy(dst[off:], a)
		off += len(a)
	}
	binary.LittleEndian.PutUint32(dst[off:], 0xFFFFFFFF)
}

// TestScanS1 builds a disk whose $MFT record sits at sector 32768 with
// mft_lcn=4096 and the mirror record (record index 1, following
// immediately after a 1024-byte record 0) reporting mftmirr_lcn=65536,
// matching spec.md's scenario S1 and expecting an early-accept with
// spc=8.
func TestScanS1(t *testing.T) {
	const mftSector = 32768
	const recordSize = 1024
	partSectors := uint64(mftSector * 2) // puts mftSector at partition midpoint, inside phase A's window

	data := make([]byte, partSectors*sectorSize)
	recOffset := mftSector * sectorSize

	buildMFTRecord(data[recOffset:recOffset+recordSize], recordSize,
		fileNameAttr("$MFT"), dataAttr(4096))
	buildMFTRecord(data[recOffset+recordSize:recOffset+2*recordSize], recordSize,
		dataAttr(65536))

	disk := &fakeDisk{data: data}
	part := Partition{Offset: 0, Size: partSectors * sectorSize}
	ui := &fakeUI{confirmed: true}

	result := Scan(disk, part, ui, zerolog.Nop())

	if result.EarlyAccept == nil {
		t.Fatalf("expected an early-accept geometry, got none (observations=%+v)", result.Observations)
	}
	if result.EarlyAccept.SectorsPerCluster != 8 {
		t.Errorf("SectorsPerCluster = %d, want 8", result.EarlyAccept.SectorsPerCluster)
	}
	if result.EarlyAccept.MFTLcn != 4096 || result.EarlyAccept.MFTMirrLcn != 65536 {
		t.Errorf("MFTLcn/MFTMirrLcn = %d/%d, want 4096/65536", result.EarlyAccept.MFTLcn, result.EarlyAccept.MFTMirrLcn)
	}
}

func TestAdmitRejectsBadSignature(t *testing.T) {
	rec := make([]byte, 64)
	copy(rec[0:4], "NOPE")
	if admit(rec, false) {
		t.Errorf("expected admit to reject a non-FILE signature")
	}
}

func TestAdmitRejectsUnalignedUSAOffset(t *testing.T) {
	rec := make([]byte, 64)
	copy(rec[0:4], "FILE")
	binary.LittleEndian.PutUint16(rec[0x14:], 41) // not a multiple of 8
	if admit(rec, false) {
		t.Errorf("expected admit to reject an unaligned attrs offset")
	}
}

func TestAdmitPhaseARequiresInUse(t *testing.T) {
	rec := make([]byte, 64)
	copy(rec[0:4], "FILE")
	binary.LittleEndian.PutUint16(rec[0x14:], 56)
	// flags left at 0: IN_USE bit unset
	if admit(rec, true) {
		t.Errorf("expected Phase A admit to require IN_USE")
	}
	if !admit(rec, false) {
		t.Errorf("expected Phase B admit to not require IN_USE")
	}
}

func TestScanObservationBufferCap(t *testing.T) {
	// 12 unresolvable $MFT-signature records scattered far apart; only
	// the first 10 should be retained.
	const recordSize = 1024
	partSectors := uint64(200000)
	data := make([]byte, partSectors*sectorSize)

	for i := 0; i < 12; i++ {
		sector := uint64(5000 + i*3000) // clear of the phase A mirror window
		off := sector * sectorSize
		buildMFTRecord(data[off:off+recordSize], recordSize, fileNameAttr("$MFT"), dataAttr(int64(3)))
		buildMFTRecord(data[off+recordSize:off+2*recordSize], recordSize, dataAttr(int64(7)))
	}

	disk := &fakeDisk{data: data}
	part := Partition{Offset: 0, Size: partSectors * sectorSize}
	ui := &fakeUI{confirmed: false}

	result := Scan(disk, part, ui, zerolog.Nop())
	if len(result.Observations) > maxObservations {
		t.Errorf("len(Observations) = %d, want <= %d", len(result.Observations), maxObservations)
	}
}
