package mftattr

import (
	"encoding/binary"
	"testing"
)

// buildRecord assembles a minimal fixed-up MFT record with the given
// attributes already serialized, mirroring the builder style of
// shubham030-recovery/internal/ntfs_test.go's createNTFSImage.
func buildRecord(attrsOffset uint16, body []byte) []byte {
	rec := make([]byte, 1024)
	copy(rec[0:4], "FILE")
	binary.LittleEndian.PutUint16(rec[20:22], attrsOffset)
	copy(rec[attrsOffset:], body)
	binary.LittleEndian.PutUint32(rec[int(attrsOffset)+len(body):], TypeEnd)
	return rec
}

func fileNameAttr(name string, parentRef uint64) []byte {
	u16 := make([]byte, len(name)*2)
	for i, r := range name {
		binary.LittleEndian.PutUint16(u16[i*2:], uint16(r))
	}
	value := make([]byte, 66+len(u16))
	binary.LittleEndian.PutUint64(value[0:8], parentRef)
	value[64] = byte(len(name))
	value[65] = 1 // POSIX namespace
	copy(value[66:], u16)

	header := make([]byte, 24+len(value))
	binary.LittleEndian.PutUint32(header[0:4], TypeFileName)
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(value)))
	binary.LittleEndian.PutUint16(header[20:22], 24)
	copy(header[24:], value)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(header)))
	return header
}

func indexRootAttr(bytesPerIndexRecord uint32) []byte {
	value := make([]byte, 16)
	binary.LittleEndian.PutUint32(value[8:12], bytesPerIndexRecord)

	header := make([]byte, 24+len(value))
	binary.LittleEndian.PutUint32(header[0:4], TypeIndexRoot)
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(value)))
	binary.LittleEndian.PutUint16(header[20:22], 24)
	copy(header[24:], value)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(header)))
	return header
}

func nonResidentDataAttr(lcn int64) []byte {
	// single run: header byte 0x11 => 1 length byte, 1 offset byte
	run := []byte{0x11, 0x05, byte(lcn), 0x00}
	header := make([]byte, 34+len(run))
	binary.LittleEndian.PutUint32(header[0:4], TypeData)
	header[8] = 1 // non-resident
	binary.LittleEndian.PutUint16(header[32:34], 34)
	copy(header[34:], run)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(header)))
	return header
}

func TestFileNameEquals(t *testing.T) {
	rec := buildRecord(56, fileNameAttr("$MFT", 5))
	if !FileNameEquals(rec, "$MFT") {
		t.Errorf("expected FileNameEquals to match $MFT")
	}
	if FileNameEquals(rec, "$MFTMirr") {
		t.Errorf("did not expect FileNameEquals to match $MFTMirr")
	}
}

func TestParentRef(t *testing.T) {
	rec := buildRecord(56, fileNameAttr("docs", 42))
	ref, ok := ParentRef(rec)
	if !ok || ref != 42 {
		t.Errorf("ParentRef = %d, %v, want 42, true", ref, ok)
	}
}

func TestIndexRecordSize(t *testing.T) {
	rec := buildRecord(56, indexRootAttr(4096))
	if got := IndexRecordSize(rec); got != 4096 {
		t.Errorf("IndexRecordSize = %d, want 4096", got)
	}
}

func TestDataFirstLCN(t *testing.T) {
	rec := buildRecord(56, nonResidentDataAttr(5))
	if got := DataFirstLCN(rec); got != 5 {
		t.Errorf("DataFirstLCN = %d, want 5", got)
	}
}

func TestAbsentAttributeReturnsZero(t *testing.T) {
	rec := buildRecord(56, fileNameAttr("foo", 1))
	if got := IndexRecordSize(rec); got != 0 {
		t.Errorf("IndexRecordSize on record without $INDEX_ROOT = %d, want 0", got)
	}
	if got := DataFirstLCN(rec); got != 0 {
		t.Errorf("DataFirstLCN on record without $DATA = %d, want 0", got)
	}
}
