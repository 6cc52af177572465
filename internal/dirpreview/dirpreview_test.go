package dirpreview

import (
	"encoding/binary"
	"testing"
)

// indexEntry builds one resident $INDEX_ROOT index entry embedding a
// minimal $FILE_NAME key for name.
func indexEntry(name string, last bool) []byte {
	u16 := make([]byte, len(name)*2)
	for i, r := range name {
		binary.LittleEndian.PutUint16(u16[i*2:], uint16(r))
	}
	key := make([]byte, 66+len(u16))
	key[64] = byte(len(name))
	copy(key[66:], u16)

	entryLen := 16 + len(key)
	entry := make([]byte, entryLen)
	binary.LittleEndian.PutUint16(entry[10:12], uint16(len(key))) // key length
	binary.LittleEndian.PutUint16(entry[8:10], uint16(entryLen))  // entry length
	if last {
		binary.LittleEndian.PutUint16(entry[12:14], 0x0002)
	}
	copy(entry[16:], key)
	return entry
}

func buildIndexRootAttr(entries ...[]byte) []byte {
	var body []byte
	for _, e := range entries {
		body = append(body, e...)
	}
	// terminator entry (flags bit 0x0002 set, zero key length)
	term := make([]byte, 16)
	binary.LittleEndian.PutUint16(term[8:10], 16)
	binary.LittleEndian.PutUint16(term[12:14], 0x0002)
	body = append(body, term...)

	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], 16)               // offset to first entry
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(body))) // total size

	value := append(append([]byte{}, header...), body...)
	value = append(make([]byte, 16), value...) // index-root's own 16-byte preamble

	attrHeader := make([]byte, 24+len(value))
	binary.LittleEndian.PutUint32(attrHeader[0:4], 0x90)
	binary.LittleEndian.PutUint32(attrHeader[16:20], uint32(len(value)))
	binary.LittleEndian.PutUint16(attrHeader[20:22], 24)
	copy(attrHeader[24:], value)
	binary.LittleEndian.PutUint32(attrHeader[4:8], uint32(len(attrHeader)))
	return attrHeader
}

func buildRootRecord(attr []byte) []byte {
	rec := make([]byte, 1024)
	copy(rec[0:4], "FILE")
	binary.LittleEndian.PutUint16(rec[20:22], 56)
	copy(rec[56:], attr)
	binary.LittleEndian.PutUint32(rec[56+len(attr):], 0xFFFFFFFF)
	return rec
}

type fakeDisk struct{ data []byte }

func (f *fakeDisk) ReadAt(buf []byte, off int64) error {
	copy(buf, f.data[off:])
	return nil
}
func (f *fakeDisk) SectorSize() uint32 { return 512 }

func TestListDirectChildren(t *testing.T) {
	attr := buildIndexRootAttr(indexEntry("foo.txt", false), indexEntry("bar", false))
	record := buildRootRecord(attr)

	const mftRecordSize = 1024
	const mftLcn = 4
	const spc = 8
	const sectorSize = 512
	mftOffset := int64(mftLcn) * spc * sectorSize
	recordOffset := mftOffset + rootMFTRecordIndex*mftRecordSize

	data := make([]byte, recordOffset+mftRecordSize)
	copy(data[recordOffset:], record)

	disk := &fakeDisk{data: data}
	names, err := List(disk, Params{MFTLcn: mftLcn, SectorsPerCluster: spc, MFTRecordSize: mftRecordSize})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "foo.txt" || names[1] != "bar" {
		t.Errorf("names = %v, want [foo.txt bar]", names)
	}
}
