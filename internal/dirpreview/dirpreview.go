// Package dirpreview is a minimal concrete implementation of spec.md
// §4.7's "directory lister" collaborator: it lists the NTFS root
// directory's direct children from the resident $INDEX_ROOT attribute
// of MFT record 5, the conventional NTFS root. It deliberately does
// not descend into $INDEX_ALLOCATION B-tree nodes - that is file
// content/recovery territory spec.md's Non-goals exclude - so only
// children small enough to fit in the resident index root are listed.
package dirpreview

import (
	"encoding/binary"
	"fmt"
)

const rootMFTRecordIndex = 5

// Disk is the read surface this package needs; it is satisfied by
// both internal/diskio.Disk and an internal/overlay.Overlay wrapping
// one, which is the whole point - the overlay makes this package see
// a speculative boot sector without knowing it.
type Disk interface {
	ReadAt(buf []byte, off int64) error
	SectorSize() uint32
}

// Params is the subset of resolved geometry dirpreview needs to locate
// the MFT and compute a record's absolute byte offset.
type Params struct {
	PartitionOffset   int64
	MFTLcn            uint64
	SectorsPerCluster uint32
	MFTRecordSize     uint32
}

func (p Params) clusterBytes(sectorSize uint32) int64 {
	return int64(p.SectorsPerCluster) * int64(sectorSize)
}

// List reads the root directory's MFT record and returns the file
// names of its direct children as recorded in $INDEX_ROOT's resident
// index entries.
func List(disk Disk, p Params) ([]string, error) {
	sectorSize := disk.SectorSize()
	mftOffset := p.PartitionOffset + int64(p.MFTLcn)*p.clusterBytes(sectorSize)
	recordOffset := mftOffset + int64(rootMFTRecordIndex)*int64(p.MFTRecordSize)

	record := make([]byte, p.MFTRecordSize)
	if err := disk.ReadAt(record, recordOffset); err != nil {
		return nil, fmt.Errorf("dirpreview: reading root MFT record: %w", err)
	}

	return parseIndexRootNames(record), nil
}

// parseIndexRootNames walks the $INDEX_ROOT attribute's resident index
// entries, each one carrying an embedded $FILE_NAME attribute value
// for the child it names.
func parseIndexRootNames(record []byte) []string {
	indexRoot, ok := findIndexRoot(record)
	if !ok {
		return nil
	}
	// Standard index root layout: 16-byte header (attr type, collation
	// rule, index block size, clusters per index block + padding),
	// then a standard index-header (offset-to-first-entry at +0,
	// total size at +4) relative to +16.
	if len(indexRoot) < 16+16 {
		return nil
	}
	header := indexRoot[16:]
	firstEntryOff := binary.LittleEndian.Uint32(header[0:4])
	totalSize := binary.LittleEndian.Uint32(header[4:8])
	if int(totalSize) > len(header) {
		totalSize = uint32(len(header))
	}

	var names []string
	off := int(firstEntryOff)
	for off+16 <= int(totalSize) {
		entry := header[off:]
		entryLength := binary.LittleEndian.Uint16(entry[8:10])
		flags := binary.LittleEndian.Uint16(entry[12:14])
		const indexEntryLastMarker = 0x0002
		if flags&indexEntryLastMarker != 0 || entryLength == 0 {
			break
		}
		keyLength := binary.LittleEndian.Uint16(entry[10:12])
		if 16+int(keyLength) <= len(entry) {
			if name, ok := fileNameFromKey(entry[16 : 16+keyLength]); ok {
				names = append(names, name)
			}
		}
		off += int(entryLength)
	}
	return names
}

func findIndexRoot(record []byte) ([]byte, bool) {
	return locateAttribute(record, 0x90)
}

// locateAttribute duplicates the minimal attribute walk mftattr keeps
// unexported; dirpreview needs the raw resident value bytes of
// $INDEX_ROOT specifically, not just a single derived field.
func locateAttribute(record []byte, typeCode uint32) ([]byte, bool) {
	if len(record) < 24 {
		return nil, false
	}
	offset := int(binary.LittleEndian.Uint16(record[20:22]))
	for offset+16 < len(record) {
		typ := binary.LittleEndian.Uint32(record[offset:])
		if typ == 0xFFFFFFFF || typ == 0 {
			break
		}
		length := binary.LittleEndian.Uint32(record[offset+4:])
		if length == 0 || int(length) > len(record)-offset {
			break
		}
		if typ == typeCode && record[offset+8] == 0 { // resident only
			body := record[offset : offset+int(length)]
			if len(body) >= 24 {
				valLen := binary.LittleEndian.Uint32(body[16:20])
				valOff := binary.LittleEndian.Uint16(body[20:22])
				if int(valOff)+int(valLen) <= len(body) {
					return body[valOff : valOff+uint16(valLen)], true
				}
			}
		}
		offset += int(length)
	}
	return nil, false
}

func fileNameFromKey(key []byte) (string, bool) {
	if len(key) < 66 {
		return "", false
	}
	nameLen := key[64]
	if 66+int(nameLen)*2 > len(key) {
		return "", false
	}
	u16 := key[66 : 66+int(nameLen)*2]
	runes := make([]rune, len(u16)/2)
	for i := range runes {
		runes[i] = rune(binary.LittleEndian.Uint16(u16[i*2:]))
	}
	return string(runes), true
}
