//go:build linux

package diskio

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	blkSSZGet    = 0x1268     // BLKSSZGET: get logical block size
	blkGetSize64 = 0x80081272 // BLKGETSIZE64: get device size in bytes
	hdioGetGeo   = 0x0301     // HDIO_GETGEO: get CHS geometry
)

// hdGeometry mirrors Linux's struct hd_geometry.
type hdGeometry struct {
	Heads     uint8
	Sectors   uint8
	Cylinders uint16
	Start     uint64 // actually unsigned long, padded to match layout on amd64
}

// deviceGeometry queries a Linux block device's sector size, total
// size and CHS geometry via ioctl, grounded on
// ostafen-digler/internal/disk/stat.go's GetSectorSizeLinux /
// GetDiskSizeLinux (BLKSSZGET / BLKGETSIZE64).
func deviceGeometry(f *os.File) (size int64, sectorSize uint32, chs CHS, ok bool) {
	fd := f.Fd()

	var ss uint32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, blkSSZGet, uintptr(unsafe.Pointer(&ss))); errno != 0 {
		ss = DefaultSectorSize
	}

	var sz int64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, blkGetSize64, uintptr(unsafe.Pointer(&sz))); errno != 0 {
		return 0, 0, CHS{}, false
	}

	var geo hdGeometry
	chsResult := CHS{Heads: 255, Sectors: 63}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, hdioGetGeo, uintptr(unsafe.Pointer(&geo))); errno == 0 {
		chsResult = CHS{
			Cylinders: uint32(geo.Cylinders),
			Heads:     uint32(geo.Heads),
			Sectors:   uint32(geo.Sectors),
		}
	}

	return sz, ss, chsResult, true
}
