//go:build !linux

package diskio

import "os"

// deviceGeometry has no portable implementation outside Linux; callers
// fall back to file-size probing and a legacy CHS guess.
func deviceGeometry(f *os.File) (size int64, sectorSize uint32, chs CHS, ok bool) {
	return 0, 0, CHS{}, false
}
