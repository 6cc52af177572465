//go:build !linux

package fusepreview

import "fmt"

// Mount is unavailable outside Linux; bazil.org/fuse has no portable
// kernel-side counterpart this engine targets.
func Mount(mountpoint string, names []string) error {
	return fmt.Errorf("fusepreview: FUSE preview mount is only supported on linux")
}

// Unmount is unavailable outside Linux.
func Unmount(mountpoint string) error {
	return fmt.Errorf("fusepreview: FUSE preview mount is only supported on linux")
}
