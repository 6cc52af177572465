//go:build linux

// Package fusepreview mounts the root-directory preview
// (internal/dirpreview) as a real, read-only FUSE filesystem so the
// apply menu's List action can be driven with ls/cat instead of a text
// dump, grounded on ostafen-digler/internal/fuse's RecoverFS/Dir/File
// pattern. Entries carry no content - spec.md's Non-goals exclude file
// recovery - so every file previews as present but empty.
package fusepreview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

type rootFS struct {
	names []string
}

func (r *rootFS) Root() (fusefs.Node, error) {
	return &dir{names: r.names}, nil
}

type dir struct {
	names []string
}

func (d *dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	for _, n := range d.names {
		if n == name {
			return emptyFile{}, nil
		}
	}
	return nil, fuse.ENOENT
}

func (d *dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	sorted := append([]string{}, d.names...)
	sort.Strings(sorted)

	entries := make([]fuse.Dirent, len(sorted))
	for i, n := range sorted {
		entries[i] = fuse.Dirent{Inode: uint64(i + 1), Name: n, Type: fuse.DT_File}
	}
	return entries, nil
}

// emptyFile previews a listed name as a zero-byte regular file - its
// content is out of scope, only its presence in the listing is being
// exercised.
type emptyFile struct{}

func (emptyFile) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = 0
	return nil
}

// Mount serves names as a read-only root directory at mountpoint until
// the filesystem is unmounted (fuse.Unmount or a process signal), then
// returns. Callers typically run this in a goroutine and unmount it
// themselves once the List action's caller is done previewing.
func Mount(mountpoint string, names []string) error {
	if err := prepareMountpoint(mountpoint); err != nil {
		return err
	}

	c, err := fuse.Mount(mountpoint, fuse.ReadOnly(), fuse.FSName("ntfsboot-preview"))
	if err != nil {
		return fmt.Errorf("fusepreview: mount %s: %w", mountpoint, err)
	}
	defer c.Close()

	srv := fusefs.New(c, nil)
	return srv.Serve(&rootFS{names: names})
}

func prepareMountpoint(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return os.Mkdir(path, 0755)
	}
	if err != nil {
		return fmt.Errorf("fusepreview: stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fusepreview: %s is not a directory", path)
	}
	return nil
}

// Unmount requests bazil.org/fuse to unmount mountpoint.
func Unmount(mountpoint string) error {
	return fuse.Unmount(mountpoint)
}
