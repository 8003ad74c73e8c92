// Package probe is the Filesystem Probe: pure-read operations against the
// host filesystem and kernel-exposed sysfs/procfs surfaces. Nothing in
// this package mutates state.
package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/opaquefs/freedom/internal/exec"
)

// Statvfs reports the fields of a statfs(2) call that the allocation
// arithmetic of spec §4.C needs.
type Statvfs struct {
	BlockSize  uint64 // optimal transfer block size
	BlocksFree uint64 // free blocks available to unprivileged users (Bavail)
}

// Free returns the number of bytes available to allocate: Bavail times
// the block size statfs(2) reports (f_bsize). The fragment size
// (f_frsize) is not consulted.
func (s Statvfs) Free() uint64 {
	return s.BlocksFree * s.BlockSize
}

// StatvfsAt statfs(2)s path and returns the fields needed for allocation
// arithmetic, grounded on the teacher's disk-space check
// (unix.Statfs/Statfs_t, stat.Bavail*stat.Bsize).
func StatvfsAt(path string) (Statvfs, error) {
	var raw unix.Statfs_t
	if err := unix.Statfs(path, &raw); err != nil {
		return Statvfs{}, err
	}
	return Statvfs{
		BlockSize:  uint64(raw.Bsize),
		BlocksFree: raw.Bavail,
	}, nil
}

// ListDir returns the names of entries directly under path, non-recursive.
func ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// ReadFile reads the entire contents of a sysfs/procfs or regular file.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// Magic classifies the leading bytes of a file via `file -b`. A freshly
// allocated, zero-filled backing page reports as generic "data"; an
// MD-member page reports its actual metadata signature.
func Magic(ctx context.Context, path string) (string, error) {
	result, err := exec.Run(ctx, "file", "-b", path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// IsGenericData reports whether a Magic() result indicates a virgin,
// zero-filled page rather than one carrying MD or LUKS metadata.
func IsGenericData(magic string) bool {
	return strings.EqualFold(strings.TrimSpace(magic), "data")
}

// MDSlaveBackingFile reads the backing file path of a loop device that is
// a slave of an MD array, via /sys/block/<md>/slaves/<member>/loop/backing_file.
func MDSlaveBackingFile(mdName, member string) (string, error) {
	path := filepath.Join("/sys/block", mdName, "slaves", member, "loop", "backing_file")
	data, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// MDSlaves lists the member device names of an assembled MD array by
// reading /sys/block/<md>/slaves.
func MDSlaves(mdName string) ([]string, error) {
	return ListDir(filepath.Join("/sys/block", mdName, "slaves"))
}

// HasMD reports whether /sys/block/<dev>/md exists, i.e. dev is an MD array.
func HasMD(dev string) bool {
	isDir, err := IsDir(filepath.Join("/sys/block", dev, "md"))
	return err == nil && isDir
}

// BlockDevices lists the device names exposed under /sys/block.
func BlockDevices() ([]string, error) {
	return ListDir("/sys/block")
}
