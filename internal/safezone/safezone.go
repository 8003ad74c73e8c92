// Package safezone implements the Safe-Zone Builder (component E): it
// formats the leading region of the MD device with a log-structured
// filesystem and populates it with innocuous content to be surrendered
// under duress.
package safezone

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/opaquefs/freedom/internal/exec"
	"github.com/opaquefs/freedom/internal/probe"
)

const (
	giB = 1 << 30
	miB = 1 << 20

	// SizeBytes is the formatted size of the safe-zone: 1 GiB - 1 MiB,
	// leaving the payload-offset window of spec §3 just past it.
	SizeBytes = giB - miB

	sectorSize = 512

	// minFreeForDownload gates the content download: below this, the
	// safe-zone stays formatted and empty.
	minFreeForDownload = 800 * miB
)

// Builder populates the safe-zone region of an MD device.
type Builder struct {
	ContentURL string // default: a Linux 3.19.8 tarball
}

// NewBuilder creates a Builder with the given content URL.
func NewBuilder(contentURL string) *Builder {
	return &Builder{ContentURL: contentURL}
}

// Populate formats the first SizeBytes of mdDevice with F2FS, mounts it
// at an ephemeral directory, downloads and extracts the configured
// content when there is room, then unmounts. A download failure is
// non-fatal: the safe-zone remains formatted and empty, and Populate
// still returns nil.
func (b *Builder) Populate(ctx context.Context, mdDevice string) error {
	sectors := SizeBytes / sectorSize
	if _, err := exec.Run(ctx, "mkfs", "-t", "f2fs", "-w", fmt.Sprintf("%d", sectorSize),
		mdDevice, fmt.Sprintf("%d", sectors)); err != nil {
		return err
	}
	log.WithField("device", mdDevice).Info("safe-zone formatted")

	mountPoint := filepath.Join(os.TempDir(), uuid.NewString())
	if err := os.MkdirAll(mountPoint, 0o700); err != nil {
		return fmt.Errorf("creating mount point: %w", err)
	}
	defer os.Remove(mountPoint)

	if _, err := exec.Run(ctx, "mount", mdDevice, mountPoint); err != nil {
		return err
	}
	defer func() {
		if _, err := exec.Run(ctx, "umount", mountPoint); err != nil {
			log.WithError(err).WithField("mount_point", mountPoint).Warn("failed to unmount safe-zone")
		}
	}()

	vfs, err := probe.StatvfsAt(mountPoint)
	if err != nil {
		log.WithError(err).Warn("could not check safe-zone free space, skipping content download")
		return nil
	}
	if vfs.Free() < minFreeForDownload {
		log.Info("safe-zone too small for content, leaving it empty")
		return nil
	}

	b.downloadContent(ctx, mountPoint)
	return nil
}

// downloadContent fetches and extracts the safe-zone content. Errors are
// logged, not returned: per spec §4.E this is the one permitted partial
// outcome.
func (b *Builder) downloadContent(ctx context.Context, mountPoint string) {
	archivePath := filepath.Join(mountPoint, "safezone-content.tar")

	if _, err := exec.Run(ctx, "curl", "-fsSL", "-o", archivePath, b.ContentURL); err != nil {
		log.WithError(err).Warn("safe-zone content download failed, leaving safe-zone empty")
		return
	}
	defer os.Remove(archivePath)

	if _, err := exec.Run(ctx, "tar", "-x", "-f", archivePath, "-C", mountPoint); err != nil {
		log.WithError(err).Warn("safe-zone content extraction failed, leaving safe-zone empty")
		return
	}

	log.WithField("mount_point", mountPoint).Info("safe-zone populated with content")
}
