// Package mapper implements the PDE Mapper (component H): it opens and
// closes the dm-crypt mapping for a chosen (header, key, keyfile-offset)
// tuple, and optionally formats the mapped device on first use.
package mapper

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/opaquefs/freedom/internal/exec"
	"github.com/opaquefs/freedom/internal/pdeerr"
)

// Mapper owns one named dm-crypt mapping over an MD device.
type Mapper struct {
	MDDevice string // e.g. /dev/md/freedom
	Name     string // dm-crypt mapper name, e.g. "freedom"
	KeySize  uint64 // bytes
}

// NewMapper creates a Mapper for the named mapping over mdDevice.
func NewMapper(mdDevice, name string, keySize uint64) *Mapper {
	return &Mapper{MDDevice: mdDevice, Name: name, KeySize: keySize}
}

// Open validates that both the header and key files exist, then opens
// the dm-crypt mapping for the (header, key, keyfileOffset) tuple. A
// rejected tuple is reported as WrongTuple, never as a bare ToolFailure.
// When bless is true, a fresh device is formatted ext4 immediately
// after opening, for first use.
func (m *Mapper) Open(ctx context.Context, headerPath, keyPath string, keyfileOffset uint64, bless bool) error {
	if _, err := os.Stat(headerPath); err != nil {
		return &pdeerr.NotFound{Path: headerPath}
	}
	if _, err := os.Stat(keyPath); err != nil {
		return &pdeerr.NotFound{Path: keyPath}
	}

	_, err := exec.Run(ctx, "cryptsetup", "luksOpen", m.MDDevice, m.Name,
		"--key-size", fmt.Sprintf("%d", m.KeySize*8),
		"--key-file", keyPath,
		"--keyfile-offset", fmt.Sprintf("%d", keyfileOffset),
		"--header", headerPath,
	)
	if err != nil {
		return &pdeerr.WrongTuple{Header: headerPath, Key: keyPath, Offset: int64(keyfileOffset)}
	}
	log.WithFields(log.Fields{"header": headerPath, "mapper": m.Name}).Info("pde mapping opened")

	if bless {
		if _, err := exec.Run(ctx, "mkfs", "-t", "ext4", m.devicePath()); err != nil {
			return err
		}
		log.WithField("mapper", m.Name).Info("mapped device blessed with ext4")
	}
	return nil
}

// Close is idempotent: if the mapping is not open, it is a no-op.
func (m *Mapper) Close(ctx context.Context) error {
	if !m.IsOpen() {
		return nil
	}
	_, err := exec.Run(ctx, "cryptsetup", "luksClose", m.devicePath())
	return err
}

// IsOpen reports whether /dev/mapper/<name> currently exists.
func (m *Mapper) IsOpen() bool {
	return fileExists(m.devicePath())
}

func (m *Mapper) devicePath() string {
	return "/dev/mapper/" + m.Name
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
