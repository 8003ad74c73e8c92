// Package keyvault implements the Key Vault (component F): generation,
// enumeration, and removal of random key-material files under a hidden
// sub-root.
package keyvault

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/opaquefs/freedom/internal/exec"
	"github.com/opaquefs/freedom/internal/pdeerr"
)

// SubDir is the hidden sub-root holding key files, per spec §6's layout.
const SubDir = ".k"

// Key is one generated keyfile.
type Key struct {
	Name string // UUIDv4
	Path string
}

// KeyInfo is a human-identification-only summary of a stored key.
type KeyInfo struct {
	Name        string
	Fingerprint string // MD5 of contents; not a security property
}

// Vault owns the .k/ sub-root under a backing-page root.
type Vault struct {
	Dir         string
	KeyfileSize uint64
	KeySize     uint64
}

// NewVault creates a Vault rooted at <root>/.k.
func NewVault(root string, keyfileSize, keySize uint64) *Vault {
	return &Vault{Dir: filepath.Join(root, SubDir), KeyfileSize: keyfileSize, KeySize: keySize}
}

// Create generates count fresh keyfiles of KeyfileSize bytes of
// /dev/urandom, rounded up to a multiple of KeySize.
func (v *Vault) Create(ctx context.Context, count int) ([]Key, error) {
	if err := os.MkdirAll(v.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating key vault: %w", err)
	}

	size := v.KeyfileSize
	if v.KeySize > 0 {
		size = ((size + v.KeySize - 1) / v.KeySize) * v.KeySize
	}

	keys := make([]Key, 0, count)
	for i := 0; i < count; i++ {
		name := uuid.NewString()
		path := filepath.Join(v.Dir, name)
		if _, err := exec.Run(ctx, "dd", "if=/dev/urandom", "of="+path,
			"bs=512", fmt.Sprintf("count=%d", size/512)); err != nil {
			return nil, err
		}
		log.WithField("key", name).Info("key generated")
		keys = append(keys, Key{Name: name, Path: path})
	}
	return keys, nil
}

// List enumerates every key under the vault with an MD5 fingerprint of
// its contents, for human identification only — the vault does not
// verify key integrity.
func (v *Vault) List() ([]KeyInfo, error) {
	entries, err := os.ReadDir(v.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	infos := make([]KeyInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fingerprint, err := fingerprintFile(filepath.Join(v.Dir, e.Name()))
		if err != nil {
			continue
		}
		infos = append(infos, KeyInfo{Name: e.Name(), Fingerprint: fingerprint})
	}
	return infos, nil
}

// Remove unlinks every file under the vault. Refuses outright without
// explicit confirmation.
func (v *Vault) Remove(confirmed bool) error {
	if !confirmed {
		return &pdeerr.RefusedUnconfirmed{Operation: "keys remove"}
	}
	entries, err := os.ReadDir(v.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		path := filepath.Join(v.Dir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}

// Path resolves a key name to its full path, for callers that need to
// hand a --key-file argument to cryptsetup.
func (v *Vault) Path(name string) string {
	return filepath.Join(v.Dir, name)
}

func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
