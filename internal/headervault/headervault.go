// Package headervault implements the Header Vault (component G): it
// generates detached LUKS1 headers, each bound to one key from the Key
// Vault at a random keyfile offset, with a random payload offset inside
// the plausibly-deniable window just past the safe-zone.
package headervault

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/opaquefs/freedom/internal/exec"
	"github.com/opaquefs/freedom/internal/keyvault"
	"github.com/opaquefs/freedom/internal/mdarray"
	"github.com/opaquefs/freedom/internal/pdeerr"
)

// SubDir is the hidden sub-root holding detached headers, per spec §6's
// layout.
const SubDir = ".h"

const (
	sectorSize = 512
	giB        = 1 << 30
	miB        = 1 << 20

	// payloadOffsetMin and payloadOffsetMax bound the sector at which the
	// LUKS payload begins, in sectors. The window sits just past the
	// safe-zone's 1 GiB - 1 MiB, spanning one further MiB: every offset
	// in range still lands past the safe-zone's own footprint, and no
	// two headers are distinguishable by offset magnitude alone.
	payloadOffsetMin = giB / sectorSize
	payloadOffsetMax = (giB + miB) / sectorSize
)

// Header is one detached LUKS1 header bound to one key.
type Header struct {
	Name          string // UUIDv4
	Path          string
	KeyName       string
	KeyfileOffset uint64
	PayloadOffset uint64 // sectors
}

// Vault owns the .h/ sub-root under a backing-page root.
type Vault struct {
	Dir     string
	Keys    *keyvault.Vault
	Array   *mdarray.Controller
	KeySize uint64
}

// NewVault creates a Vault rooted at <root>/.h, bound to keys and the MD
// array the headers will be formatted against.
func NewVault(root string, keys *keyvault.Vault, array *mdarray.Controller, keySize uint64) *Vault {
	return &Vault{Dir: filepath.Join(root, SubDir), Keys: keys, Array: array, KeySize: keySize}
}

// Create requires the MD array to be active, auto-starting it if not.
// It generates count fresh keys via the Key Vault, then for each key
// formats one detached LUKS1 header at a random keyfile offset and a
// random payload offset. Iteration order over the freshly-generated
// keys is shuffled so header-creation order carries no correlation to
// any particular key.
func (v *Vault) Create(ctx context.Context, count int) ([]Header, error) {
	if err := os.MkdirAll(v.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating header vault: %w", err)
	}

	array, err := v.Array.Status(ctx)
	if err != nil {
		return nil, err
	}
	if array == nil {
		if _, err := v.Array.Start(ctx); err != nil {
			return nil, err
		}
	}

	keys, err := v.Keys.Create(ctx, count)
	if err != nil {
		return nil, err
	}

	order, err := shuffledIndices(count)
	if err != nil {
		return nil, err
	}

	mdDevice := v.Array.DevicePath()
	headers := make([]Header, count)
	for _, idx := range order {
		key := keys[idx]

		keyfileOffset, err := randUint64InRange(0, v.Keys.KeyfileSize-v.KeySize)
		if err != nil {
			return nil, err
		}
		payloadOffset, err := randUint64InRange(payloadOffsetMin, payloadOffsetMax)
		if err != nil {
			return nil, err
		}

		name := uuid.NewString()
		path := filepath.Join(v.Dir, name)

		_, err = exec.Run(ctx, "cryptsetup", "luksFormat", mdDevice,
			"--type", "luks1",
			"--batch-mode",
			"--key-size", fmt.Sprintf("%d", v.KeySize*8),
			"--key-file", key.Path,
			"--keyfile-offset", fmt.Sprintf("%d", keyfileOffset),
			"--header", path,
			"--align-payload", fmt.Sprintf("%d", payloadOffset),
		)
		if err != nil {
			return nil, err
		}

		log.WithFields(log.Fields{"header": name, "key": key.Name}).Info("header created")
		headers[idx] = Header{
			Name:          name,
			Path:          path,
			KeyName:       key.Name,
			KeyfileOffset: keyfileOffset,
			PayloadOffset: payloadOffset,
		}
	}
	return headers, nil
}

// List enumerates header names under the vault. It does not attempt to
// recover the key or offsets a header was bound to — that pairing is
// deliberately not persisted anywhere but in the operator's memory.
func (v *Vault) List() ([]string, error) {
	entries, err := os.ReadDir(v.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Remove unlinks every header file under the vault. Refuses outright
// without explicit confirmation.
func (v *Vault) Remove(confirmed bool) error {
	if !confirmed {
		return &pdeerr.RefusedUnconfirmed{Operation: "headers remove"}
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

// Path resolves a header name to its full path.
func (v *Vault) Path(name string) string {
	return filepath.Join(v.Dir, name)
}

// randUint64InRange returns a cryptographically random value in [min, max].
func randUint64InRange(min, max uint64) (uint64, error) {
	if max <= min {
		return min, nil
	}
	span := new(big.Int).SetUint64(max - min + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("generating random offset: %w", err)
	}
	return min + n.Uint64(), nil
}

// shuffledIndices returns a cryptographically-shuffled permutation of
// [0, n) via Fisher-Yates.
func shuffledIndices(n int) ([]int, error) {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return nil, fmt.Errorf("shuffling header order: %w", err)
		}
		order[i], order[j.Int64()] = order[j.Int64()], order[i]
	}
	return order, nil
}
