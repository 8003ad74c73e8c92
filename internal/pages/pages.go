// Package pages implements the Backing-Page Store (component C): sparse
// backing files under a root directory, each presented to the kernel as
// a loop block device. The root directory is exclusively owned by this
// package; every mutator ends by reconstructing both pages and loop
// devices from ground truth, never returning a partially-updated view.
package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/opaquefs/freedom/internal/exec"
	"github.com/opaquefs/freedom/internal/pdeerr"
	"github.com/opaquefs/freedom/internal/probe"
)

// DDBlockSize is the chunk size used to zero-fill a backing page via dd.
const DDBlockSize uint64 = 1 << 20 // 1 MiB

var uuidShape = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// BackingPage is a single sparse file under root, optionally attached to
// a loop device.
type BackingPage struct {
	Name       string // UUIDv4
	Path       string
	SizeBytes  uint64
	LoopDevice string // "" when not attached
}

// BackingSet is the unordered set of backing pages under one root,
// ordered here by name for deterministic enumeration.
type BackingSet struct {
	Root  string
	Pages []BackingPage
}

// Active reports the spec's invariant: active = (|pages| == |loop_devices|) && |pages| > 0.
func (s BackingSet) Active() bool {
	if len(s.Pages) == 0 {
		return false
	}
	for _, p := range s.Pages {
		if p.LoopDevice == "" {
			return false
		}
	}
	return true
}

// LoopDevices returns the loop device path of every attached page, in
// enumeration order — this is the stripe order handed to mdadm --create.
func (s BackingSet) LoopDevices() []string {
	devices := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		if p.LoopDevice != "" {
			devices = append(devices, p.LoopDevice)
		}
	}
	return devices
}

// Allocation is the result of a Store.Allocate call.
type Allocation struct {
	Created   []BackingPage
	Simulated bool
}

// Store owns one root directory of backing pages.
type Store struct {
	Root      string
	BlockSize uint64 // dd chunk size; defaults to DDBlockSize
}

// NewStore creates a Store rooted at root.
func NewStore(root string) *Store {
	return &Store{Root: root, BlockSize: DDBlockSize}
}

// Allocate computes how many pages fit in the available space and
// creates them. limit == 0 means "as many as fit". simulated elides the
// dd write but still reports the plan that would have run.
func (st *Store) Allocate(ctx context.Context, pageSize uint64, limit int, simulated bool) (Allocation, error) {
	if err := os.MkdirAll(st.Root, 0o700); err != nil {
		return Allocation{}, fmt.Errorf("creating root %s: %w", st.Root, err)
	}

	vfs, err := probe.StatvfsAt(st.Root)
	if err != nil {
		return Allocation{}, fmt.Errorf("statvfs %s: %w", st.Root, err)
	}
	free := vfs.Free()

	maxPages := free / pageSize
	toCreate := maxPages
	if limit != 0 {
		toCreate = uint64(limit)
	}
	if toCreate < 1 || pageSize*toCreate > free {
		needed := pageSize
		if toCreate > 0 {
			needed = pageSize * toCreate
		}
		return Allocation{}, &pdeerr.InsufficientSpace{Needed: needed, Available: free}
	}

	blockSize := st.BlockSize
	if blockSize == 0 {
		blockSize = DDBlockSize
	}
	blocks := (pageSize + blockSize - 1) / blockSize

	created := make([]BackingPage, 0, toCreate)
	for i := uint64(0); i < toCreate; i++ {
		name := uuid.NewString()
		path := filepath.Join(st.Root, name)
		page := BackingPage{Name: name, Path: path, SizeBytes: pageSize}

		if !simulated {
			_, err := exec.Run(ctx, "dd", "if=/dev/zero", "of="+path,
				fmt.Sprintf("bs=%d", blockSize), fmt.Sprintf("count=%d", blocks))
			if err != nil {
				return Allocation{}, err
			}
			log.WithFields(log.Fields{"page": name, "size": pageSize}).Info("backing page allocated")
		}
		created = append(created, page)
	}

	return Allocation{Created: created, Simulated: simulated}, nil
}

// Rediscover re-reads ground truth: every UUID-shaped file under root
// becomes a BackingPage, and each page's current loop device is queried
// via `losetup --associated`. When attachMissing is true, pages without
// an attached loop device are attached via `losetup -f --show`.
// Idempotent and crash-safe — it never trusts cached state.
func (st *Store) Rediscover(ctx context.Context, attachMissing bool) (BackingSet, error) {
	names, err := probe.ListDir(st.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return BackingSet{Root: st.Root}, nil
		}
		return BackingSet{}, err
	}

	var pages []BackingPage
	for _, name := range names {
		if !uuidShape.MatchString(name) {
			continue
		}
		path := filepath.Join(st.Root, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		loopDevice, err := st.associatedLoop(ctx, path)
		if err != nil {
			loopDevice = ""
		}
		if loopDevice == "" && attachMissing {
			result, err := exec.Run(ctx, "losetup", "-f", "--show", path)
			if err == nil {
				loopDevice = strings.TrimSpace(result.Stdout)
			}
		}

		pages = append(pages, BackingPage{
			Name:       name,
			Path:       path,
			SizeBytes:  uint64(info.Size()),
			LoopDevice: loopDevice,
		})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return BackingSet{Root: st.Root, Pages: pages}, nil
}

// associatedLoop queries `losetup --associated <path>` and returns the
// loop device currently backed by path, or "" if none.
func (st *Store) associatedLoop(ctx context.Context, path string) (string, error) {
	result, err := exec.Run(ctx, "losetup", "--associated", path)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(result.Stdout)
	if line == "" {
		return "", nil
	}
	colon := strings.Index(line, ":")
	if colon < 0 {
		return "", nil
	}
	return line[:colon], nil
}

// Deactivate detaches every loop device currently backing a page under
// root. A per-device detach failure is logged and does not abort the
// rest of the set. The returned set is reconstructed from ground truth.
func (st *Store) Deactivate(ctx context.Context) (BackingSet, error) {
	before, err := st.Rediscover(ctx, false)
	if err != nil {
		return BackingSet{}, err
	}
	for _, p := range before.Pages {
		if p.LoopDevice == "" {
			continue
		}
		if _, err := exec.Run(ctx, "losetup", "-d", p.LoopDevice); err != nil {
			log.WithError(err).WithField("loop_device", p.LoopDevice).Warn("failed to detach loop device, continuing")
		}
	}
	return st.Rediscover(ctx, false)
}

// Remove deactivates every page's loop device, then unlinks every
// backing file. Missing-file errors are tolerated; confirmed must be
// true or the call is refused outright.
func (st *Store) Remove(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return &pdeerr.RefusedUnconfirmed{Operation: "pages remove"}
	}
	set, err := st.Deactivate(ctx)
	if err != nil {
		return err
	}
	for _, p := range set.Pages {
		if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", p.Path, err)
		}
	}
	return nil
}
