// Package mdarray implements the MD Array Controller (component D): it
// assembles, creates, adopts, and stops the RAID-0 device striped across
// a set of loop devices.
package mdarray

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/opaquefs/freedom/internal/exec"
	"github.com/opaquefs/freedom/internal/pages"
	"github.com/opaquefs/freedom/internal/pdeerr"
	"github.com/opaquefs/freedom/internal/probe"
)

// MDArray identifies an assembled array by its kernel-assigned name.
type MDArray struct {
	Name          string
	MemberDevices []string // ordered, as passed to mdadm --create / discovered on assemble
	TotalSectors  uint64
}

// Controller owns one named MD array built from a Store's backing pages.
type Controller struct {
	Store  *pages.Store
	MDName string
}

// NewController creates a Controller for the named array over store.
func NewController(store *pages.Store, mdName string) *Controller {
	return &Controller{Store: store, MDName: mdName}
}

// Start assembles or creates the array. If /sys/block already exposes an
// MD device that owns every one of our pages, it is adopted rather than
// recreated. Otherwise the first page's magic decides create vs.
// assemble: a generic "data" page is virgin (mdadm --create); anything
// else carries prior metadata (mdadm --assemble).
func (c *Controller) Start(ctx context.Context) (MDArray, error) {
	set, err := c.Store.Rediscover(ctx, true)
	if err != nil {
		return MDArray{}, err
	}
	if len(set.Pages) < 1 {
		return MDArray{}, &pdeerr.PreconditionUnmet{What: "no backing pages"}
	}

	if adopted, err := c.Status(ctx); err == nil && adopted != nil && len(adopted.MemberDevices) == len(set.Pages) {
		return *adopted, nil
	}

	if probe.HasMD(c.MDName) {
		return MDArray{}, &pdeerr.PreconditionUnmet{What: fmt.Sprintf("md name %q already in use", c.MDName)}
	}

	loops := set.LoopDevices()
	if len(loops) != len(set.Pages) {
		return MDArray{}, &pdeerr.PreconditionUnmet{What: "not every backing page has an attached loop device"}
	}

	magic, err := probe.Magic(ctx, set.Pages[0].Path)
	if err != nil {
		return MDArray{}, err
	}

	if probe.IsGenericData(magic) {
		args := append([]string{"--create", c.devicePath(), "--level=0",
			fmt.Sprintf("--raid-devices=%d", len(loops))}, loops...)
		if _, err := exec.Run(ctx, "mdadm", args...); err != nil {
			return MDArray{}, err
		}
		log.WithField("md_name", c.MDName).Info("md array created")
	} else {
		args := append([]string{"--assemble", c.devicePath()}, loops...)
		if _, err := exec.Run(ctx, "mdadm", args...); err != nil {
			return MDArray{}, &pdeerr.ArrayInconsistent{Expected: len(loops), Found: -1}
		}
		log.WithField("md_name", c.MDName).Info("md array assembled")
	}

	array, err := c.Status(ctx)
	if err != nil {
		return MDArray{}, err
	}
	if array == nil {
		return MDArray{}, &pdeerr.ArrayInconsistent{Expected: len(loops), Found: 0}
	}
	return *array, nil
}

// Stop stops the MD array that owns our pages, if any. Idempotent over
// the already-stopped case. Resolved via Status rather than c.MDName:
// an assembled array surfaces in /sys/block under its kernel-assigned
// name (e.g. md127), never under the configured friendly name, so
// stopping it needs the real device Status discovers.
func (c *Controller) Stop(ctx context.Context) error {
	array, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if array == nil {
		return nil
	}
	_, err = exec.Run(ctx, "mdadm", "--stop", "/dev/"+array.Name)
	return err
}

// Status walks /sys/block/*/md and returns the MD array whose every slave
// resolves (via the loop backing_file) to a page inside our root. Returns
// nil, nil when no such array exists. Pure: never mutates state.
func (c *Controller) Status(ctx context.Context) (*MDArray, error) {
	devices, err := probe.BlockDevices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if !probe.HasMD(dev) {
			continue
		}
		slaves, err := probe.MDSlaves(dev)
		if err != nil || len(slaves) == 0 {
			continue
		}
		if c.allSlavesAreOurs(slaves, dev) {
			return &MDArray{
				Name:          dev,
				MemberDevices: slaves,
				TotalSectors:  c.readTotalSectors(dev),
			}, nil
		}
	}
	return nil, nil
}

func (c *Controller) allSlavesAreOurs(slaves []string, mdDev string) bool {
	root, err := filepath.Abs(c.Store.Root)
	if err != nil {
		return false
	}
	for _, member := range slaves {
		backing, err := probe.MDSlaveBackingFile(mdDev, member)
		if err != nil {
			return false
		}
		backingAbs, err := filepath.Abs(backing)
		if err != nil || !strings.HasPrefix(backingAbs, root+string(filepath.Separator)) {
			return false
		}
	}
	return true
}

func (c *Controller) readTotalSectors(mdDev string) uint64 {
	data, err := probe.ReadFile(filepath.Join("/sys/block", mdDev, "size"))
	if err != nil {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// DevicePath returns the stable /dev/md/<name> symlink mdadm maintains
// for the configured array name — the one path that stays valid across
// reassembly regardless of the kernel-assigned md device underneath.
// Callers outside this package should always resolve the array's
// device through this, never through an MDArray.Name returned by
// Status (that is the raw kernel name, e.g. md127).
func (c *Controller) DevicePath() string {
	return c.devicePath()
}

func (c *Controller) devicePath() string {
	return "/dev/md/" + c.MDName
}
