// Package env implements the State Aggregator (component I) and the
// Environment facade that the cobra command tree drives: one
// orchestration method per command-surface entry of spec.md §6,
// composed from the core packages beneath it.
package env

import (
	"context"

	"github.com/opaquefs/freedom/internal/config"
	"github.com/opaquefs/freedom/internal/headervault"
	"github.com/opaquefs/freedom/internal/keyvault"
	"github.com/opaquefs/freedom/internal/mapper"
	"github.com/opaquefs/freedom/internal/mdarray"
	"github.com/opaquefs/freedom/internal/pages"
	"github.com/opaquefs/freedom/internal/safezone"
)

// EnvironmentState is a derived snapshot, never cached across commands.
type EnvironmentState struct {
	BackingActive bool
	MDName        string // "" when no MD array is ours
	LUKSOpen      bool
}

// Environment composes every core component over one configuration.
type Environment struct {
	Config *config.Config

	Pages    *pages.Store
	Array    *mdarray.Controller
	SafeZone *safezone.Builder
	Keys     *keyvault.Vault
	Headers  *headervault.Vault
	Mapper   *mapper.Mapper
}

// New wires every component from cfg. Nothing here touches the kernel;
// wiring is pure construction.
func New(cfg *config.Config) *Environment {
	pageStore := pages.NewStore(cfg.Root)
	array := mdarray.NewController(pageStore, cfg.MDName)
	keys := keyvault.NewVault(cfg.Root, cfg.KeyfileSize, cfg.KeySize)
	headers := headervault.NewVault(cfg.Root, keys, array, cfg.KeySize)
	mp := mapper.NewMapper(array.DevicePath(), cfg.MapperName, cfg.KeySize)

	return &Environment{
		Config:   cfg,
		Pages:    pageStore,
		Array:    array,
		SafeZone: safezone.NewBuilder(cfg.SafezoneContentURL),
		Keys:     keys,
		Headers:  headers,
		Mapper:   mp,
	}
}

// Status composes B, C, D, and H into an EnvironmentState without
// mutating anything.
func (e *Environment) Status(ctx context.Context) (EnvironmentState, error) {
	set, err := e.Pages.Rediscover(ctx, false)
	if err != nil {
		return EnvironmentState{}, err
	}

	array, err := e.Array.Status(ctx)
	if err != nil {
		return EnvironmentState{}, err
	}

	state := EnvironmentState{BackingActive: set.Active()}
	if array != nil {
		state.MDName = array.Name
	}
	state.LUKSOpen = e.Mapper.IsOpen()
	return state, nil
}

// PagesCreate allocates backing pages of pageSize bytes. limit == 0 uses
// as many as fit.
func (e *Environment) PagesCreate(ctx context.Context, pageSize uint64, limit int, simulated bool) (pages.Allocation, error) {
	return e.Pages.Allocate(ctx, pageSize, limit, simulated)
}

// PagesList reconstructs the current BackingSet from ground truth.
func (e *Environment) PagesList(ctx context.Context) (pages.BackingSet, error) {
	return e.Pages.Rediscover(ctx, false)
}

// PagesActivate attaches loop devices for every page missing one.
func (e *Environment) PagesActivate(ctx context.Context) (pages.BackingSet, error) {
	return e.Pages.Rediscover(ctx, true)
}

// PagesDeactivate detaches every page's loop device.
func (e *Environment) PagesDeactivate(ctx context.Context) (pages.BackingSet, error) {
	return e.Pages.Deactivate(ctx)
}

// PagesRemove deactivates and unlinks every backing page. Requires
// confirmed, per spec.md §6's destructive-operation gate.
func (e *Environment) PagesRemove(ctx context.Context, confirmed bool) error {
	return e.Pages.Remove(ctx, confirmed)
}

// MDStart assembles or creates the MD array.
func (e *Environment) MDStart(ctx context.Context) (mdarray.MDArray, error) {
	return e.Array.Start(ctx)
}

// MDStop stops the MD array. Idempotent.
func (e *Environment) MDStop(ctx context.Context) error {
	return e.Array.Stop(ctx)
}

// MDStatus is a pure read of the current MD array, if any.
func (e *Environment) MDStatus(ctx context.Context) (*mdarray.MDArray, error) {
	return e.Array.Status(ctx)
}

// MDPopulateSafezone formats and populates the leading safe-zone region
// of the active MD device.
func (e *Environment) MDPopulateSafezone(ctx context.Context) error {
	array, err := e.Array.Status(ctx)
	if err != nil {
		return err
	}
	if array == nil {
		if _, err := e.Array.Start(ctx); err != nil {
			return err
		}
	}
	// Resolved through the configured name's stable symlink, not the
	// kernel-assigned name Status() reports, so this always points at
	// a real device regardless of which md<N> the kernel picked.
	return e.SafeZone.Populate(ctx, e.Array.DevicePath())
}

// KeysCreate generates count fresh keyfiles.
func (e *Environment) KeysCreate(ctx context.Context, count int) ([]keyvault.Key, error) {
	if count == 0 {
		count = e.Config.KeyCount
	}
	return e.Keys.Create(ctx, count)
}

// KeysList enumerates every key with a human-identification fingerprint.
func (e *Environment) KeysList() ([]keyvault.KeyInfo, error) {
	return e.Keys.List()
}

// KeysRemove unlinks every key. Requires confirmed.
func (e *Environment) KeysRemove(confirmed bool) error {
	return e.Keys.Remove(confirmed)
}

// HeadersCreate generates count fresh keys and one detached header per
// key, auto-starting the MD array if needed.
func (e *Environment) HeadersCreate(ctx context.Context, count int) ([]headervault.Header, error) {
	if count == 0 {
		count = e.Config.HeaderCount
	}
	return e.Headers.Create(ctx, count)
}

// HeadersList enumerates header names only.
func (e *Environment) HeadersList() ([]string, error) {
	return e.Headers.List()
}

// HeadersRemove unlinks every header. Requires confirmed.
func (e *Environment) HeadersRemove(confirmed bool) error {
	return e.Headers.Remove(confirmed)
}

// PDEStart opens the dm-crypt mapping for the chosen (header, key,
// keyfile-offset) tuple, blessing the device with ext4 when bless is set.
func (e *Environment) PDEStart(ctx context.Context, headerName, keyName string, keyfileOffset uint64, bless bool) error {
	return e.Mapper.Open(ctx, e.Headers.Path(headerName), e.Keys.Path(keyName), keyfileOffset, bless)
}

// PDEStop closes the dm-crypt mapping. Idempotent.
func (e *Environment) PDEStop(ctx context.Context) error {
	return e.Mapper.Close(ctx)
}
