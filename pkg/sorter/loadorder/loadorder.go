// Package loadorder implements a thin, refreshable view over the
// installed-plugin / active-plugin / load-order facts that names an
// external collaborator ("the local game-install probe"). The probe itself
// lives outside this module; this package only defines the capability it
// must provide and a Handler that snapshots it once per refresh so a sort
// observes a consistent view.
package loadorder

import (
	"context"
	"errors"
	"fmt"
)

// ErrProbe wraps any failure returned by a Probe implementation.
var ErrProbe = errors.New("load order probe failed")

// Probe is the external collaborator: given a game, list its installed
// plugins, the subset that is active, and their current load order.
type Probe interface {
	InstalledPlugins(ctx context.Context) ([]string, error)
	ActivePlugins(ctx context.Context) ([]string, error)
	LoadOrder(ctx context.Context) ([]string, error)
}

// Handler snapshots a Probe's answers and serves them from memory until
// Refresh is called again. It implements condition.LoadOrderHandler.
type Handler struct {
	probe     Probe
	installed []string
	active    map[string]struct{}
	order     []string
}

// New wraps probe in a Handler with an empty snapshot; call Refresh before
// relying on it.
func New(probe Probe) *Handler {
	return &Handler{probe: probe, active: make(map[string]struct{})}
}

// Refresh re-queries the probe and replaces the snapshot atomically: a
// failure leaves the previous snapshot untouched.
func (h *Handler) Refresh(ctx context.Context) error {
	installed, err := h.probe.InstalledPlugins(ctx)
	if err != nil {
		return fmt.Errorf("%w: installed plugins: %v", ErrProbe, err)
	}
	active, err := h.probe.ActivePlugins(ctx)
	if err != nil {
		return fmt.Errorf("%w: active plugins: %v", ErrProbe, err)
	}
	order, err := h.probe.LoadOrder(ctx)
	if err != nil {
		return fmt.Errorf("%w: load order: %v", ErrProbe, err)
	}

	activeSet := make(map[string]struct{}, len(active))
	for _, name := range active {
		activeSet[name] = struct{}{}
	}

	h.installed = installed
	h.active = activeSet
	h.order = order
	return nil
}

// InstalledPlugins returns the last-refreshed installed-plugin set.
func (h *Handler) InstalledPlugins() []string { return h.installed }

// LoadOrder returns the last-refreshed load order, used by pkg/sorter/graph
// as the prior order for Phase 5's tie-break.
func (h *Handler) LoadOrder() []string { return h.order }

// IsActive implements condition.LoadOrderHandler.
func (h *Handler) IsActive(name string) bool {
	_, ok := h.active[name]
	return ok
}
