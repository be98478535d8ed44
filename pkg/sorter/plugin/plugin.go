// Package plugin defines the capability the sorter needs from a decoded
// game plugin file. Decoding the actual binary format is an external
// collaborator ("given a path and a game kind, yield master flag, declared
// masters, header version/description, overlap-check function,
// override-record count") and is deliberately not implemented here; this
// package only defines the trait the rest of the module depends on.
package plugin

import (
	"context"
	"errors"
)

// ErrDecode indicates a Decoder could not produce a Plugin for a path.
var ErrDecode = errors.New("plugin could not be decoded")

// GameKind distinguishes the handful of binary/flag conventions the sorter
// must account for (e.g. whether a "light" flag exists and counts as a
// master for ordering purposes).
type GameKind string

const (
	GameOblivion  GameKind = "oblivion"
	GameSkyrim    GameKind = "skyrim"
	GameSkyrimSE  GameKind = "skyrimse"
	GameFallout3  GameKind = "fallout3"
	GameFalloutNV GameKind = "falloutnv"
	GameFallout4  GameKind = "fallout4"
	GameStarfield GameKind = "starfield"
)

// Plugin is the small capability set the sorter (pkg/sorter/graph) and the
// condition evaluator depend on. Everything else about a plugin file is
// irrelevant to load-order computation.
type Plugin interface {
	// Name is the plugin's filename, in whatever case the data directory
	// listing provided it.
	Name() string
	// IsMasterFlagged reports the header's master flag.
	IsMasterFlagged() bool
	// IsLightMediumOrUpdate reports the light/medium/update-style flags that
	// must be treated equivalently to the master flag when partitioning
	// masters from non-masters.
	IsLightMediumOrUpdate() bool
	// Masters lists the plugin's declared master dependencies, in header
	// order.
	Masters() []string
	// OverrideRecordCount is the number of records this plugin overrides
	// from one of its masters.
	OverrideRecordCount() uint32
	// LoadsArchive reports whether a same-named archive file (BSA/BA2-style)
	// is associated with this plugin.
	LoadsArchive() bool
	// Overlaps reports whether this plugin and other override at least one
	// common record FormID.
	Overlaps(other Plugin) bool
	// CRC is the 32-bit CRC of the plugin file's bytes.
	CRC() uint32
	// HeaderDescription is the free-text description field a version string
	// gets extracted from.
	HeaderDescription() string
}

// Decoder yields a Plugin for a path given a game kind. Implementations
// live outside this module; the binary format is deliberately scoped out.
type Decoder interface {
	Decode(ctx context.Context, path string, kind GameKind) (Plugin, error)
}
