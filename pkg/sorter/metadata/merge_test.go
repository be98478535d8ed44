package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CartoonFan/libloot/pkg/sorter/metadata"
)

func TestMergeScalarTakesNonDefaultSide(t *testing.T) {
	base := metadata.NewPluginMetadata("Plugin.esp")
	base.Enabled = false

	incoming := metadata.NewPluginMetadata("Plugin.esp")

	merged := metadata.Merge(base, incoming)
	assert.False(t, merged.Enabled, "base's non-default value should survive when incoming is at default")
}

func TestMergeIncomingWinsTies(t *testing.T) {
	base := metadata.NewPluginMetadata("Plugin.esp")
	base.Enabled = false
	incoming := metadata.NewPluginMetadata("Plugin.esp")
	incoming.Enabled = false

	merged := metadata.Merge(base, incoming)
	assert.False(t, merged.Enabled)
}

func TestMergeExplicitGroupWinsOverDefault(t *testing.T) {
	base := metadata.NewPluginMetadata("Plugin.esp")
	base.Group, base.GroupExplicit = "Overhauls", true

	incoming := metadata.NewPluginMetadata("Plugin.esp")

	merged := metadata.Merge(base, incoming)
	assert.Equal(t, "Overhauls", merged.Group)
	assert.True(t, merged.GroupExplicit)
}

func TestMergePriorityTakesLargerMagnitudeIncomingTieWins(t *testing.T) {
	base := metadata.NewPluginMetadata("Plugin.esp")
	base.Priority = metadata.Priority{Local: 5}
	incoming := metadata.NewPluginMetadata("Plugin.esp")
	incoming.Priority = metadata.Priority{Local: -5}

	merged := metadata.Merge(base, incoming)
	assert.Equal(t, int16(-5), merged.Priority.Local, "equal magnitude should go to incoming")

	incoming.Priority = metadata.Priority{Local: 10}
	merged = metadata.Merge(base, incoming)
	assert.Equal(t, int16(10), merged.Priority.Local)
}

func TestMergePriorityPairIsNotSplitAcrossSides(t *testing.T) {
	base := metadata.NewPluginMetadata("Plugin.esp")
	base.Priority = metadata.Priority{Local: 20, Global: 1}
	incoming := metadata.NewPluginMetadata("Plugin.esp")
	incoming.Priority = metadata.Priority{Local: 1, Global: 10}

	merged := metadata.Merge(base, incoming)
	assert.Equal(t, metadata.Priority{Local: 20, Global: 1}, merged.Priority,
		"base has the larger-magnitude component (Local=20) so its whole pair wins, not a per-component mix")
}

func TestMergeSetsUnion(t *testing.T) {
	base := metadata.NewPluginMetadata("Plugin.esp")
	base.LoadAfter = map[string]metadata.File{"a.esp": {Name: "a.esp"}}
	incoming := metadata.NewPluginMetadata("Plugin.esp")
	incoming.LoadAfter = map[string]metadata.File{"b.esp": {Name: "b.esp"}}

	merged := metadata.Merge(base, incoming)
	assert.Len(t, merged.LoadAfter, 2)
}

func TestMergeMessagesConcatenateInOrder(t *testing.T) {
	base := metadata.NewPluginMetadata("Plugin.esp")
	base.Messages = []metadata.Message{{Type: metadata.MessageSay}}
	incoming := metadata.NewPluginMetadata("Plugin.esp")
	incoming.Messages = []metadata.Message{{Type: metadata.MessageWarn}}

	merged := metadata.Merge(base, incoming)
	require := assert.New(t)
	require.Len(merged.Messages, 2)
	require.Equal(metadata.MessageSay, merged.Messages[0].Type)
	require.Equal(metadata.MessageWarn, merged.Messages[1].Type)
}
