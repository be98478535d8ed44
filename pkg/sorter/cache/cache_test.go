package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartoonFan/libloot/pkg/sorter/cache"
	"github.com/CartoonFan/libloot/pkg/sorter/plugin"
)

type stubPlugin struct {
	name string
	crc  uint32
	desc string
}

func (s stubPlugin) Name() string                       { return s.name }
func (s stubPlugin) IsMasterFlagged() bool               { return false }
func (s stubPlugin) IsLightMediumOrUpdate() bool         { return false }
func (s stubPlugin) Masters() []string                   { return nil }
func (s stubPlugin) OverrideRecordCount() uint32          { return 0 }
func (s stubPlugin) LoadsArchive() bool                   { return false }
func (s stubPlugin) Overlaps(other plugin.Plugin) bool     { return false }
func (s stubPlugin) CRC() uint32                           { return s.crc }
func (s stubPlugin) HeaderDescription() string             { return s.desc }

func TestAddPluginIsCaseInsensitiveAndOverwrites(t *testing.T) {
	c := cache.New()
	c.AddPlugin(stubPlugin{name: "Blank.esp", crc: 1})
	p, ok := c.GetPlugin("blank.esp")
	require.True(t, ok)
	assert.Equal(t, uint32(1), p.CRC())

	c.AddPlugin(stubPlugin{name: "BLANK.ESP", crc: 2})
	p, ok = c.GetPlugin("Blank.esp")
	require.True(t, ok)
	assert.Equal(t, uint32(2), p.CRC(), "re-adding the same folded name should overwrite, not duplicate")
}

func TestConditionCacheClearedOnPluginChange(t *testing.T) {
	c := cache.New()
	c.CacheCondition("file(\"x\")", true)
	c.AddPlugin(stubPlugin{name: "Blank.esp"})
	_, ok := c.GetCachedCondition("file(\"x\")")
	assert.False(t, ok)
}

func TestPluginVersionExtractsFromDescription(t *testing.T) {
	c := cache.New()
	c.AddPlugin(stubPlugin{name: "Blank.esp", desc: "Some plugin. Version 2.1a. More text."})
	v, ok := c.PluginVersion("Blank.esp")
	require.True(t, ok)
	assert.Equal(t, "2.1a", v)
}
