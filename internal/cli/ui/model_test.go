package ui

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartoonFan/libloot/internal/cli/hooks"
)

func newTestModel(width, height int) *Model {
	m := NewModel()
	m.width, m.height = width, height
	listHeight := height - listHeightMargin
	if listHeight < 1 {
		listHeight = 1
	}
	m.list.SetSize(width, listHeight)
	m.initialized = true
	return &m
}

func TestModelInit(t *testing.T) {
	m := newTestModel(80, 25)
	cmd := m.Init()
	require.NotNil(t, cmd)
	_, ok := cmd().(spinner.TickMsg)
	assert.True(t, ok)
}

func TestModelUpdateQuit(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			m := newTestModel(80, 25)
			newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
			updated, ok := newModel.(*Model)
			require.True(t, ok)
			assert.True(t, updated.quitting)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestModelUpdatePluginsLoaded(t *testing.T) {
	m := newTestModel(80, 25)
	newModel, _ := m.Update(hooks.PluginsLoadedMsg{Count: 5})
	updated := newModel.(*Model)
	assert.Equal(t, 5, updated.pluginCount)
	assert.Equal(t, "Sorting...", updated.phaseMessage)
	assert.Len(t, updated.items, 5)
}

func TestModelUpdateSortComplete(t *testing.T) {
	m := newTestModel(80, 25)
	order := []string{"a.esm", "b.esp"}
	newModel, _ := m.Update(hooks.SortCompleteMsg{Order: order})
	updated := newModel.(*Model)
	assert.Equal(t, "Complete", updated.phaseMessage)
	require.Len(t, updated.items, 2)
	assert.Equal(t, "a.esm", updated.items[0].name)
	assert.True(t, updated.items[0].placed)
}

func TestModelUpdateMasterlistUpdated(t *testing.T) {
	m := newTestModel(80, 25)
	newModel, _ := m.Update(hooks.MasterlistUpdatedMsg{Changed: true, RevisionID: "abc123"})
	updated := newModel.(*Model)
	assert.True(t, updated.masterlistChanged)
	assert.Equal(t, "abc123", updated.masterlistRevision)
}

func TestModelUpdateCycleDetected(t *testing.T) {
	m := newTestModel(80, 25)
	newModel, _ := m.Update(CycleDetectedMsg{Source: "b.esp", Target: "a.esp", Trail: []string{"a.esp", "b.esp", "a.esp"}})
	updated := newModel.(*Model)
	require.NotNil(t, updated.cycle)
	assert.Equal(t, "b.esp", updated.cycle.Source)
	view := updated.View()
	assert.Contains(t, view, "a.esp")
	assert.Contains(t, view, "cyclic interaction")
}

func TestModelViewInitializing(t *testing.T) {
	m := NewModel()
	assert.Equal(t, "Initializing...", m.View())
}
