package loadorder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CartoonFan/libloot/pkg/sorter/loadorder"
)

type fakeProbe struct {
	installed, active, order []string
	err                      error
}

func (f fakeProbe) InstalledPlugins(context.Context) ([]string, error) { return f.installed, f.err }
func (f fakeProbe) ActivePlugins(context.Context) ([]string, error)    { return f.active, f.err }
func (f fakeProbe) LoadOrder(context.Context) ([]string, error)        { return f.order, f.err }

func TestRefreshSnapshotsProbe(t *testing.T) {
	h := loadorder.New(fakeProbe{
		installed: []string{"A.esp", "B.esp"},
		active:    []string{"A.esp"},
		order:     []string{"A.esp", "B.esp"},
	})
	require.NoError(t, h.Refresh(context.Background()))

	assert.True(t, h.IsActive("A.esp"))
	assert.False(t, h.IsActive("B.esp"))
	assert.Equal(t, []string{"A.esp", "B.esp"}, h.LoadOrder())
}

func TestRefreshFailurePreservesPriorSnapshot(t *testing.T) {
	probe := &fakeProbe{
		installed: []string{"A.esp"},
		active:    []string{"A.esp"},
		order:     []string{"A.esp"},
	}
	h := loadorder.New(probe)
	require.NoError(t, h.Refresh(context.Background()))

	probe.err = errors.New("boom")
	err := h.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loadorder.ErrProbe)
	assert.Equal(t, []string{"A.esp"}, h.LoadOrder())
}
