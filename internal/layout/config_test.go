package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigCells(t *testing.T) {
	cells := DefaultConfig().Cells(CellPx)

	assert.Equal(t, 5, cells.MinWidthFloor)
	assert.Equal(t, 30, cells.MaxWidthFloor)
	assert.Equal(t, 150, cells.MaxWidthCap)
	assert.Equal(t, 1, cells.DragThreshold, "5px rounds to one cell")
	assert.InDelta(t, 0.0625, cells.Epsilon, 1e-9)
	assert.Equal(t, DefaultConfig().MaxWidthPercent, cells.MaxWidthPercent)
	assert.Equal(t, DefaultConfig().SavedMinFactor, cells.SavedMinFactor)

	assert.Equal(t, DefaultConfig(), DefaultConfig().Cells(1), "one pixel cells change nothing")
}
