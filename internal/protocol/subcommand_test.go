package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubCommand(t *testing.T) {
	cases := []struct {
		act       string
		kind      Kind
		cells     []string
		selection bool
	}{
		{act: "hl:r1c1r1c2", kind: KindAddSelection, cells: []string{"r1c1", "r1c2"}, selection: true},
		{act: "sl:r2c2-r3c3", kind: KindAddSelection, cells: []string{"r2c2-r3c3"}, selection: true},
		{act: "sl:", kind: KindAddSelection, selection: true},
		{act: "ds:r1c1", kind: KindRemoveSelection, cells: []string{"r1c1"}, selection: true},
		{act: "ds", kind: KindClearSelection, selection: true},
		{act: "hlx", kind: KindSelectOther, selection: true},
		{act: "ud", kind: KindUndo},
		{act: "rd", kind: KindRedo},
		{act: "gs", kind: KindGroupStart},
		{act: "ge", kind: KindGroupEnd},
		{act: "vl:5", kind: KindOpaque},
		{act: "", kind: KindOpaque},
	}

	for _, tc := range cases {
		t.Run(tc.act, func(t *testing.T) {
			sub, err := ParseSubCommand(tc.act)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, sub.Kind, "kind %s", sub.Kind)
			assert.Equal(t, tc.cells, sub.Cells)
			assert.Equal(t, tc.selection, sub.IsSelection())
			assert.Equal(t, tc.act, sub.Raw)
		})
	}
}

func TestParseSubCommand_MalformedCellsStillClassified(t *testing.T) {
	sub, err := ParseSubCommand("sl:r1c1??r2c2")
	require.ErrorIs(t, err, ErrMalformedCell)
	assert.Equal(t, KindAddSelection, sub.Kind)
	assert.Equal(t, []string{"r1c1", "r2c2"}, sub.Cells)
}

func TestSetSelection(t *testing.T) {
	assert.Equal(t, "sl:", SetSelection(""))
	assert.Equal(t, "sl:r1c1r2c2", SetSelection("r1c1r2c2"))
}
