package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCells(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    []string
		wantErr bool
	}{
		{name: "empty", in: "", want: nil},
		{name: "single", in: "r1c1", want: []string{"r1c1"}},
		{name: "concatenated", in: "r1c1r2c3r10c12", want: []string{"r1c1", "r2c3", "r10c12"}},
		{name: "range kept whole", in: "r1c1-r3c3r4c4", want: []string{"r1c1-r3c3", "r4c4"}},
		{name: "dangling range marker", in: "r1c1-r4c", want: []string{"r1c1"}, wantErr: true},
		{name: "junk between cells", in: "r1c1xx r2c2", want: []string{"r1c1", "r2c2"}, wantErr: true},
		{name: "missing column", in: "r1", want: nil, wantErr: true},
		{name: "missing row digits", in: "rc1r2c2", want: []string{"r2c2"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScanCells(tc.in)
			assert.Equal(t, tc.want, got)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedCell), "want ErrMalformedCell, got %v", err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestScanCells_ReportsEveryMalformedFragment(t *testing.T) {
	_, err := ScanCells("xr1c1yr2c2z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"x" at offset 0`)
	assert.Contains(t, err.Error(), `"y" at offset 5`)
	assert.Contains(t, err.Error(), `"z" at offset 10`)
}

func TestFormatCells_RoundTrip(t *testing.T) {
	in := []string{"r9c9", "r1c1-r2c2", "r3c4"}
	out, err := ScanCells(FormatCells(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestIsCell(t *testing.T) {
	assert.True(t, IsCell("r1c2"))
	assert.True(t, IsCell("r1c2-r3c4"))
	assert.False(t, IsCell("r1c2r3c4"))
	assert.False(t, IsCell("c1r2"))
	assert.False(t, IsCell(""))
}
