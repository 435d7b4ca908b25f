package protocol

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

var ErrMalformedCell = errors.New("malformed cell reference")

// ScanCells splits a concatenated cell list such as "r1c1r2c3-r4c5" into its
// tokens. A range ("r2c3-r4c5") stays a single token. Text that is not a cell
// reference is skipped up to the next 'r' and reported in the returned error;
// the well-formed tokens are returned either way.
func ScanCells(s string) ([]string, error) {
	var (
		cells []string
		errs  error
	)
	for i := 0; i < len(s); {
		n := scanCell(s[i:])
		if n == 0 {
			end := len(s)
			if j := strings.IndexByte(s[i+1:], 'r'); j >= 0 {
				end = i + 1 + j
			}
			errs = multierr.Append(errs, fmt.Errorf("%w: %q at offset %d", ErrMalformedCell, s[i:end], i))
			i = end
			continue
		}
		if i+n < len(s) && s[i+n] == '-' {
			if m := scanCell(s[i+n+1:]); m > 0 {
				n += 1 + m
			}
		}
		cells = append(cells, s[i:i+n])
		i += n
	}
	return cells, errs
}

// FormatCells is the inverse of ScanCells.
func FormatCells(cells []string) string {
	return strings.Join(cells, "")
}

// IsCell reports whether s is exactly one cell reference or range.
func IsCell(s string) bool {
	cells, err := ScanCells(s)
	return err == nil && len(cells) == 1 && cells[0] == s
}

// scanCell returns the length of the r<int>c<int> reference at the start of
// s, or 0 if there is none.
func scanCell(s string) int {
	if len(s) == 0 || s[0] != 'r' {
		return 0
	}
	i := 1 + digits(s[1:])
	if i == 1 || i >= len(s) || s[i] != 'c' {
		return 0
	}
	j := digits(s[i+1:])
	if j == 0 {
		return 0
	}
	return i + 1 + j
}

func digits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}
