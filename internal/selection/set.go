// Package selection tracks the cells a channel currently has selected.
package selection

import (
	"slices"

	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
)

// Set is an insertion-ordered set of cell tokens. It is not safe for
// concurrent use; each Set belongs to exactly one connection.
type Set struct {
	cells []string
	index map[string]struct{}
}

func New() *Set {
	return &Set{index: map[string]struct{}{}}
}

func (s *Set) Add(cells ...string) {
	for _, c := range cells {
		if _, ok := s.index[c]; ok {
			continue
		}
		s.index[c] = struct{}{}
		s.cells = append(s.cells, c)
	}
}

func (s *Set) Remove(cells ...string) {
	for _, c := range cells {
		if _, ok := s.index[c]; !ok {
			continue
		}
		delete(s.index, c)
		s.cells = slices.DeleteFunc(s.cells, func(x string) bool { return x == c })
	}
}

func (s *Set) Clear() {
	clear(s.index)
	s.cells = s.cells[:0]
}

func (s *Set) Has(cell string) bool {
	_, ok := s.index[cell]
	return ok
}

func (s *Set) Len() int { return len(s.cells) }

// Cells returns a copy of the tokens in insertion order.
func (s *Set) Cells() []string {
	return slices.Clone(s.cells)
}

// String serializes the set as a concatenated cell list.
func (s *Set) String() string {
	return protocol.FormatCells(s.cells)
}

// Apply updates the set from a parsed act sub-command and reports whether
// the sub-command was one that touches selection.
func (s *Set) Apply(sub protocol.SubCommand) bool {
	switch sub.Kind {
	case protocol.KindAddSelection:
		s.Add(sub.Cells...)
	case protocol.KindRemoveSelection:
		s.Remove(sub.Cells...)
	case protocol.KindClearSelection:
		s.Clear()
	default:
		return false
	}
	return true
}
