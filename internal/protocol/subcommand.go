package protocol

import "strings"

// Wire spellings of the act sub-commands the relay produces or inspects.
const (
	ActSetSelection   = "sl:"
	ActHighlight      = "hl:"
	ActDeselect       = "ds:"
	ActClearSelection = "ds"
	ActUndo           = "ud"
	ActRedo           = "rd"
	ActGroupStart     = "gs"
	ActGroupEnd       = "ge"
)

type Kind int

const (
	KindOpaque Kind = iota
	KindAddSelection
	KindRemoveSelection
	KindClearSelection
	// KindSelectOther is any other hl/sl/ds-prefixed string. It changes
	// selection on the remote side but names no cells we can track.
	KindSelectOther
	KindUndo
	KindRedo
	KindGroupStart
	KindGroupEnd
)

func (k Kind) String() string {
	switch k {
	case KindOpaque:
		return "opaque"
	case KindAddSelection:
		return "add-selection"
	case KindRemoveSelection:
		return "remove-selection"
	case KindClearSelection:
		return "clear-selection"
	case KindSelectOther:
		return "select-other"
	case KindUndo:
		return "undo"
	case KindRedo:
		return "redo"
	case KindGroupStart:
		return "group-start"
	case KindGroupEnd:
		return "group-end"
	default:
		return "unknown"
	}
}

// SubCommand is the parsed form of an act message's "act" field.
type SubCommand struct {
	Kind  Kind
	Cells []string // for add/remove
	Raw   string
}

// IsSelection reports whether the sub-command changes selection.
func (s SubCommand) IsSelection() bool {
	switch s.Kind {
	case KindAddSelection, KindRemoveSelection, KindClearSelection, KindSelectOther:
		return true
	}
	return false
}

// ParseSubCommand classifies act. The error, if any, comes from scanning the
// cell list; the returned SubCommand is usable regardless.
func ParseSubCommand(act string) (SubCommand, error) {
	sub := SubCommand{Raw: act}
	switch act {
	case ActClearSelection:
		sub.Kind = KindClearSelection
		return sub, nil
	case ActUndo:
		sub.Kind = KindUndo
		return sub, nil
	case ActRedo:
		sub.Kind = KindRedo
		return sub, nil
	case ActGroupStart:
		sub.Kind = KindGroupStart
		return sub, nil
	case ActGroupEnd:
		sub.Kind = KindGroupEnd
		return sub, nil
	}

	var err error
	switch {
	case strings.HasPrefix(act, ActSetSelection), strings.HasPrefix(act, ActHighlight):
		sub.Kind = KindAddSelection
		sub.Cells, err = ScanCells(act[len(ActSetSelection):])
	case strings.HasPrefix(act, ActDeselect):
		sub.Kind = KindRemoveSelection
		sub.Cells, err = ScanCells(act[len(ActDeselect):])
	case strings.HasPrefix(act, "hl"), strings.HasPrefix(act, "sl"), strings.HasPrefix(act, "ds"):
		sub.Kind = KindSelectOther
	default:
		sub.Kind = KindOpaque
	}
	return sub, err
}

// SetSelection builds an "sl:" sub-command for a serialized cell list.
func SetSelection(cells string) string {
	return ActSetSelection + cells
}
