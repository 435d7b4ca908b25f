package relay

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
)

// Send failures below are already logged by the connection and the message
// is lost; there is nothing more the relay can do with them.

// handleDownstream rewrites a message from the user's private view before it
// reaches the shared room.
func (r *Relay) handleDownstream(msg protocol.Message) {
	if _, ok := msg.(protocol.Pointer); ok && !r.settings.SendPointer {
		return
	}
	// Downstream and upstream seq spaces are offset by one.
	msg = protocol.BumpSeq(msg)

	act, ok := msg.(protocol.Act)
	if !ok {
		r.upstream.Send(msg)
		return
	}

	sub, _ := protocol.ParseSubCommand(act.Action)
	switch {
	case sub.Kind == protocol.KindUndo || sub.Kind == protocol.KindRedo:
		// Undo histories differ per side. Ask for a full broadcast instead.
		r.log.Debug("undo/redo replaced by sync request", zap.String("act", act.Action))
		r.downstream.SendSyncRequest()

	case sub.IsSelection():
		// Keep seq continuity without leaking our selection.
		r.upstream.SendAct(act.Seq, protocol.SetSelection(""))

	default:
		// Apply the edit against our selection, grouped so other viewers can
		// undo it in one step, and leave the shared selection empty after.
		r.upstream.SendAct(act.Seq, protocol.ActGroupStart)
		r.upstream.SendAct(act.Seq, protocol.ActClearSelection)
		r.upstream.SendAct(act.Seq, protocol.SetSelection(r.downstream.SelectionString()))
		r.upstream.Send(act)
		r.upstream.SendAct(act.Seq, protocol.ActClearSelection)
		r.upstream.SendAct(act.Seq, protocol.ActGroupEnd)
	}
}

// handleUpstream rewrites a message from the shared room before it reaches
// the user's private view.
func (r *Relay) handleUpstream(msg protocol.Message) {
	if _, ok := msg.(protocol.Pointer); ok && !r.settings.ShowPointers {
		return
	}

	switch m := msg.(type) {
	case protocol.Act:
		sub, _ := protocol.ParseSubCommand(m.Action)
		if sub.IsSelection() {
			r.downstream.SendAct(m.Seq, protocol.SetSelection(""))
			return
		}
		// Not grouped: we may already be inside a group started upstream,
		// and groups do not nest.
		saved := r.downstream.SelectionString()
		r.downstream.SendAct(m.Seq, protocol.ActClearSelection)
		r.downstream.SendAct(m.Seq, protocol.SetSelection(r.upstream.SelectionString()))
		r.downstream.Send(m)
		r.downstream.SendAct(m.Seq, protocol.ActClearSelection)
		r.downstream.SendAct(m.Seq, protocol.SetSelection(saved))

	case protocol.Sync:
		// A snapshot replaces selection too, so put ours back afterwards.
		saved := r.downstream.SelectionString()
		r.downstream.Send(m)
		r.downstream.SendAct(m.Seq, protocol.ActClearSelection)
		r.downstream.SendAct(m.Seq, protocol.SetSelection(saved))

	default:
		r.downstream.Send(msg)
	}
}
