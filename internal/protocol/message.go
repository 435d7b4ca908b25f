package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnknownCommand = errors.New("unknown command")

type Command string

const (
	CmdAct         Command = "act"
	CmdPointer     Command = "pointer"
	CmdMarkCell    Command = "markcell"
	CmdCloseDialog Command = "closedialog"
	CmdSync        Command = "sync"
	CmdCloneView   Command = "cloneview"
)

// Message is one wire message. The set of implementations is closed.
type Message interface {
	Command() Command
	isMessage()
}

type Act struct {
	Seq    *int   `json:"seq,omitempty"`
	Action string `json:"act"`
}

type Pointer struct {
	X    float64      `json:"x"`
	Y    float64      `json:"y"`
	Host *PointerHost `json:"host,omitempty"`
}

type PointerHost struct {
	Key   string `json:"key,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

type MarkCell struct {
	Cell string `json:"cell"`
}

type CloseDialog struct{}

// Sync is a full-state snapshot. Everything except cmd and seq is kept as
// the raw payload and forwarded untouched.
type Sync struct {
	Seq     *int
	Payload json.RawMessage
}

type CloneView struct {
	HostKey   string `json:"hostkey"`
	HostName  string `json:"hostname"`
	HostColor string `json:"hostcolor"`
}

func (Act) Command() Command         { return CmdAct }
func (Pointer) Command() Command     { return CmdPointer }
func (MarkCell) Command() Command    { return CmdMarkCell }
func (CloseDialog) Command() Command { return CmdCloseDialog }
func (Sync) Command() Command        { return CmdSync }
func (CloneView) Command() Command   { return CmdCloneView }

func (Act) isMessage()         {}
func (Pointer) isMessage()     {}
func (MarkCell) isMessage()    {}
func (CloseDialog) isMessage() {}
func (Sync) isMessage()        {}
func (CloneView) isMessage()   {}

// UserInfo identifies the local user to the hosting service.
type UserInfo struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	UserID string `json:"userId"`
}

// Int returns a pointer to n, for Seq fields.
func Int(n int) *int { return &n }

// SeqOf returns the sequence number carried by m, or nil.
func SeqOf(m Message) *int {
	switch msg := m.(type) {
	case Act:
		return msg.Seq
	case Sync:
		return msg.Seq
	}
	return nil
}

// BumpSeq returns m with its sequence number incremented by one. Messages
// without a sequence number are returned unchanged.
func BumpSeq(m Message) Message {
	seq := SeqOf(m)
	if seq == nil {
		return m
	}
	next := Int(*seq + 1)
	switch msg := m.(type) {
	case Act:
		msg.Seq = next
		return msg
	case Sync:
		msg.Seq = next
		return msg
	}
	return m
}

// Decode parses one inbound frame.
func Decode(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	cmd := gjson.GetBytes(data, "cmd")
	if cmd.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing cmd", ErrMalformed)
	}

	switch Command(cmd.Str) {
	case CmdAct:
		return decodeInto[Act](data)
	case CmdPointer:
		return decodeInto[Pointer](data)
	case CmdMarkCell:
		return decodeInto[MarkCell](data)
	case CmdCloseDialog:
		return CloseDialog{}, nil
	case CmdCloneView:
		return decodeInto[CloneView](data)
	case CmdSync:
		m := Sync{Payload: append(json.RawMessage(nil), data...)}
		if seq := gjson.GetBytes(data, "seq"); seq.Exists() {
			if seq.Type != gjson.Number {
				return nil, fmt.Errorf("%w: sync seq is %s", ErrMalformed, seq.Type)
			}
			m.Seq = Int(int(seq.Int()))
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Str)
	}
}

func decodeInto[T Message](data []byte) (Message, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, m.Command(), err)
	}
	return m, nil
}

// Encode serializes m with its cmd discriminant.
func Encode(m Message) ([]byte, error) {
	switch msg := m.(type) {
	case Act:
		return json.Marshal(struct {
			Cmd Command `json:"cmd"`
			Act
		}{CmdAct, msg})
	case Pointer:
		return json.Marshal(struct {
			Cmd Command `json:"cmd"`
			Pointer
		}{CmdPointer, msg})
	case MarkCell:
		return json.Marshal(struct {
			Cmd Command `json:"cmd"`
			MarkCell
		}{CmdMarkCell, msg})
	case CloseDialog:
		return json.Marshal(struct {
			Cmd Command `json:"cmd"`
		}{CmdCloseDialog})
	case CloneView:
		return json.Marshal(struct {
			Cmd Command `json:"cmd"`
			CloneView
		}{CmdCloneView, msg})
	case Sync:
		return encodeSync(msg)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, m)
	}
}

func encodeSync(m Sync) ([]byte, error) {
	out := append([]byte(nil), m.Payload...)
	if len(out) == 0 {
		out = []byte(`{}`)
	}
	out, err := sjson.SetBytes(out, "cmd", string(CmdSync))
	if err != nil {
		return nil, fmt.Errorf("encode sync: %w", err)
	}
	if m.Seq != nil {
		out, err = sjson.SetBytes(out, "seq", *m.Seq)
	} else {
		out, err = sjson.DeleteBytes(out, "seq")
	}
	if err != nil {
		return nil, fmt.Errorf("encode sync: %w", err)
	}
	return out, nil
}
