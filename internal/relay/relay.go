// Package relay couples a user's private puzzle channel (downstream) with
// the shared room channel (upstream). Selection stays local to each side;
// every other action flows both ways.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/conn"
	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
	"github.com/DoyleJ11/sudokucon-relay/internal/ws"
)

var ErrMissingIdentity = errors.New("room id and user id are required")

type Msg interface{ isRelayMsg() }

// UpdateSettings changes the pointer policies. Nil fields are left alone.
type UpdateSettings struct {
	SendPointer  *bool
	ShowPointers *bool
	Reply        chan Settings // optional
}

// Resync asks the shared room for a full state broadcast. Sent when the
// downstream view has (re)loaded.
type Resync struct{}

// MarkSelections marks the selected cells on both channels.
type MarkSelections struct{}

type GetView struct {
	Reply chan View
}

// Disconnect clears our pointer upstream and closes both channels. The
// relay is finished once Done is closed.
type Disconnect struct{}

func (UpdateSettings) isRelayMsg() {}
func (Resync) isRelayMsg()         {}
func (MarkSelections) isRelayMsg() {}
func (GetView) isRelayMsg()        {}
func (Disconnect) isRelayMsg()     {}

type Settings struct {
	SendPointer  bool `json:"sendPointer"`
	ShowPointers bool `json:"showPointers"`
}

func DefaultSettings() Settings {
	return Settings{SendPointer: true, ShowPointers: true}
}

type ChannelView struct {
	Channel   string
	Open      bool
	Selection string
}

type View struct {
	RoomID     string
	User       protocol.UserInfo
	Settings   Settings
	Downstream ChannelView
	Upstream   ChannelView
}

type Options struct {
	RoomID   string
	User     protocol.UserInfo
	Settings Settings

	// ChannelURL maps a channel id to the URL to dial.
	ChannelURL   func(channel string) string
	Dialer       ws.Dialer
	Logger       *zap.Logger
	WriteTimeout time.Duration
}

type Relay struct {
	roomID   string
	user     protocol.UserInfo
	settings Settings

	downstream *conn.Connection
	upstream   *conn.Connection

	inbox  chan Msg
	frames chan conn.Frame
	done   chan struct{}
	log    *zap.Logger
}

// DownstreamChannel names the user's private mirror of roomID.
func DownstreamChannel(roomID, userID string) string {
	return roomID + "_" + userID
}

// New builds a relay and its two connections without dialing anything.
func New(opts Options) (*Relay, error) {
	if opts.RoomID == "" || opts.User.UserID == "" {
		return nil, ErrMissingIdentity
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("room", opts.RoomID), zap.String("user_id", opts.User.UserID))

	r := &Relay{
		roomID:   opts.RoomID,
		user:     opts.User,
		settings: opts.Settings,
		inbox:    make(chan Msg, 64),
		frames:   make(chan conn.Frame, 64),
		done:     make(chan struct{}),
		log:      log,
	}

	down := DownstreamChannel(opts.RoomID, opts.User.UserID)
	r.downstream = conn.New(conn.Options{
		Channel:      down,
		URL:          opts.ChannelURL(down),
		User:         opts.User,
		Dialer:       opts.Dialer,
		Logger:       log.With(zap.String("component", "downstream")),
		Observer:     r.handleDownstream,
		WriteTimeout: opts.WriteTimeout,
	})
	r.upstream = conn.New(conn.Options{
		Channel:      opts.RoomID,
		URL:          opts.ChannelURL(opts.RoomID),
		User:         opts.User,
		Dialer:       opts.Dialer,
		Logger:       log.With(zap.String("component", "upstream")),
		Observer:     r.handleUpstream,
		WriteTimeout: opts.WriteTimeout,
	})
	return r, nil
}

// Start opens both channels and runs the relay until Disconnect or until
// ctx is cancelled. If either channel fails to open, neither stays open.
func (r *Relay) Start(ctx context.Context) error {
	if err := r.downstream.Open(ctx, r.frames); err != nil {
		close(r.done)
		return fmt.Errorf("relay %s: %w", r.roomID, err)
	}
	if err := r.upstream.Open(ctx, r.frames); err != nil {
		r.downstream.Close()
		close(r.done)
		return fmt.Errorf("relay %s: %w", r.roomID, err)
	}
	r.log.Info("relay active",
		zap.String("downstream", r.downstream.Channel()),
		zap.String("upstream", r.upstream.Channel()),
	)
	go r.loop(ctx)
	return nil
}

// Inbox exposes the relay's mailbox. Prefer Post, which gives up once the
// relay is finished.
func (r *Relay) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the relay has disconnected.
func (r *Relay) Done() <-chan struct{} { return r.done }

// Post delivers m unless the relay has already finished.
func (r *Relay) Post(m Msg) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.done:
		return false
	}
}

// View returns a snapshot of the relay's state, or false if the relay has
// finished or ctx expires first.
func (r *Relay) View(ctx context.Context) (View, bool) {
	reply := make(chan View, 1)
	if !r.Post(GetView{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-r.done:
		return View{}, false
	case <-ctx.Done():
		return View{}, false
	}
}

// Stop disconnects the relay and waits for it to finish.
func (r *Relay) Stop() {
	r.Post(Disconnect{})
	<-r.done
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			r.disconnect()
			return

		case f := <-r.frames:
			// Decoding, selection bookkeeping and the rewrite rules all run
			// here, one frame at a time.
			f.From.Receive(f.Data)

		case m := <-r.inbox:
			switch msg := m.(type) {
			case UpdateSettings:
				if msg.SendPointer != nil {
					r.settings.SendPointer = *msg.SendPointer
				}
				if msg.ShowPointers != nil {
					r.settings.ShowPointers = *msg.ShowPointers
				}
				r.log.Info("settings updated",
					zap.Bool("send_pointer", r.settings.SendPointer),
					zap.Bool("show_pointers", r.settings.ShowPointers),
				)
				if msg.Reply != nil {
					msg.Reply <- r.settings
				}

			case Resync:
				r.upstream.SendSyncRequest()

			case MarkSelections:
				r.upstream.MarkSelection()
				r.downstream.MarkSelection()

			case GetView:
				msg.Reply <- r.view()

			case Disconnect:
				r.disconnect()
				return
			}
		}
	}
}

func (r *Relay) view() View {
	return View{
		RoomID:   r.roomID,
		User:     r.user,
		Settings: r.settings,
		Downstream: ChannelView{
			Channel:   r.downstream.Channel(),
			Open:      r.downstream.IsOpen(),
			Selection: r.downstream.SelectionString(),
		},
		Upstream: ChannelView{
			Channel:   r.upstream.Channel(),
			Open:      r.upstream.IsOpen(),
			Selection: r.upstream.SelectionString(),
		},
	}
}

func (r *Relay) disconnect() {
	// other viewers would otherwise keep showing our last pointer position
	r.upstream.SendClearPointer(&protocol.PointerHost{Name: r.user.Name})
	if err := r.upstream.Close(); err != nil {
		r.log.Warn("closing upstream", zap.Error(err))
	}
	if err := r.downstream.Close(); err != nil {
		r.log.Warn("closing downstream", zap.Error(err))
	}
	r.log.Info("relay disconnected")
}
