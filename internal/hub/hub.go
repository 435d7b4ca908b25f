// Package hub owns the single active relay of the process.
package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
	"github.com/DoyleJ11/sudokucon-relay/internal/relay"
	"github.com/DoyleJ11/sudokucon-relay/internal/ws"
)

type HubMsg interface{ isHubMsg() }

// Connect seeds the room's puzzles, tears down the active relay (if any)
// and starts a new one.
type Connect struct {
	RoomID   string
	User     protocol.UserInfo
	Settings relay.Settings
	Reply    chan ConnectResult
}

type ConnectResult struct {
	Relay *relay.Relay
	Err   error
}

type GetRelay struct {
	Reply chan *relay.Relay // nil when nothing is active
}

type DisconnectRelay struct {
	Reply chan bool // whether a relay was active
}

type ShutdownHub struct {
	Done chan struct{}
}

func (Connect) isHubMsg()         {}
func (GetRelay) isHubMsg()        {}
func (DisconnectRelay) isHubMsg() {}
func (ShutdownHub) isHubMsg()     {}

// Seeder makes sure a puzzle exists for a channel before it is joined.
type Seeder interface {
	SeedBlank(ctx context.Context, shortID string) bool
}

type Options struct {
	Dialer       ws.Dialer
	Seeder       Seeder // nil skips seeding
	ChannelURL   func(channel string) string
	Logger       *zap.Logger
	WriteTimeout time.Duration
}

type Hub struct {
	inbox   chan HubMsg
	current *relay.Relay
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 16),
		opts:   opts,
		log:    log.With(zap.String("component", "hub")),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down and its relay has finished.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.stopCurrent()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				r, err := h.connect(msg)
				msg.Reply <- ConnectResult{Relay: r, Err: err}

			case GetRelay:
				msg.Reply <- h.active()

			case DisconnectRelay:
				had := h.stopCurrent()
				if msg.Reply != nil {
					msg.Reply <- had
				}

			case ShutdownHub:
				h.stopCurrent()
				h.cancel()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

func (h *Hub) connect(msg Connect) (*relay.Relay, error) {
	r, err := relay.New(relay.Options{
		RoomID:       msg.RoomID,
		User:         msg.User,
		Settings:     msg.Settings,
		ChannelURL:   h.opts.ChannelURL,
		Dialer:       h.opts.Dialer,
		Logger:       h.opts.Logger,
		WriteTimeout: h.opts.WriteTimeout,
	})
	if err != nil {
		return nil, err
	}

	if h.opts.Seeder != nil {
		for _, id := range []string{msg.RoomID, relay.DownstreamChannel(msg.RoomID, msg.User.UserID)} {
			if !h.opts.Seeder.SeedBlank(h.ctx, id) {
				h.log.Warn("seeding puzzle failed, connecting anyway", zap.String("channel", id))
			}
		}
	}

	h.stopCurrent()
	if err := r.Start(h.ctx); err != nil {
		h.log.Error("relay failed to start", zap.String("room", msg.RoomID), zap.Error(err))
		return nil, err
	}
	h.current = r
	return r, nil
}

// active returns the current relay unless it has already finished on its own.
func (h *Hub) active() *relay.Relay {
	if h.current == nil {
		return nil
	}
	select {
	case <-h.current.Done():
		h.current = nil
	default:
	}
	return h.current
}

func (h *Hub) stopCurrent() bool {
	if h.current == nil {
		return false
	}
	h.current.Stop()
	h.current = nil
	return true
}
