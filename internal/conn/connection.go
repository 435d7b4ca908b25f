// Package conn maintains one channel connection to the puzzle host and the
// selection state observed on it.
package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/sudokucon-relay/internal/protocol"
	"github.com/DoyleJ11/sudokucon-relay/internal/selection"
	"github.com/DoyleJ11/sudokucon-relay/internal/ws"
)

var ErrNotOpen = errors.New("channel not open")
var ErrOutboxFull = errors.New("outbox full")

// ClearPointerCoord is where a cleared pointer is parked. The protocol has
// no "no pointer" value and rejects non-finite coordinates.
const ClearPointerCoord = -64e4

const (
	DefaultWriteTimeout = 3 * time.Second
	outboxSize          = 256
)

// Frame is one raw inbound frame, tagged with the connection it arrived on.
type Frame struct {
	From *Connection
	Data []byte
}

type Options struct {
	Channel  string
	URL      string
	User     protocol.UserInfo
	Dialer   ws.Dialer
	Logger   *zap.Logger
	Observer func(protocol.Message)

	WriteTimeout time.Duration
}

// Connection is one channel plus the selection observed on it. Receive,
// Send and Close must all be called from the goroutine that owns the
// connection; the read and write pumps never touch selection.
type Connection struct {
	channel      string
	url          string
	user         protocol.UserInfo
	dialer       ws.Dialer
	log          *zap.Logger
	observer     func(protocol.Message)
	writeTimeout time.Duration

	selection *selection.Set

	transport  ws.Conn
	outbox     chan []byte
	open       atomic.Bool
	cancel     context.CancelFunc
	writerDone chan struct{}
	readerDone chan struct{}
	closeErr   error
	closeOnce  sync.Once
}

func New(opts Options) *Connection {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Connection{
		channel:      opts.Channel,
		url:          opts.URL,
		user:         opts.User,
		dialer:       opts.Dialer,
		log:          log.With(zap.String("channel", opts.Channel)),
		observer:     opts.Observer,
		writeTimeout: opts.WriteTimeout,
		selection:    selection.New(),
	}
}

func (c *Connection) Channel() string { return c.channel }

func (c *Connection) IsOpen() bool { return c.open.Load() }

// Open dials the channel, starts the pumps and sends the cloneview
// handshake. Inbound frames are delivered to frames until the connection
// closes; they are not decoded until the owner passes them to Receive.
func (c *Connection) Open(ctx context.Context, frames chan<- Frame) error {
	if c.transport != nil {
		return fmt.Errorf("open %s: already opened", c.channel)
	}
	t, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		c.log.Error("channel dial failed", zap.String("url", c.url), zap.Error(err))
		return fmt.Errorf("open %s: %w", c.channel, err)
	}

	// The pumps outlive the dial context; Close stops them.
	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.transport = t
	c.cancel = cancel
	c.outbox = make(chan []byte, outboxSize)
	c.writerDone = make(chan struct{})
	c.readerDone = make(chan struct{})
	c.open.Store(true)

	go c.writePump(pumpCtx)
	go c.readPump(pumpCtx, frames)

	c.log.Info("channel open")
	return c.Send(protocol.CloneView{
		HostKey:   c.user.Key,
		HostName:  c.user.Name + " proxy",
		HostColor: c.user.Color,
	})
}

// Close flushes frames already queued, then closes the channel. Later
// sends are dropped.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		if c.transport == nil {
			return
		}
		close(c.outbox)
		<-c.writerDone
		c.cancel()
		<-c.readerDone
		c.log.Info("channel closed")
	})
	return c.closeErr
}

func (c *Connection) readPump(ctx context.Context, frames chan<- Frame) {
	defer close(c.readerDone)
	defer c.open.Store(false)
	for {
		data, err := c.transport.Read(ctx)
		if err != nil {
			// A read failing after our own Close is the expected way out.
			if !c.open.Load() || ws.IsNormalClose(err) || ctx.Err() != nil {
				c.log.Info("channel read loop stopped", zap.Error(err))
			} else {
				c.log.Error("channel read failed", zap.Error(err))
			}
			return
		}
		select {
		case frames <- Frame{From: c, Data: data}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	defer close(c.writerDone)
	defer func() { c.closeErr = c.transport.Close() }()
	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.transport.Write(wctx, data)
			cancel()
			if err != nil {
				c.log.Error("channel write failed", zap.ByteString("frame", data), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Receive decodes one inbound frame, updates selection from it and hands
// it to the observer. Malformed or unknown frames are logged and dropped.
func (c *Connection) Receive(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownCommand) {
			c.log.Debug("ignoring inbound message", zap.Error(err))
		} else {
			c.log.Warn("dropping malformed inbound message", zap.ByteString("frame", data), zap.Error(err))
		}
		return
	}
	c.observe(msg)
	if c.observer != nil {
		c.observer(msg)
	}
}

// Send records msg's effect on selection, then queues it for transmission.
// Sends on a closed channel are dropped and reported, never retried.
func (c *Connection) Send(msg protocol.Message) error {
	c.observe(msg)
	if !c.open.Load() {
		c.log.Error("can't send message, channel not open", zap.String("cmd", string(msg.Command())))
		return fmt.Errorf("send %s: %w", msg.Command(), ErrNotOpen)
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		c.log.Error("encode failed", zap.String("cmd", string(msg.Command())), zap.Error(err))
		return fmt.Errorf("send %s: %w", msg.Command(), err)
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		c.log.Error("outbox full, dropping message", zap.String("cmd", string(msg.Command())))
		return fmt.Errorf("send %s: %w", msg.Command(), ErrOutboxFull)
	}
}

func (c *Connection) observe(msg protocol.Message) {
	act, ok := msg.(protocol.Act)
	if !ok {
		return
	}
	sub, err := protocol.ParseSubCommand(act.Action)
	if err != nil {
		c.log.Warn("malformed cells in selection command", zap.String("act", act.Action), zap.Error(err))
	}
	c.selection.Apply(sub)
}

func (c *Connection) SendPointer(x, y float64, host *protocol.PointerHost) error {
	return c.Send(protocol.Pointer{X: x, Y: y, Host: host})
}

// SendClearPointer parks the pointer far outside any grid.
func (c *Connection) SendClearPointer(host *protocol.PointerHost) error {
	return c.SendPointer(ClearPointerCoord, ClearPointerCoord, host)
}

func (c *Connection) SendAct(seq *int, act string) error {
	return c.Send(protocol.Act{Seq: seq, Action: act})
}

// SendSyncRequest sends an empty set-selection with seq 0, which the host
// answers by broadcasting the full state.
func (c *Connection) SendSyncRequest() error {
	return c.SendAct(protocol.Int(0), protocol.SetSelection(""))
}

func (c *Connection) SendMarkCell(cell string) error {
	return c.Send(protocol.MarkCell{Cell: cell})
}

func (c *Connection) SendCloseDialog() error {
	return c.Send(protocol.CloseDialog{})
}

// MarkSelection marks every selected cell on the channel. Useful for
// spotting selection desyncs by eye.
func (c *Connection) MarkSelection() {
	for _, cell := range c.selection.Cells() {
		c.SendMarkCell(cell)
	}
}

// SelectionString serializes the observed selection.
func (c *Connection) SelectionString() string {
	return c.selection.String()
}

func (c *Connection) Selection() []string {
	return c.selection.Cells()
}
