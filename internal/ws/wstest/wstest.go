// Package wstest provides in-memory channel connections for tests.
package wstest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/sudokucon-relay/internal/ws"
)

// Conn is an in-memory ws.Conn. Frames pushed with Inject are returned by
// Read; frames passed to Write are queued on Written.
type Conn struct {
	URL string

	inbound chan []byte
	written chan []byte
	closed  chan struct{}
	once    sync.Once
}

func NewConn(url string) *Conn {
	return &Conn{
		URL:     url,
		inbound: make(chan []byte, 64),
		written: make(chan []byte, 1024),
		closed:  make(chan struct{}),
	}
}

func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, ws.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) Write(ctx context.Context, data []byte) error {
	select {
	case <-c.closed:
		return ws.ErrClosed
	default:
	}
	select {
	case c.written <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// Inject queues a frame as if the remote side had sent it.
func (c *Conn) Inject(data string) {
	c.inbound <- []byte(data)
}

func (c *Conn) Written() <-chan []byte { return c.written }

func (c *Conn) Closed() <-chan struct{} { return c.closed }

// Next waits for the next written frame.
func (c *Conn) Next(t testing.TB, within time.Duration) []byte {
	t.Helper()
	select {
	case data := <-c.written:
		return data
	case <-time.After(within):
		t.Fatalf("%s: timed out waiting for a written frame", c.URL)
		return nil
	}
}

// NoNext asserts that nothing is written within the given window.
func (c *Conn) NoNext(t testing.TB, within time.Duration) {
	t.Helper()
	select {
	case data := <-c.written:
		t.Fatalf("%s: expected no frame within %v, got %s", c.URL, within, data)
	case <-time.After(within):
	}
}

// Dialer hands out a fresh Conn per dial and remembers it by URL.
type Dialer struct {
	mu    sync.Mutex
	conns map[string]*Conn
	fail  map[string]error
}

func NewDialer() *Dialer {
	return &Dialer{conns: map[string]*Conn{}, fail: map[string]error{}}
}

func (d *Dialer) Dial(ctx context.Context, url string) (ws.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[url]; err != nil {
		return nil, err
	}
	c := NewConn(url)
	d.conns[url] = c
	return c, nil
}

// FailOn makes every dial of url return err.
func (d *Dialer) FailOn(url string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[url] = err
}

// Conn returns the most recent connection dialed to url, or nil.
func (d *Dialer) Conn(url string) *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[url]
}
