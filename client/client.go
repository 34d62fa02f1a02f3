// Package client implements the client-side core of the relay: it owns the
// connection, registers the display name, and turns inbound frames into
// callbacks. Rendering is the caller's concern, supplied through Handler;
// the package never prints anything itself.
package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"chat-relay/errors"
	"chat-relay/queue"
	"chat-relay/wire"
)

// Handler receives everything the server pushes. MessageReceived and
// RosterUpdated arrive from a single dispatch goroutine, in the exact order
// the server emitted them; Disconnected may arrive concurrently with the
// final dispatched items.
type Handler interface {
	// MessageReceived delivers one renderable line: a chat line or a
	// system notice.
	MessageReceived(text string)
	// RosterUpdated delivers the full ordered participant list.
	RosterUpdated(names []string)
	// Disconnected fires once when the connection is lost for any reason
	// other than a local Stop.
	Disconnected(err error)
}

// Client is the connection-side counterpart of a server session. Inbound
// frames are buffered on an unbounded queue so a slow Handler never stalls
// the network read.
type Client struct {
	conn    net.Conn
	writer  *wire.Writer
	writeMu sync.Mutex

	inbox   *queue.Queue[wire.Frame]
	handler Handler

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}

	log *slog.Logger
}

// Dial connects to the relay and registers under the given display name.
func Dial(addr, name string, handler Handler, log *slog.Logger) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to reach relay at %s: %w", addr, err)
	}
	return New(conn, name, handler, log)
}

// New wraps an established connection. The registration frame is sent
// before New returns, so the server knows the name as soon as the first
// read completes.
func New(conn net.Conn, name string, handler Handler, log *slog.Logger) (*Client, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		writer:  wire.NewWriter(conn),
		inbox:   queue.New[wire.Frame](),
		handler: handler,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     log.With("remote", conn.RemoteAddr()),
	}

	if err := c.writer.WriteText(name); err != nil {
		cancel()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to register name: %w", err)
	}

	go c.readLoop()
	go c.dispatchLoop(ctx)
	return c, nil
}

// Send relays one chat line to the server. The text comes back through
// MessageReceived like everybody else's, keeping a single source of truth
// for ordering.
func (c *Client) Send(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return errors.ErrSessionClosed
	default:
	}
	return c.writer.WriteText(text)
}

// Stop tears the client down without invoking Disconnected. Safe to call
// any number of times, from any goroutine.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		c.teardown()
	})
}

// Done is closed once the client has fully shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) readLoop() {
	r := wire.NewReader(c.conn)
	for {
		frame, err := r.ReadFrame()
		if err != nil {
			if stderrors.Is(err, errors.ErrUnknownFrame) {
				c.log.Debug("Dropping malformed frame", "error", err)
				continue
			}
			c.fail(err)
			return
		}
		c.inbox.Enqueue(frame)
	}
}

func (c *Client) dispatchLoop(ctx context.Context) {
	for {
		frame, err := c.inbox.Dequeue(ctx)
		if err != nil {
			return
		}
		switch frame.Kind {
		case wire.KindText:
			c.handler.MessageReceived(frame.Text)
		case wire.KindRoster:
			c.handler.RosterUpdated(frame.Names)
		}
	}
}

// fail handles a connection-level error: teardown plus exactly one
// Disconnected callback, unless a local Stop already won the race.
func (c *Client) fail(err error) {
	c.stopOnce.Do(func() {
		c.teardown()
		c.log.Debug("Connection lost", "error", err)
		c.handler.Disconnected(err)
	})
}

func (c *Client) teardown() {
	c.cancel()
	_ = c.conn.Close()
	close(c.done)
}
