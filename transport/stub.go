package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/pithecene-io/depthstream/types"
)

// StubDialer is an in-memory Dialer for tests and dry runs.
// Every Open returns a fresh StubChannel.
type StubDialer struct {
	// OpenErr, when set, fails every Open.
	OpenErr error
	// Block makes Open wait for ctx to be done.
	Block bool

	mu       sync.Mutex
	channels []*StubChannel
	urls     []string
}

var _ Dialer = (*StubDialer)(nil)

// NewStubDialer creates a stub dialer.
func NewStubDialer() *StubDialer {
	return &StubDialer{}
}

// Open records url and returns a StubChannel.
func (d *StubDialer) Open(ctx context.Context, url string, onControl ControlHandler) (Channel, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	openErr, block := d.OpenErr, d.Block
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, &OpenError{URL: url, Err: ctx.Err()}
	}
	if openErr != nil {
		return nil, &OpenError{URL: url, Err: openErr}
	}
	if err := ctx.Err(); err != nil {
		return nil, &OpenError{URL: url, Err: err}
	}

	ch := &StubChannel{onControl: onControl, done: make(chan struct{})}
	d.mu.Lock()
	d.channels = append(d.channels, ch)
	d.mu.Unlock()
	return ch, nil
}

// URLs returns every url passed to Open.
func (d *StubDialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Channels returns every channel opened so far.
func (d *StubDialer) Channels() []*StubChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*StubChannel(nil), d.channels...)
}

// Last returns the most recently opened channel, or nil.
func (d *StubDialer) Last() *StubChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 {
		return nil
	}
	return d.channels[len(d.channels)-1]
}

// StubChannel records sent messages and close calls.
type StubChannel struct {
	onControl ControlHandler

	mu         sync.Mutex
	sent       []*types.WireMessage
	sendErr    error
	closeCalls int
	closed     bool
	err        error
	done       chan struct{}
}

var _ Channel = (*StubChannel)(nil)

// Send records msg.
func (c *StubChannel) Send(msg *types.WireMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

// Close marks the channel closed. Idempotent.
func (c *StubChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Done is closed by Close or Lose.
func (c *StubChannel) Done() <-chan struct{} {
	return c.done
}

// Err returns the error set by Lose.
func (c *StubChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Sent returns the recorded messages in send order.
func (c *StubChannel) Sent() []*types.WireMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*types.WireMessage(nil), c.sent...)
}

// CloseCalls returns how many times Close was called.
func (c *StubChannel) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// Closed reports whether the channel has terminated.
func (c *StubChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FailSends makes subsequent sends return err. Nil restores sends.
func (c *StubChannel) FailSends(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// Lose simulates a lost connection.
func (c *StubChannel) Lose(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = fmt.Errorf("%w: %w", ErrConnectionLost, cause)
	close(c.done)
}

// Deliver passes msg to the control handler as if the backend sent it.
func (c *StubChannel) Deliver(msg *types.ControlMessage) {
	if c.onControl != nil {
		c.onControl(msg)
	}
}
