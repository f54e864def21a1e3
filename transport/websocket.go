package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pithecene-io/depthstream/iox"
	"github.com/pithecene-io/depthstream/log"
	"github.com/pithecene-io/depthstream/types"
	"github.com/pithecene-io/depthstream/wire"
)

// Default channel timeouts.
const (
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultWriteTimeout     = 2 * time.Second
	DefaultCloseGrace       = 250 * time.Millisecond
	// DefaultReadLimit bounds inbound control messages.
	DefaultReadLimit = 64 * 1024
)

// WSDialer opens WebSocket channels.
type WSDialer struct {
	// Codec selects the message encoding. Nil means JSON.
	Codec wire.Codec
	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each message write.
	WriteTimeout time.Duration
	// CloseGrace bounds the close-frame write on Close.
	CloseGrace time.Duration
	// Header is sent with the upgrade request.
	Header http.Header
	// Logger is optional.
	Logger *log.Logger
}

var _ Dialer = (*WSDialer)(nil)

// Open connects to url and starts the writer and reader goroutines.
func (d *WSDialer) Open(ctx context.Context, url string, onControl ControlHandler) (Channel, error) {
	codec := d.Codec
	if codec == nil {
		codec = wire.MustCodec(wire.FormatJSON)
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: orDefault(d.HandshakeTimeout, DefaultHandshakeTimeout),
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		iox.DiscardClose(resp.Body)
	}
	if err != nil {
		openErr := &OpenError{URL: url, Err: err}
		if resp != nil {
			openErr.StatusCode = resp.StatusCode
		}
		return nil, openErr
	}
	conn.SetReadLimit(DefaultReadLimit)

	logger := d.Logger
	if logger == nil {
		logger = log.Nop()
	}
	c := &wsChannel{
		conn:         conn,
		codec:        codec,
		onControl:    onControl,
		writeTimeout: orDefault(d.WriteTimeout, DefaultWriteTimeout),
		closeGrace:   orDefault(d.CloseGrace, DefaultCloseGrace),
		logger:       logger,
		out:          make(chan []byte, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	c.wg.Add(2)
	go c.writeLoop()
	go c.readLoop()
	return c, nil
}

type wsChannel struct {
	conn         *websocket.Conn
	codec        wire.Codec
	onControl    ControlHandler
	writeTimeout time.Duration
	closeGrace   time.Duration
	logger       *log.Logger

	// out is the one-slot outbound queue.
	out chan []byte
	// stop tells the writer to exit; closed by terminate.
	stop chan struct{}
	// done is closed after the connection is torn down.
	done chan struct{}

	once     sync.Once
	mu       sync.Mutex
	err      error
	closeErr error

	wg sync.WaitGroup
}

func (c *wsChannel) Send(msg *types.WireMessage) error {
	select {
	case <-c.stop:
		return ErrClosed
	default:
	}

	data, err := c.codec.EncodeFrame(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	select {
	case <-c.stop:
		return ErrClosed
	case c.out <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *wsChannel) Close() error {
	c.terminate(nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

func (c *wsChannel) Done() <-chan struct{} {
	return c.done
}

func (c *wsChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// terminate tears the connection down exactly once. A nil cause is an
// orderly close and sends a going-away close frame.
func (c *wsChannel) terminate(cause error) {
	c.once.Do(func() {
		close(c.stop)
		if cause == nil {
			deadline := time.Now().Add(c.closeGrace)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "capture stopped")
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Debug("close frame not sent", map[string]any{"error": err.Error()})
			}
		}
		closeErr := c.conn.Close()

		c.mu.Lock()
		if cause != nil {
			c.err = fmt.Errorf("%w: %w", ErrConnectionLost, cause)
		} else {
			c.closeErr = closeErr
		}
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *wsChannel) writeLoop() {
	defer c.wg.Done()

	messageType := websocket.TextMessage
	if c.codec.Binary() {
		messageType = websocket.BinaryMessage
	}
	for {
		select {
		case <-c.stop:
			return
		case data := <-c.out:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.terminate(err)
				return
			}
			if err := c.conn.WriteMessage(messageType, data); err != nil {
				c.terminate(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (c *wsChannel) readLoop() {
	defer c.wg.Done()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stop:
				// Closed locally; the read error is the teardown itself.
			default:
				c.terminate(fmt.Errorf("read: %w", err))
			}
			return
		}

		msg, err := wire.DecodeControlAny(data, messageType == websocket.BinaryMessage)
		if err != nil {
			c.logger.Warn("ignoring inbound message", map[string]any{"error": err.Error()})
			continue
		}
		if c.onControl != nil {
			c.onControl(msg)
		}
	}
}

// wait blocks until both I/O goroutines have exited. Used by tests.
func (c *wsChannel) wait() {
	c.wg.Wait()
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
