// Package client provides a Go client SDK for the arena prediction server
package client

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/arena/internal/core/codec"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/server"
	"github.com/zeusync/arena/pkg/encoding"
)

type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportQUIC      Transport = "quic"
)

// Client represents a connection to a prediction server
type Client struct {
	// Connection management, one of ws or quicConn is set while connected.
	// connMu guards both and serializes websocket writes.
	ws       *websocket.Conn
	quicConn *quic.Conn
	connMu   sync.Mutex

	// Requests waiting for a websocket response
	pending   map[uuid.UUID]chan *codec.Response
	pendingMu sync.Mutex

	// Event handlers
	eventHandlers map[EventType][]EventHandler
	handlerMutex  sync.RWMutex

	// Lifecycle
	connected int32 // atomic bool
	closed    int32 // atomic bool
	readDone  chan struct{}

	// Configuration and logging
	config Config
	logger log.Log
}

// Config holds configuration for the client
type Config struct {
	// Connection settings
	ServerAddr     string
	Transport      Transport
	Token          string
	ConnectTimeout time.Duration

	// InsecureSkipVerify accepts the server's self-signed QUIC certificate.
	InsecureSkipVerify bool

	// Message settings
	RequestTimeout time.Duration
	MaxMessageSize int64
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() Config {
	return Config{
		ServerAddr:     "127.0.0.1:8080",
		Transport:      TransportWebSocket,
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 10 * time.Second,
		MaxMessageSize: 1024 * 1024, // 1MB
	}
}

// EventHandler defines a function type for handling client events
type EventHandler func(event Event) error

// EventType represents different types of client events
type EventType string

const (
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"
)

// Event represents a client event
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
	Error     error
}

// NewClient creates a new client. A nil logger uses the process logger.
func NewClient(config Config, logger log.Log) *Client {
	if logger == nil {
		logger = log.Provide()
	}
	if config.Transport == "" {
		config.Transport = TransportWebSocket
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultClientConfig().MaxMessageSize
	}

	client := &Client{
		pending:       make(map[uuid.UUID]chan *codec.Response),
		eventHandlers: make(map[EventType][]EventHandler),
		config:        config,
		logger: logger.With(
			log.String("component", "client"),
			log.String("transport", string(config.Transport))),
	}

	client.logger.Debug("Client created", log.String("addr", config.ServerAddr))

	return client
}

// Connect establishes the connection to the server
func (c *Client) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}

	if !atomic.CompareAndSwapInt32(&c.connected, 0, 1) {
		return ErrAlreadyConnected
	}

	c.logger.Info("Connecting to server", log.String("addr", c.config.ServerAddr))

	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	var err error
	switch c.config.Transport {
	case TransportWebSocket:
		err = c.dialWebSocket(ctx)
	case TransportQUIC:
		err = c.dialQUIC(ctx)
	default:
		err = errors.Wrapf(ErrInvalidConfig, "transport %q", c.config.Transport)
	}
	if err != nil {
		atomic.StoreInt32(&c.connected, 0)
		c.logger.Error("Failed to connect to server",
			log.String("addr", c.config.ServerAddr),
			log.Error(err))
		return err
	}

	c.logger.Info("Connected to server", log.String("addr", c.config.ServerAddr))

	c.emitEvent(Event{
		Type:      EventTypeConnected,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"server_addr": c.config.ServerAddr},
	})

	return nil
}

func (c *Client) dialWebSocket(ctx context.Context) error {
	header := http.Header{}
	if c.config.Token != "" {
		header.Set("Authorization", "Bearer "+c.config.Token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.ConnectTimeout}
	conn, resp, err := dialer.DialContext(ctx, "ws://"+c.config.ServerAddr+"/ws", header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return errors.Wrap(err, "dial websocket")
	}
	conn.SetReadLimit(c.config.MaxMessageSize)

	c.connMu.Lock()
	c.ws = conn
	c.readDone = make(chan struct{})
	go c.readLoop(conn, c.readDone)
	c.connMu.Unlock()
	return nil
}

func (c *Client) dialQUIC(ctx context.Context) error {
	tlsConf := &tls.Config{
		InsecureSkipVerify: c.config.InsecureSkipVerify, // self-signed development certificates
		NextProtos:         []string{server.NextProto},
		MinVersion:         tls.VersionTLS13,
	}

	conn, err := quic.DialAddr(ctx, c.config.ServerAddr, tlsConf, &quic.Config{KeepAlivePeriod: 15 * time.Second})
	if err != nil {
		return errors.Wrap(err, "dial quic")
	}

	c.connMu.Lock()
	c.quicConn = conn
	c.connMu.Unlock()
	return nil
}

// Disconnect closes the connection to the server
func (c *Client) Disconnect() error {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return ErrNotConnected
	}

	c.logger.Info("Disconnecting from server")

	c.connMu.Lock()
	ws, quicConn, readDone := c.ws, c.quicConn, c.readDone
	c.ws, c.quicConn = nil, nil
	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	c.connMu.Unlock()

	var err error
	if ws != nil {
		err = ws.Close()
		<-readDone
	}
	if quicConn != nil {
		err = quicConn.CloseWithError(0, "client disconnect")
	}

	c.emitEvent(Event{
		Type:      EventTypeDisconnected,
		Timestamp: time.Now(),
	})

	return err
}

// Close closes the client and releases all resources
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil // Already closed
	}

	c.logger.Info("Closing client")

	// Disconnect if connected
	if atomic.LoadInt32(&c.connected) == 1 {
		_ = c.Disconnect()
	}

	c.logger.Info("Client closed")

	return nil
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// IsClosed returns true if the client is closed
func (c *Client) IsClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// OnEvent registers an event handler for a specific event type
func (c *Client) OnEvent(eventType EventType, handler EventHandler) {
	c.handlerMutex.Lock()
	c.eventHandlers[eventType] = append(c.eventHandlers[eventType], handler)
	c.handlerMutex.Unlock()

	c.logger.Debug("Event handler registered", log.String("type", string(eventType)))
}

// Call sends one request and decodes the result into result. Server-side
// failures come back wrapped in codec.ErrRemote.
func (c *Client) Call(ctx context.Context, op codec.Op, payload, result any) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}
	if atomic.LoadInt32(&c.connected) == 0 {
		return ErrNotConnected
	}

	req, err := codec.NewRequest(op, payload)
	if err != nil {
		return err
	}
	data, err := req.Serialize()
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	if int64(len(data)) > c.config.MaxMessageSize {
		return errors.Wrapf(ErrMessageTooLarge, "%s request of %d bytes", op, len(data))
	}

	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}

	var resp *codec.Response
	if c.config.Transport == TransportQUIC {
		resp, err = c.callQUIC(ctx, data)
	} else {
		resp, err = c.callWebSocket(ctx, req.ID, data)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Wrapf(ErrMessageTimeout, "%s", op)
		}
		return err
	}

	return resp.Decode(result)
}

func (c *Client) callWebSocket(ctx context.Context, id uuid.UUID, data []byte) (*codec.Response, error) {
	ch := make(chan *codec.Response, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.connMu.Lock()
	ws := c.ws
	if ws == nil {
		c.connMu.Unlock()
		return nil, ErrNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetWriteDeadline(deadline)
	}
	err := ws.WriteMessage(websocket.BinaryMessage, data)
	c.connMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "write request")
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// readLoop routes responses to their pending requests until the connection
// fails; requests still waiting then see ErrNotConnected.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer func() {
		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
				c.connMu.Lock()
				c.ws = nil
				c.connMu.Unlock()
				_ = conn.Close()
				c.logger.Warn("Connection lost", log.Error(err))
				c.emitEvent(Event{Type: EventTypeDisconnected, Timestamp: time.Now(), Error: err})
			}
			return
		}

		resp, err := encoding.Decode[codec.Response](data)
		if err != nil {
			c.logger.Error("Failed to decode response", log.Error(err))
			c.emitEvent(Event{Type: EventTypeError, Timestamp: time.Now(), Error: err})
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			ch <- resp
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if !ok {
			c.logger.Warn("Response without pending request",
				log.String("id", resp.ID.String()),
				log.String("error", resp.Error))
		}
	}
}

func (c *Client) callQUIC(ctx context.Context, data []byte) (*codec.Response, error) {
	c.connMu.Lock()
	conn := c.quicConn
	c.connMu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open stream")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetDeadline(deadline)
	}

	if _, err := stream.Write(data); err != nil {
		stream.CancelRead(0)
		return nil, errors.Wrap(err, "write request")
	}
	if err := stream.Close(); err != nil {
		return nil, errors.Wrap(err, "close stream")
	}

	out, err := io.ReadAll(io.LimitReader(stream, c.config.MaxMessageSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "read response")
	}

	return encoding.Decode[codec.Response](out)
}

// emitEvent emits an event to registered handlers
func (c *Client) emitEvent(event Event) {
	c.handlerMutex.RLock()
	handlers := c.eventHandlers[event.Type]
	c.handlerMutex.RUnlock()

	for _, handler := range handlers {
		go func(h EventHandler) {
			if err := h(event); err != nil {
				c.logger.Error("Event handler error", log.Error(err))
			}
		}(handler)
	}
}
