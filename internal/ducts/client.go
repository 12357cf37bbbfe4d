// Package ducts implements the duplex-channel transport both Tutti sides
// expose: a JSON endpoint descriptor fetched over HTTP, then msgpack-framed
// request/response and server-push messages over a websocket.
package ducts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/iflb/neji-tutti-client/internal/ports"
)

const maxDescriptorBytes = 1 << 20

var (
	ErrNotOpen          = errors.New("duct is not open")
	ErrConnectionClosed = errors.New("duct connection closed")
)

// Client is a single-connection, single-session duct. The zero value of the
// exported fields is usable; call NewClient to construct.
type Client struct {
	HTTPClient     *http.Client
	Dialer         *websocket.Dialer
	RequestTimeout time.Duration
	Logger         *slog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	events   map[string]int64
	names    map[int64]string
	nextRID  int64
	pending  map[int64]chan callReply
	handlers map[string]func(map[string]any)
	onError  func(err error)
}

var _ ports.Duct = (*Client)(nil)

type callReply struct {
	payload map[string]any
	err     error
}

// descriptor is the JSON document served at the wsd endpoint. It names the
// websocket URL to dial and maps event names to their numeric wire IDs.
type descriptor struct {
	WebSocketURL string           `json:"websocket_url"`
	EventID      map[string]int64 `json:"event_id"`
}

func NewClient() *Client {
	return &Client{
		pending:  map[int64]chan callReply{},
		handlers: map[string]func(map[string]any){},
	}
}

func (c *Client) Open(ctx context.Context, wsdURL string) error {
	desc, err := c.fetchDescriptor(ctx, wsdURL)
	if err != nil {
		return err
	}

	wsURL, err := resolveWebSocketURL(wsdURL, desc.WebSocketURL)
	if err != nil {
		return err
	}

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial duct websocket: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.events = desc.EventID
	c.names = make(map[int64]string, len(desc.EventID))
	for name, id := range desc.EventID {
		c.names[id] = name
	}
	c.mu.Unlock()

	c.logger().Debug("duct opened", "url", wsURL, "events", len(desc.EventID))

	go c.readLoop(conn)

	return nil
}

func (c *Client) fetchDescriptor(ctx context.Context, wsdURL string) (descriptor, error) {
	requestCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout := c.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, wsdURL, nil)
	if err != nil {
		return descriptor{}, fmt.Errorf("create descriptor request: %w", err)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return descriptor{}, fmt.Errorf("fetch duct descriptor: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return descriptor{}, fmt.Errorf("fetch duct descriptor: status %d", resp.StatusCode)
	}

	var desc descriptor
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDescriptorBytes)).Decode(&desc); err != nil {
		return descriptor{}, fmt.Errorf("decode duct descriptor: %w", err)
	}
	if desc.WebSocketURL == "" {
		return descriptor{}, errors.New("duct descriptor missing websocket url")
	}

	return desc, nil
}

// resolveWebSocketURL makes the descriptor's websocket URL absolute against
// the descriptor endpoint and maps http(s) schemes to ws(s).
func resolveWebSocketURL(wsdURL, wsURL string) (string, error) {
	base, err := url.Parse(wsdURL)
	if err != nil {
		return "", fmt.Errorf("parse wsd url: %w", err)
	}

	target, err := base.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("parse websocket url: %w", err)
	}

	switch target.Scheme {
	case "http":
		target.Scheme = "ws"
	case "https":
		target.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported websocket scheme %q", target.Scheme)
	}

	return target.String(), nil
}

func (c *Client) Call(ctx context.Context, event string, payload map[string]any) (map[string]any, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotOpen
	}
	eid, ok := c.events[event]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("unknown duct event %q", event)
	}

	c.nextRID++
	rid := c.nextRID
	reply := make(chan callReply, 1)
	c.pending[rid] = reply
	err := c.writeFrame(rid, eid, payload)
	c.mu.Unlock()

	if err != nil {
		c.dropPending(rid)
		return nil, err
	}

	select {
	case <-ctx.Done():
		c.dropPending(rid)
		return nil, ctx.Err()
	case r := <-reply:
		return r.payload, r.err
	}
}

func (c *Client) Send(ctx context.Context, event string, payload map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotOpen
	}
	eid, ok := c.events[event]
	if !ok {
		return fmt.Errorf("unknown duct event %q", event)
	}

	c.nextRID++
	return c.writeFrame(c.nextRID, eid, payload)
}

// writeFrame encodes and writes one [rid, eid, payload] frame. Callers hold
// c.mu, which also serializes websocket writes.
func (c *Client) writeFrame(rid, eid int64, payload map[string]any) error {
	frame, err := msgpack.Marshal([]any{rid, eid, payload})
	if err != nil {
		return fmt.Errorf("encode duct frame: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("write duct frame: %w", err)
	}

	return nil
}

func (c *Client) Subscribe(event string, fn func(payload map[string]any)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fn == nil {
		delete(c.handlers, event)
		return
	}
	c.handlers[event] = fn
}

func (c *Client) SetErrorListener(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	c.failPending(ErrConnectionClosed)
	return err
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			open := c.conn == conn
			if open {
				c.conn = nil
			}
			onError := c.onError
			c.mu.Unlock()

			if open {
				c.logger().Debug("duct connection lost", "err", err)
				if onError != nil {
					onError(err)
				}
				c.failPending(fmt.Errorf("%w: %v", ErrConnectionClosed, err))
			}
			return
		}

		rid, eid, payload, err := decodeFrame(data)
		if err != nil {
			c.logger().Warn("dropping malformed duct frame", "err", err)
			continue
		}

		if rid > 0 {
			c.resolvePending(rid, payload)
			continue
		}
		c.dispatchPush(eid, payload)
	}
}

func (c *Client) resolvePending(rid int64, payload map[string]any) {
	c.mu.Lock()
	reply, ok := c.pending[rid]
	delete(c.pending, rid)
	c.mu.Unlock()

	if !ok {
		c.logger().Warn("dropping duct reply with no pending call", "rid", rid)
		return
	}
	reply <- callReply{payload: payload}
}

func (c *Client) dispatchPush(eid int64, payload map[string]any) {
	c.mu.Lock()
	name, ok := c.names[eid]
	var handler func(map[string]any)
	if ok {
		handler = c.handlers[name]
	}
	c.mu.Unlock()

	if handler == nil {
		c.logger().Debug("dropping unhandled duct push", "event_id", eid)
		return
	}
	handler(payload)
}

func (c *Client) dropPending(rid int64) {
	c.mu.Lock()
	delete(c.pending, rid)
	c.mu.Unlock()
}

func (c *Client) failPending(err error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = map[int64]chan callReply{}
	c.mu.Unlock()

	for _, reply := range pending {
		reply <- callReply{err: err}
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
