package ws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"tilewalk/client/internal/grid"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/movement"
	"tilewalk/client/internal/net/proto"
	"tilewalk/client/internal/telemetry"
)

// ErrClosed is returned by SendCommand once the connection has shut down.
var ErrClosed = errors.New("ws: connection closed")

// ErrBackpressure is returned when the outbound buffer is full.
var ErrBackpressure = errors.New("ws: outbound buffer full")

// ServerEvents receives decoded server messages.
type ServerEvents interface {
	// ExecuteServerRespMove receives id, the command the server answered;
	// empty when the server did not echo one.
	ExecuteServerRespMove(id string, mode motion.Mode, target grid.Coordinate, duration time.Duration)
	ExecuteServerRespTurn(dir grid.Direction)
	ExecuteServerRespMoveTooEarly()
	ExecuteServerLocation(target grid.Coordinate)
}

type Config struct {
	URL      string
	PlayerID string
	// SendRate limits outbound messages per second; zero disables pacing.
	SendRate     float64
	SendBurst    int
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
	Logger       telemetry.Logger
	Metrics      telemetry.Metrics
	Dialer       *websocket.Dialer
}

func (c Config) normalized() Config {
	if c.SendBurst < 1 {
		c.SendBurst = 4
	}
	if c.SendBuffer < 1 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NopMetrics{}
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	return c
}

// Client is the movement transport over a single websocket connection. It
// implements movement.NetworkClient and animation.Clock.
type Client struct {
	cfg      Config
	conn     *websocket.Conn
	events   ServerEvents
	outbound chan []byte
	limiter  *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
	rttNanos  atomic.Int64
}

// Dial connects to the server and starts the read, write and ping loops.
func Dial(ctx context.Context, cfg Config, events ServerEvents) (*Client, error) {
	cfg = cfg.normalized()
	if events == nil {
		return nil, errors.New("ws: server event sink is required")
	}
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if cfg.PlayerID != "" {
		query := target.Query()
		query.Set("id", cfg.PlayerID)
		target.RawQuery = query.Encode()
	}

	conn, resp, err := cfg.Dialer.DialContext(ctx, target.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target.Redacted(), err)
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:      cfg,
		conn:     conn,
		events:   events,
		outbound: make(chan []byte, cfg.SendBuffer),
		limiter:  rate.NewLimiter(limit, cfg.SendBurst),
		ctx:      runCtx,
		cancel:   cancel,
	}

	c.wg.Add(2)
	go c.readPump()
	go c.writePump()
	if cfg.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}
	return c, nil
}

// SendCommand queues a movement command for delivery.
func (c *Client) SendCommand(cmd movement.Command) error {
	data, err := proto.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case c.outbound <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	default:
		c.cfg.Metrics.Add(telemetry.KeyNetworkSendDrops, 1)
		return ErrBackpressure
	}
}

// Ping reports the last measured round trip.
func (c *Client) Ping() time.Duration {
	return time.Duration(c.rttNanos.Load())
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Err reports why the connection shut down, or nil after a local Close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close shuts the connection down and waits for the loops to exit.
func (c *Client) Close() error {
	c.shutdown(nil)
	c.wg.Wait()
	return nil
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.errMu.Lock()
		c.err = cause
		c.errMu.Unlock()
		c.cancel()
		deadline := time.Now().Add(time.Second)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.wg.Done()
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.cfg.Logger.Printf("[ws] read failed: %v", err)
			}
			c.shutdown(err)
			return
		}
		msg, err := proto.DecodeServerMessage(payload)
		if err != nil {
			c.cfg.Logger.Printf("[ws] discarding malformed message: %v", err)
			continue
		}
		if err := c.dispatch(msg); err != nil {
			c.cfg.Logger.Printf("[ws] discarding %s message: %v", msg.Type, err)
		}
	}
}

func (c *Client) dispatch(msg proto.ServerMessage) error {
	switch msg.Type {
	case proto.TypeMoveResp:
		mode, target, duration, err := msg.MoveResponse()
		if err != nil {
			return err
		}
		c.events.ExecuteServerRespMove(msg.ID, mode, target, duration)
	case proto.TypeTurnResp:
		dir, err := msg.TurnResponse()
		if err != nil {
			return err
		}
		c.events.ExecuteServerRespTurn(dir)
	case proto.TypeMoveTooEarly:
		c.events.ExecuteServerRespMoveTooEarly()
	case proto.TypeLocation:
		at, err := msg.Location()
		if err != nil {
			return err
		}
		c.events.ExecuteServerLocation(at)
	case proto.TypePing:
		if msg.ClientTime <= 0 {
			return errors.New("ping echo without client time")
		}
		rtt := time.Since(time.UnixMilli(msg.ClientTime))
		if rtt < 0 {
			rtt = 0
		}
		c.rttNanos.Store(int64(rtt))
		c.cfg.Metrics.Store(telemetry.KeyPingMillis, uint64(rtt.Milliseconds()))
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

func (c *Client) writePump() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.outbound:
			if err := c.limiter.Wait(c.ctx); err != nil {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.cfg.Logger.Printf("[ws] write failed: %v", err)
				c.shutdown(err)
				return
			}
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	c.sendPing()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.sendPing()
		}
	}
}

func (c *Client) sendPing() {
	data, err := proto.EncodePing(time.Now())
	if err != nil {
		return
	}
	if err := c.enqueue(data); err != nil && !errors.Is(err, ErrClosed) {
		c.cfg.Logger.Printf("[ws] ping dropped: %v", err)
	}
}
