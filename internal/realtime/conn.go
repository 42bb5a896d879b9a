package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/logging"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/shared/types"
)

// ErrNotConnected is returned by Emit while the stream is down
var ErrNotConnected = errors.New("realtime channel is not connected")

const writeTimeout = 10 * time.Second

// ConnConfig configures the event stream
type ConnConfig struct {
	// URL is the websocket endpoint, e.g. ws://api.localhost:4100/socket
	URL   string
	Token string
	// SocketID identifies this session to the server. Events it caused
	// come back carrying the same id.
	SocketID string

	ReconnectMin time.Duration
	ReconnectMax time.Duration
	// OnReconnect is called before every reconnect attempt
	OnReconnect func(attempt int, delay time.Duration)

	Dialer  *websocket.Dialer
	Metrics *monitoring.Metrics
	Logger  *logging.Logger
}

// Conn is a self-healing websocket client for the server event stream
type Conn struct {
	cfg    ConnConfig
	dialer *websocket.Dialer
	logger *logging.Logger

	mu sync.Mutex
	ws *websocket.Conn

	attempts  atomic.Int64
	connected atomic.Bool
	closed    atomic.Bool
}

// NewConn creates a connection. Nothing is dialled until Run.
func NewConn(cfg ConnConfig) *Conn {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = 500 * time.Millisecond
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * time.Second
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 15 * time.Second, Proxy: http.ProxyFromEnvironment}
	}
	return &Conn{
		cfg:    cfg,
		dialer: dialer,
		logger: cfg.Logger.OrNop().Named("realtime"),
	}
}

// Attempts returns the number of reconnect attempts so far
func (c *Conn) Attempts() int {
	return int(c.attempts.Load())
}

// Connected reports whether the stream is currently up
func (c *Conn) Connected() bool {
	return c.connected.Load()
}

// Run connects and delivers every envelope to handle until ctx is done
// or Close is called. Dropped connections are re-established with
// exponential backoff; handle is never called concurrently.
func (c *Conn) Run(ctx context.Context, handle func(types.Envelope)) error {
	delay := c.cfg.ReconnectMin
	first := true
	for {
		if !first {
			attempt := int(c.attempts.Add(1))
			c.cfg.Metrics.IncReconnects()
			c.logger.Info("reconnecting", zap.Int("attempt", attempt), zap.Duration("delay", delay))
			if c.cfg.OnReconnect != nil {
				c.cfg.OnReconnect(attempt, delay)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		first = false
		if c.closed.Load() {
			return nil
		}

		ws, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("realtime dial failed", zap.Error(err))
			delay = next(delay, c.cfg.ReconnectMax)
			continue
		}
		delay = c.cfg.ReconnectMin

		err = c.read(ctx, ws, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.closed.Load() {
			return nil
		}
		c.logger.Warn("realtime connection lost", zap.Error(err))
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	q := u.Query()
	q.Set("socket_id", c.cfg.SocketID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	ws, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
	c.connected.Store(true)
	c.cfg.Metrics.SetRealtimeConnected(true)
	c.logger.Info("realtime connected", zap.String("socket_id", c.cfg.SocketID))
	return ws, nil
}

// read pumps messages until the connection breaks
func (c *Conn) read(ctx context.Context, ws *websocket.Conn, handle func(types.Envelope)) error {
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()
	defer func() {
		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
		c.connected.Store(false)
		c.cfg.Metrics.SetRealtimeConnected(false)
		_ = ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		var env types.Envelope
		if err := sonic.Unmarshal(data, &env); err != nil {
			c.logger.Warn("dropping malformed realtime message", zap.Error(err))
			continue
		}
		if env.Event == "" {
			continue
		}
		handle(env)
	}
}

// Emit sends an event to the server, which fans it out to the user's
// other sessions
func (c *Conn) Emit(event string, payload any) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	msg, err := sonic.Marshal(types.Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

// Close stops Run and closes the current connection
func (c *Conn) Close() error {
	c.closed.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return nil
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

// next doubles delay up to ceiling
func next(delay, ceiling time.Duration) time.Duration {
	delay *= 2
	if delay > ceiling {
		return ceiling
	}
	return delay
}
