package live

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"peerprep/interview/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	writeTimeout = 10 * time.Second
	closeWait    = time.Second
)

var (
	ErrNotConnected      = errors.New("live: not connected")
	ErrAlreadyConnected  = errors.New("live: already connected")
	ErrClosedDuringSetup = errors.New("live: connection closed before setup completed")
)

type Config struct {
	URL    string
	APIKey string
	// SetupTimeout bounds the wait for the setup acknowledgment.
	SetupTimeout time.Duration
	Dialer       *websocket.Dialer
}

// Client owns one duplex connection to a live model endpoint. It never
// reconnects on its own; a configuration change means Disconnect then Connect.
type Client struct {
	cfg    Config
	logger *zap.Logger
	id     string
	bus    *bus

	mu         sync.Mutex
	conn       *websocket.Conn
	done       chan struct{}
	cancelDial context.CancelFunc
	ready      bool
	config     models.LiveConfig

	writeMu sync.Mutex
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = models.DefaultSetupTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	return &Client{
		cfg:    cfg,
		logger: logger.With(zap.String("live_client", id)),
		id:     id,
		bus:    newBus(),
	}
}

func (c *Client) ID() string { return c.id }

// Subscribe registers h for kind. The returned function unsubscribes and is safe to call more than once.
// Handlers run on the connection's read goroutine in frame order; they must
// not block and must not call Disconnect.
func (c *Client) Subscribe(kind EventKind, h Handler) func() {
	return c.bus.subscribe(kind, h)
}

// Connected reports whether Connect has resolved and the transport is still open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.ready
}

// Config returns the configuration applied by the last Connect.
func (c *Client) Config() models.LiveConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Connect dials the endpoint, sends the setup handshake and waits for the
// setup acknowledgment. If none arrives within SetupTimeout it logs and
// returns successfully anyway.
func (c *Client) Connect(ctx context.Context, cfg models.LiveConfig) error {
	c.mu.Lock()
	if c.conn != nil || c.cancelDial != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancelDial = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.cancelDial = nil
		c.mu.Unlock()
		cancel()
	}()

	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	conn, _, err := c.cfg.Dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		err = fmt.Errorf("live: dial: %w", err)
		c.emit(Error{Err: err})
		return err
	}

	// the handshake goes out before the connection is visible to senders
	if err := c.write(conn, buildSetup(cfg)); err != nil {
		conn.Close()
		return err
	}

	setupDone := make(chan struct{})
	var setupOnce sync.Once
	done := make(chan struct{})

	c.mu.Lock()
	if dialCtx.Err() != nil {
		// disconnected while dialing
		c.mu.Unlock()
		conn.Close()
		return dialCtx.Err()
	}
	c.conn = conn
	c.done = done
	c.config = cfg
	c.mu.Unlock()

	c.emit(Open{})
	c.log("client.open", "connected")
	c.log("client.send", "setup")

	go c.readLoop(conn, done, func() { setupOnce.Do(func() { close(setupDone) }) })

	timer := time.NewTimer(c.cfg.SetupTimeout)
	defer timer.Stop()

	select {
	case <-setupDone:
		c.logger.Info("live setup complete", zap.String("model", cfg.Model))
	case <-timer.C:
		c.logger.Warn("setup acknowledgment not received, proceeding", zap.Duration("timeout", c.cfg.SetupTimeout))
		c.log("client.setup", "setup acknowledgment timed out")
	case <-done:
		return ErrClosedDuringSetup
	case <-dialCtx.Done():
		_ = c.Disconnect()
		return dialCtx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return ErrClosedDuringSetup
	}
	c.ready = true
	return nil
}

// Disconnect closes the connection and aborts an in-flight Connect.
// It is a no-op when already disconnected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.cancelDial != nil {
		c.cancelDial()
	}
	conn, done := c.conn, c.done
	c.conn = nil
	c.ready = false
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWait))
	c.writeMu.Unlock()

	select {
	case <-done:
	case <-time.After(closeWait):
	}
	err := conn.Close()
	select {
	case <-done:
	case <-time.After(closeWait):
		c.logger.Warn("read loop did not exit after close")
	}

	c.log("client.close", "disconnected")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("live: close: %w", err)
	}
	return nil
}

// Send delivers content parts to the model. turnComplete tells the model the
// user turn is finished.
func (c *Client) Send(parts []Part, turnComplete bool) error {
	msg := clientMessage{ClientContent: &clientContent{
		Turns:        []wireContent{{Role: "user", Parts: toWireParts(parts)}},
		TurnComplete: turnComplete,
	}}
	if err := c.send(msg); err != nil {
		return err
	}
	c.log("client.send", fmt.Sprintf("content parts=%d turnComplete=%t", len(parts), turnComplete))
	return nil
}

// SendRealtimeAudio streams one chunk of 16-bit little-endian PCM.
func (c *Client) SendRealtimeAudio(pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return c.send(clientMessage{RealtimeInput: &realtimeInput{Audio: &wireBlob{
		MIMEType: fmt.Sprintf("audio/pcm;rate=%d", sampleRate),
		Data:     base64.StdEncoding.EncodeToString(pcm),
	}}})
}

// SendToolResponse answers tool calls, correlated by call ID.
func (c *Client) SendToolResponse(responses ...models.ToolResponse) error {
	if err := c.send(clientMessage{ToolResponse: &toolResponseFrame{FunctionResponses: responses}}); err != nil {
		return err
	}
	c.log("client.toolResponse", fmt.Sprintf("responses=%d", len(responses)))
	return nil
}

func (c *Client) send(msg clientMessage) error {
	c.mu.Lock()
	conn := c.conn
	if !c.ready {
		conn = nil
	}
	c.mu.Unlock()

	if conn == nil {
		c.emit(Error{Err: ErrNotConnected})
		return ErrNotConnected
	}
	return c.write(conn, msg)
}

func (c *Client) write(conn *websocket.Conn, msg clientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		err = fmt.Errorf("live: write: %w", err)
		c.emit(Error{Err: err})
		return err
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}, onSetup func()) {
	closeEvent := Close{Code: websocket.CloseNormalClosure}
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.ready = false
		}
		c.mu.Unlock()
		// Close is published before done so a caller that waited on
		// Disconnect never sees it after a subsequent Open.
		c.emit(closeEvent)
		close(done)
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				closeEvent = Close{Code: ce.Code, Reason: ce.Text}
			} else {
				closeEvent = Close{Code: websocket.CloseAbnormalClosure, Reason: err.Error()}
			}
			if !isExpectedClose(err) && c.isCurrent(conn) {
				c.emit(Error{Err: fmt.Errorf("live: read: %w", err)})
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		// a partially decodable frame still delivers its remaining events
		events, err := decodeServerFrame(data)
		if err != nil {
			c.logger.Warn("malformed server frame content", zap.Error(err), zap.Int("events", len(events)))
			c.log("server.error", err.Error())
		}
		for _, ev := range events {
			c.log("server."+string(ev.Kind()), "")
			c.emit(ev)
			if _, ok := ev.(SetupComplete); ok {
				onSetup()
			}
		}
	}
}

func (c *Client) isCurrent(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

func (c *Client) emit(ev Event) {
	c.bus.publish(ev)
}

func (c *Client) log(kind, message string) {
	if kind == "server."+string(EventAudio) {
		return
	}
	c.logger.Debug("live event", zap.String("type", kind), zap.String("message", message))
	c.emit(Log{Time: time.Now(), Type: kind, Message: message})
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("live: invalid url: %w", err)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, websocket.ErrCloseSent)
}
