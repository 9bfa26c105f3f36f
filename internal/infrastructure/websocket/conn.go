package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ConnState 连接状态机：Idle → Connecting → Open → Closed
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "idle"
	}
}

const outboundBuffer = 16

// events is implemented by the owner of a connection. Every callback carries
// the connection it came from so the owner can drop events of replaced ones.
type events interface {
	onOpen(c *connection)
	onMessage(c *connection, payload []byte)
	onError(c *connection, err error)
	onClose(c *connection)
}

// connection 一条 WebSocket 连接及其读写 goroutine
type connection struct {
	id  string
	url string
	log zerolog.Logger

	dialer       *websocket.Dialer
	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration

	// state is guarded by the owner's mutex.
	state ConnState

	ctx       context.Context
	cancel    context.CancelFunc
	out       chan []byte
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

type connConfig struct {
	dialer       *websocket.Dialer
	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration
}

func newConnection(url string, cfg connConfig, logger zerolog.Logger) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &connection{
		id:           id,
		url:          url,
		log:          logger.With().Str("conn_id", id).Logger(),
		dialer:       cfg.dialer,
		pingInterval: cfg.pingInterval,
		pongWait:     cfg.pongWait,
		writeWait:    cfg.writeWait,
		state:        StateConnecting,
		ctx:          ctx,
		cancel:       cancel,
		out:          make(chan []byte, outboundBuffer),
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// shutdown 请求关闭连接：取消拨号，写协程发送剩余帧后关闭底层连接
func (c *connection) shutdown() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.closing)
	})
}

func (c *connection) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

// send queues a frame for the writer. It never blocks.
func (c *connection) send(frame []byte) bool {
	if c.isClosing() {
		return false
	}
	select {
	case c.out <- frame:
		return true
	default:
		c.log.Warn().Msg("outbound buffer full, frame dropped")
		return false
	}
}

// run dials and then pumps events to h until the connection ends.
func (c *connection) run(h events) {
	defer close(c.done)

	c.log.Info().Str("url", c.url).Msg("ws connecting")
	ws, _, err := c.dialer.DialContext(c.ctx, c.url, nil)
	if err != nil {
		if c.isClosing() {
			return
		}
		c.log.Error().Err(err).Msg("ws dial failed")
		c.shutdown()
		h.onError(c, err)
		h.onClose(c)
		return
	}
	if c.isClosing() {
		_ = ws.Close()
		return
	}

	h.onOpen(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ws)
	}()

	err = c.readLoop(ws, func(b []byte) { h.onMessage(c, b) })
	closedByUs := c.isClosing()
	c.shutdown()
	<-writerDone

	switch {
	case closedByUs:
		c.log.Info().Msg("ws closed")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Warn().Err(err).Msg("ws closed by server")
	default:
		c.log.Warn().Err(err).Msg("ws disconnected")
		h.onError(c, err)
	}
	h.onClose(c)
}

func (c *connection) readLoop(ws *websocket.Conn, onMsg func([]byte)) error {
	c.extendReadDeadline(ws)
	ws.SetPongHandler(func(string) error {
		c.extendReadDeadline(ws)
		return nil
	})

	for {
		_, b, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		c.extendReadDeadline(ws)
		onMsg(b)
	}
}

func (c *connection) extendReadDeadline(ws *websocket.Conn) {
	if c.pongWait <= 0 {
		return
	}
	_ = ws.SetReadDeadline(time.Now().Add(c.pongWait))
}

// writeLoop is the only writer of ws. On shutdown it flushes queued frames,
// sends a close frame and closes the socket, which unblocks readLoop.
func (c *connection) writeLoop(ws *websocket.Conn) {
	var pingC <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}

	for {
		select {
		case b := <-c.out:
			if err := c.write(ws, b); err != nil {
				c.log.Error().Err(err).Msg("ws write failed")
			}
		case <-pingC:
			_ = ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(c.deadline()))
		case <-c.closing:
			c.flush(ws)
			_ = ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			_ = ws.Close()
			return
		}
	}
}

func (c *connection) flush(ws *websocket.Conn) {
	for {
		select {
		case b := <-c.out:
			if err := c.write(ws, b); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *connection) write(ws *websocket.Conn, b []byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(c.deadline()))
	return ws.WriteMessage(websocket.TextMessage, b)
}

func (c *connection) deadline() time.Duration {
	if c.writeWait > 0 {
		return c.writeWait
	}
	return 5 * time.Second
}
