package websocket

import (
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"topfeed/internal/application/port"
	"topfeed/internal/domain/model"
)

// Human-readable errors surfaced through State.Error.
const (
	ErrMsgCreate     = "Failed to create WebSocket connection"
	ErrMsgConnection = "WebSocket connection error"
)

var (
	errBadScheme = errors.New("scheme must be ws or wss")
	errNoHost    = errors.New("missing host")
)

// Options 管理器的传输层参数
type Options struct {
	HandshakeTimeout time.Duration // 0 表示不限制
	PingInterval     time.Duration // 0 关闭心跳
	PongWait         time.Duration // 读超时，0 关闭
	WriteWait        time.Duration
	Retry            RetryConfig
	Now              func() time.Time
}

// DefaultOptions 与交易所客户端一致的心跳参数，不设握手超时
func DefaultOptions() Options {
	return Options{
		PingInterval: 25 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    5 * time.Second,
		Retry:        DefaultRetryConfig,
		Now:          time.Now,
	}
}

// State is the observable state of a Manager.
type State[T model.Item] struct {
	Items       []T
	IsConnected bool
	Error       string
	Target      string
	Subscribed  bool
	Status      ConnState
	Version     uint64 // incremented on every accepted update
	UpdatedAt   time.Time
}

// Manager 单连接订阅管理器
// 同一时刻最多持有一条连接，一次只订阅一个 mint
// 所有状态变更在 mu 下串行执行；旧连接的事件直接丢弃
type Manager[T model.Item] struct {
	kind model.Kind
	url  string
	opts Options
	cfg  connConfig
	log  zerolog.Logger

	mu         sync.Mutex
	conn       *connection
	status     ConnState
	target     string
	subscribed bool
	items      []T
	raw        json.RawMessage
	rawTarget  string
	connected  bool
	errMsg     string
	version    uint64
	opens      uint64
	updatedAt  time.Time
	closed     bool

	retry      *backoff.Backoff
	retryTimer *time.Timer

	changes chan struct{}
}

// NewManager 创建管理器，不会立即建立连接
func NewManager[T model.Item](kind model.Kind, endpoint string, opts Options) *Manager[T] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager[T]{
		kind: kind,
		url:  endpoint,
		opts: opts,
		cfg: connConfig{
			dialer: &websocket.Dialer{
				Proxy:            websocket.DefaultDialer.Proxy,
				HandshakeTimeout: opts.HandshakeTimeout,
			},
			pingInterval: opts.PingInterval,
			pongWait:     opts.PongWait,
			writeWait:    opts.WriteWait,
		},
		log:     log.With().Str("kind", kind.Name).Logger(),
		status:  StateIdle,
		items:   []T{},
		retry:   opts.Retry.newBackoff(),
		changes: make(chan struct{}, 1),
	}
}

// Open creates a manager and starts connecting.
func Open[T model.Item](kind model.Kind, endpoint string, opts Options) *Manager[T] {
	m := NewManager[T](kind, endpoint, opts)
	m.Connect()
	return m
}

func (m *Manager[T]) Name() string { return m.kind.Name }

func (m *Manager[T]) Kind() model.Kind { return m.kind }

func (m *Manager[T]) URL() string { return m.url }

// Connect 建立连接；已打开时为空操作，否则先释放旧连接再拨号
// 拨号在后台进行，调用立即返回
func (m *Manager[T]) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectLocked()
}

// Reconnect re-runs Connect with the same idempotency rules.
func (m *Manager[T]) Reconnect() {
	m.Connect()
}

func (m *Manager[T]) connectLocked() {
	if m.closed {
		return
	}
	if m.conn != nil && m.conn.state == StateOpen {
		return
	}
	m.stopRetryLocked()

	if m.conn != nil {
		m.conn.shutdown()
		m.conn = nil
	}

	if err := validateEndpoint(m.url); err != nil {
		m.log.Error().Err(err).Str("url", m.url).Msg("invalid ws endpoint")
		m.errMsg = ErrMsgCreate
		m.status = StateClosed
		m.notifyLocked()
		return
	}

	c := newConnection(m.url, m.cfg, m.log)
	m.conn = c
	m.status = StateConnecting
	m.notifyLocked()
	go c.run(m)
}

// Subscribe 记录订阅目标；仅在连接打开时发送订阅帧，否则静默跳过
func (m *Manager[T]) Subscribe(mint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.target = mint
	m.subscribed = true
	m.notifyLocked()

	if !m.isOpenLocked() {
		m.log.Debug().Str("mint", mint).Msg("not connected, subscribe frame skipped")
		return
	}
	frame, err := subscribeFrame(mint, m.opts.Now())
	if err != nil {
		m.log.Error().Err(err).Msg("encode subscribe frame failed")
		return
	}
	if m.conn.send(frame) {
		m.log.Info().Str("mint", mint).Msg("subscribe sent")
	}
}

// Unsubscribe 清空订阅目标与 items；连接打开时发送退订帧
func (m *Manager[T]) Unsubscribe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.unsubscribeLocked()
	m.notifyLocked()
}

func (m *Manager[T]) unsubscribeLocked() {
	m.target = ""
	m.subscribed = false
	m.items = []T{}
	m.raw = nil
	m.rawTarget = ""

	if !m.isOpenLocked() {
		return
	}
	frame, err := unsubscribeFrame(m.opts.Now())
	if err != nil {
		m.log.Error().Err(err).Msg("encode unsubscribe frame failed")
		return
	}
	if m.conn.send(frame) {
		m.log.Info().Msg("unsubscribe sent")
	}
}

// Close 释放管理器：尽力发送退订帧后强制关闭连接，并等待读写协程退出
func (m *Manager[T]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.unsubscribeLocked()
	m.closed = true
	m.stopRetryLocked()
	c := m.conn
	m.conn = nil
	m.connected = false
	m.status = StateClosed
	m.notifyLocked()
	m.mu.Unlock()

	if c != nil {
		c.shutdown()
		<-c.done
	}
	m.log.Info().Msg("manager closed")
	return nil
}

// State returns a copy of the observable state.
func (m *Manager[T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]T, len(m.items))
	copy(items, m.items)
	return State[T]{
		Items:       items,
		IsConnected: m.connected,
		Error:       m.errMsg,
		Target:      m.target,
		Subscribed:  m.subscribed,
		Status:      m.status,
		Version:     m.version,
		UpdatedAt:   m.updatedAt,
	}
}

// Snapshot adapts State to the kind-agnostic port view.
func (m *Manager[T]) Snapshot() port.FeedSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.Item, 0, len(m.items))
	for _, it := range m.items {
		items = append(items, it)
	}
	raw := make(json.RawMessage, len(m.raw))
	copy(raw, m.raw)
	return port.FeedSnapshot{
		Kind:        m.kind.Name,
		Target:      m.target,
		Subscribed:  m.subscribed,
		IsConnected: m.connected,
		Error:       m.errMsg,
		Status:      m.status.String(),
		Items:       items,
		Raw:         raw,
		ItemsMint:   m.rawTarget,
		Version:     m.version,
		Opens:       m.opens,
		UpdatedAt:   m.updatedAt,
	}
}

// Changes 状态变更通知；容量为 1，多次变更会被合并
func (m *Manager[T]) Changes() <-chan struct{} {
	return m.changes
}

func (m *Manager[T]) notifyLocked() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Manager[T]) isOpenLocked() bool {
	return m.conn != nil && m.conn.state == StateOpen
}

func (m *Manager[T]) onOpen(c *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != c {
		return
	}
	c.state = StateOpen
	m.status = StateOpen
	m.connected = true
	m.opens++
	m.errMsg = ""
	m.retry.Reset()
	m.notifyLocked()
	c.log.Info().Msg("ws connected")
}

func (m *Manager[T]) onMessage(c *connection, payload []byte) {
	res, rule, ok := Normalize(m.kind, payload)
	if !ok {
		c.log.Debug().Stringer("rule", rule).Int("bytes", len(payload)).Msg("message ignored")
		return
	}
	items := make([]T, 0)
	if err := json.Unmarshal([]byte(res.Raw), &items); err != nil {
		c.log.Debug().Err(err).Stringer("rule", rule).Msg("items decode failed, message ignored")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != c {
		return
	}
	m.items = items
	m.raw = json.RawMessage(res.Raw)
	m.rawTarget = m.target
	m.version++
	m.updatedAt = m.opts.Now()
	m.notifyLocked()
}

func (m *Manager[T]) onError(c *connection, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != c {
		return
	}
	m.errMsg = ErrMsgConnection
	m.connected = false
	m.notifyLocked()
}

func (m *Manager[T]) onClose(c *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != c {
		return
	}
	c.state = StateClosed
	m.status = StateClosed
	m.connected = false
	m.notifyLocked()
	m.scheduleRetryLocked()
}

// scheduleRetryLocked 启用自动重连时按指数退避安排下一次 Connect
// 不会自动重新订阅
func (m *Manager[T]) scheduleRetryLocked() {
	cfg := m.opts.Retry
	if !cfg.Enabled || m.closed || m.retryTimer != nil {
		return
	}
	if cfg.exhausted(m.retry.Attempt()) {
		m.log.Warn().Int("max_retries", cfg.MaxRetries).Msg("reconnect attempts exhausted")
		return
	}
	delay := m.retry.Duration()
	m.log.Info().
		Float64("attempt", m.retry.Attempt()).
		Int64("delay_ms", delay.Milliseconds()).
		Msg("scheduling reconnect")
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// 已被 stopRetryLocked 取消或替换的定时器不再生效
		if m.retryTimer != t {
			return
		}
		m.retryTimer = nil
		m.connectLocked()
	})
	m.retryTimer = t
}

func (m *Manager[T]) stopRetryLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

var _ port.Feed = (*Manager[model.Holder])(nil)

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return &url.Error{Op: "parse", URL: endpoint, Err: errBadScheme}
	}
	if u.Host == "" {
		return &url.Error{Op: "parse", URL: endpoint, Err: errNoHost}
	}
	return nil
}
