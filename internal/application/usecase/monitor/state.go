package monitor

import (
	"sync"

	"topfeed/internal/application/port"
)

// Transition 一次快照相对上一次快照的变化
type Transition struct {
	Connected    bool // 新打开了一条连接
	Disconnected bool // true -> false
	Updated      bool // Version 增加
	ErrorChanged bool
}

// Any reports whether anything visible changed.
func (t Transition) Any() bool {
	return t.Connected || t.Disconnected || t.Updated || t.ErrorChanged
}

type feedState struct {
	seen      bool
	connected bool
	opens     uint64
	version   uint64
	errMsg    string
	snap      port.FeedSnapshot
}

// State 记录每个 feed 最近一次观察到的快照，按 feed 注册顺序输出
type State struct {
	mu sync.Mutex

	order []string
	feeds map[string]*feedState
}

func NewState(names []string) *State {
	order := make([]string, 0, len(names))
	feeds := make(map[string]*feedState, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := feeds[n]; ok {
			continue
		}
		order = append(order, n)
		feeds[n] = &feedState{}
	}
	return &State{order: order, feeds: feeds}
}

func (s *State) Names() []string {
	return s.order
}

// Apply 记录 feed 的最新快照，返回与上一次相比的变化
// 未注册的 feed 返回零值
func (s *State) Apply(snap port.FeedSnapshot) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := s.feeds[snap.Kind]
	if fs == nil {
		return Transition{}
	}

	// Opens 变化说明期间至少开过一条新连接，即使断开重连被合并成一次通知
	var tr Transition
	switch {
	case snap.IsConnected && (!fs.connected || snap.Opens != fs.opens):
		tr.Connected = true
	case !snap.IsConnected && fs.connected:
		tr.Disconnected = true
	}
	if snap.Version != fs.version {
		tr.Updated = true
	}
	if snap.Error != fs.errMsg {
		tr.ErrorChanged = true
	}
	if !fs.seen {
		fs.seen = true
		tr.ErrorChanged = tr.ErrorChanged || snap.Error != ""
	}

	fs.connected = snap.IsConnected
	fs.opens = snap.Opens
	fs.version = snap.Version
	fs.errMsg = snap.Error
	fs.snap = snap
	return tr
}

// Snapshots returns the last snapshot of every feed in registration order.
// Feeds never observed are reported with only Kind set.
func (s *State) Snapshots() []port.FeedSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]port.FeedSnapshot, 0, len(s.order))
	for _, n := range s.order {
		fs := s.feeds[n]
		if !fs.seen {
			out = append(out, port.FeedSnapshot{Kind: n, Status: "idle"})
			continue
		}
		out = append(out, fs.snap)
	}
	return out
}
