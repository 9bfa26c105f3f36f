package monitor

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"topfeed/internal/application/port"
	"topfeed/internal/domain/model"
	"topfeed/internal/infrastructure/storage"
)

type fakeFeed struct {
	name string

	mu         sync.Mutex
	snap       port.FeedSnapshot
	subs       []string
	unsubs     int
	connects   int
	reconnects int
	closed     bool

	changes chan struct{}
}

func newFakeFeed(name string) *fakeFeed {
	return &fakeFeed{
		name:    name,
		snap:    port.FeedSnapshot{Kind: name, Status: "idle"},
		changes: make(chan struct{}, 1),
	}
}

func (f *fakeFeed) notify() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// update mutates the snapshot the way a manager would and signals a change.
func (f *fakeFeed) update(fn func(s *port.FeedSnapshot)) {
	f.mu.Lock()
	fn(&f.snap)
	f.mu.Unlock()
	f.notify()
}

func (f *fakeFeed) Name() string { return f.name }

func (f *fakeFeed) Connect() {
	f.mu.Lock()
	f.connects++
	f.snap.Status = "connecting"
	f.mu.Unlock()
}

func (f *fakeFeed) Subscribe(mint string) {
	f.mu.Lock()
	f.subs = append(f.subs, mint)
	f.snap.Target = mint
	f.snap.Subscribed = true
	f.mu.Unlock()
	f.notify()
}

func (f *fakeFeed) Unsubscribe() {
	f.mu.Lock()
	f.unsubs++
	f.snap.Target = ""
	f.snap.Subscribed = false
	f.snap.Items = nil
	f.snap.Raw = nil
	f.snap.ItemsMint = ""
	f.mu.Unlock()
	f.notify()
}

func (f *fakeFeed) Reconnect() {
	f.mu.Lock()
	f.reconnects++
	f.mu.Unlock()
}

func (f *fakeFeed) Snapshot() port.FeedSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeFeed) Changes() <-chan struct{} { return f.changes }

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeFeed) subscribeCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subs...)
}

func (f *fakeFeed) counts() (unsubs, reconnects int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubs, f.reconnects
}

type recordSink struct {
	mu        sync.Mutex
	live      []string
	snapshots []string
}

func (s *recordSink) WriteLive(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, line)
	return nil
}

func (s *recordSink) WriteSnapshot(ts time.Time, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, line)
	return nil
}

func (s *recordSink) NewLine() error { return nil }

func (s *recordSink) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

type harness struct {
	svc   *Service
	feeds []*fakeFeed
	sink  *recordSink
	repo  *storage.InMemoryRepo
	cmds  chan Command
	done  chan error
	stop  context.CancelFunc
}

func startService(t *testing.T, mint string, names ...string) *harness {
	t.Helper()
	h := &harness{
		sink: &recordSink{},
		repo: storage.NewInMemoryRepo(),
		cmds: make(chan Command),
		done: make(chan error, 1),
	}
	feeds := make([]Feed, 0, len(names))
	for _, n := range names {
		f := newFakeFeed(n)
		h.feeds = append(h.feeds, f)
		feeds = append(feeds, f)
	}
	h.svc = NewService(ServiceDeps{
		Feeds:         feeds,
		Mint:          mint,
		PrintEveryMin: 60,
		Top:           3,
		Sink:          h.sink,
		Repo:          h.repo,
		Commands:      h.cmds,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.stop = cancel
	go func() { h.done <- h.svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("service did not stop")
		}
	})
	return h
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestRunRequiresFeeds(t *testing.T) {
	svc := NewService(ServiceDeps{Sink: &recordSink{}})
	require.Error(t, svc.Run(context.Background()))
}

func TestStartupRecordsTargetAndConnects(t *testing.T) {
	h := startService(t, "MINT", "holders", "traders")

	for _, f := range h.feeds {
		eventually(t, func() bool { return len(f.subscribeCalls()) == 1 })
		require.Equal(t, []string{"MINT"}, f.subscribeCalls())
		f.mu.Lock()
		require.Equal(t, 1, f.connects)
		f.mu.Unlock()
	}
}

func TestResubscribeOnEveryConnect(t *testing.T) {
	h := startService(t, "MINT", "holders")
	f := h.feeds[0]
	eventually(t, func() bool { return len(f.subscribeCalls()) == 1 })

	f.update(func(s *port.FeedSnapshot) { s.IsConnected = true; s.Status = "open"; s.Opens++ })
	eventually(t, func() bool { return len(f.subscribeCalls()) == 2 })

	f.update(func(s *port.FeedSnapshot) {
		s.IsConnected = false
		s.Status = "closed"
		s.Error = "WebSocket connection error"
	})
	eventually(t, func() bool { return !h.svc.st.Snapshots()[0].IsConnected })

	f.update(func(s *port.FeedSnapshot) { s.IsConnected = true; s.Status = "open"; s.Error = ""; s.Opens++ })
	eventually(t, func() bool { return len(f.subscribeCalls()) == 3 })
	require.Equal(t, []string{"MINT", "MINT", "MINT"}, f.subscribeCalls())
}

func TestResubscribeWhenReconnectCoalesced(t *testing.T) {
	h := startService(t, "MINT", "holders")
	f := h.feeds[0]

	f.update(func(s *port.FeedSnapshot) { s.IsConnected = true; s.Opens = 1 })
	eventually(t, func() bool { return len(f.subscribeCalls()) == 2 })

	// close and reopen observed as a single change
	f.update(func(s *port.FeedSnapshot) { s.Opens = 2 })
	eventually(t, func() bool { return len(f.subscribeCalls()) == 3 })
}

func TestNoSubscribeWithoutTarget(t *testing.T) {
	h := startService(t, "", "holders")
	f := h.feeds[0]

	f.update(func(s *port.FeedSnapshot) { s.IsConnected = true; s.Status = "open"; s.Opens++ })
	eventually(t, func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		for _, l := range h.sink.live {
			if strings.Contains(l, "open") {
				return true
			}
		}
		return false
	})
	require.Empty(t, f.subscribeCalls())
}

func TestPersistLatestOnUpdate(t *testing.T) {
	h := startService(t, "MINT", "holders")
	f := h.feeds[0]

	raw := json.RawMessage(`[{"wallet_address":"w1"},{"wallet_address":"w2"}]`)
	at := time.UnixMilli(1714566645123)
	f.update(func(s *port.FeedSnapshot) {
		s.IsConnected = true
		s.Items = []model.Item{model.Holder{WalletAddress: "w1"}, model.Holder{WalletAddress: "w2"}}
		s.Raw = raw
		s.ItemsMint = s.Target
		s.Version = 1
		s.UpdatedAt = at
	})

	var got *port.LatestSnapshot
	eventually(t, func() bool {
		got, _ = h.repo.GetLatest(context.Background(), "holders", "MINT")
		return got != nil
	})
	require.Equal(t, 2, got.Count)
	require.JSONEq(t, string(raw), got.Payload)
	require.Equal(t, at.UnixMilli(), got.Ts)
}

func TestPersistUsesMintOfAcceptedItems(t *testing.T) {
	h := startService(t, "OLD", "holders")
	f := h.feeds[0]

	// items accepted under OLD, target already switched to NEW when observed
	f.update(func(s *port.FeedSnapshot) {
		s.IsConnected = true
		s.Items = []model.Item{model.Holder{WalletAddress: "w1"}}
		s.Raw = json.RawMessage(`[{"wallet_address":"w1"}]`)
		s.ItemsMint = "OLD"
		s.Target = "NEW"
		s.Version = 1
	})

	eventually(t, func() bool {
		got, _ := h.repo.GetLatest(context.Background(), "holders", "OLD")
		return got != nil
	})
	got, err := h.repo.GetLatest(context.Background(), "holders", "NEW")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestQuitStopsRunAndForwarders(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cmds := make(chan Command)
	svc := NewService(ServiceDeps{
		Feeds:    []Feed{newFakeFeed("holders"), newFakeFeed("traders")},
		Sink:     &recordSink{},
		Commands: cmds,
	})

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	cmds <- Command{Op: OpQuit}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("quit did not stop the service")
	}
}

func TestNoPersistWithoutTarget(t *testing.T) {
	h := startService(t, "", "traders")
	f := h.feeds[0]

	f.update(func(s *port.FeedSnapshot) {
		s.IsConnected = true
		s.Items = []model.Item{model.Trader{WalletAddress: "w"}}
		s.Raw = json.RawMessage(`[{"wallet_address":"w"}]`)
		s.Version = 1
	})
	eventually(t, func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return len(h.sink.live) > 1
	})
	got, err := h.repo.GetLatest(context.Background(), "traders", "")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCommands(t *testing.T) {
	h := startService(t, "", "holders", "traders")

	h.cmds <- Command{Op: OpSubscribe, Mint: " NEW "}
	for _, f := range h.feeds {
		eventually(t, func() bool { return len(f.subscribeCalls()) == 1 })
		require.Equal(t, "NEW", f.subscribeCalls()[0])
	}

	h.cmds <- Command{Op: OpSubscribe, Mint: "  "}
	h.cmds <- Command{Op: OpUnsubscribe}
	for _, f := range h.feeds {
		eventually(t, func() bool { u, _ := f.counts(); return u == 1 })
		require.Len(t, f.subscribeCalls(), 1)
	}

	h.cmds <- Command{Op: OpReconnect}
	for _, f := range h.feeds {
		eventually(t, func() bool { _, r := f.counts(); return r == 1 })
	}

	h.cmds <- Command{Op: OpStatus}
	eventually(t, func() bool { return h.sink.snapshotCount() == 1 })

	h.cmds <- Command{Op: OpQuit}
	select {
	case err := <-h.done:
		require.NoError(t, err)
		h.done <- nil
	case <-time.After(2 * time.Second):
		t.Fatal("quit did not stop the service")
	}
}

func TestClosedCommandChannelKeepsRunning(t *testing.T) {
	cmds := make(chan Command)
	close(cmds)
	f := newFakeFeed("holders")
	sink := &recordSink{}
	svc := NewService(ServiceDeps{Feeds: []Feed{f}, Sink: sink, Commands: cmds})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, svc.Run(ctx), context.DeadlineExceeded)
	require.Zero(t, sink.snapshotCount())
}
