package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"topfeed/internal/application/port"
)

type ServiceDeps struct {
	Feeds         []Feed
	Mint          string // 启动后订阅的 mint，可为空
	PrintEveryMin int
	Top           int // 快照行每个 feed 展示的条目数
	Sink          port.Sink
	Repo          port.Repository
	Commands      <-chan Command // 可为 nil
}

type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter

	target string
}

func NewService(deps ServiceDeps) *Service {
	if deps.Repo == nil {
		deps.Repo = NewNoopRepo()
	}
	if deps.PrintEveryMin <= 0 {
		deps.PrintEveryMin = 5
	}
	names := make([]string, 0, len(deps.Feeds))
	for _, f := range deps.Feeds {
		names = append(names, f.Name())
	}
	return &Service{
		deps:   deps,
		st:     NewState(names),
		fmt:    NewFormatter(deps.Top),
		target: strings.TrimSpace(deps.Mint),
	}
}

// Target returns the mint the service keeps subscribed.
func (s *Service) Target() string { return s.target }

// Run 连接所有 feed 并消费其状态变化，直到 ctx 结束或收到 quit
// 重新订阅由这里负责：feed 每次进入已连接状态时，若有目标 mint 则再次 Subscribe
func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Feeds) == 0 {
		return errors.New("no feeds")
	}

	// 先 cancel 再等待转发协程退出（defer 逆序执行）
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merged := make(chan int, len(s.deps.Feeds))

	// start feeds
	for i, feed := range s.deps.Feeds {
		if s.target != "" {
			// 只记录目标，连接打开后由 onConnected 发帧
			feed.Subscribe(s.target)
		}
		feed.Connect()

		wg.Add(1)
		go func(idx int, in <-chan struct{}) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-in:
					select {
					case merged <- idx:
					case <-ctx.Done():
						return
					}
				}
			}
		}(i, feed.Changes())

		log.Info().Str("feed", feed.Name()).Str("mint", s.target).Msg("feed started")
	}

	// snapshot ticker
	snapTicker := time.NewTicker(time.Duration(s.deps.PrintEveryMin) * time.Minute)
	defer snapTicker.Stop()

	// 输入结束后 channel 被关闭，置 nil 停止接收
	cmds := s.deps.Commands

	// initial live line
	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st.Snapshots(), RenderLive))

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case now := <-snapTicker.C:
			_ = s.deps.Sink.WriteSnapshot(now, s.fmt.Render(s.st.Snapshots(), RenderSnapshot))

		case cmd, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			if s.handle(cmd) {
				_ = s.deps.Sink.NewLine()
				return nil
			}

		case idx := <-merged:
			s.observe(ctx, s.deps.Feeds[idx])
		}
	}
}

func (s *Service) observe(ctx context.Context, feed Feed) {
	snap := feed.Snapshot()
	tr := s.st.Apply(snap)

	if tr.Connected {
		log.Info().Str("feed", feed.Name()).Msg("feed connected")
		if s.target != "" {
			feed.Subscribe(s.target)
		}
	}
	if tr.Disconnected {
		log.Warn().Str("feed", feed.Name()).Str("error", snap.Error).Msg("feed disconnected")
	}
	if tr.Updated && snap.ItemsMint != "" {
		s.persist(ctx, snap)
	}
	if tr.Any() {
		_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st.Snapshots(), RenderLive))
	}
}

// persist 只保存 (kind, mint) 的最新一份，不保留历史
// mint 取 items 被接受时的订阅目标，而不是当前目标
func (s *Service) persist(ctx context.Context, snap port.FeedSnapshot) {
	payload := string(snap.Raw)
	if payload == "" {
		payload = "[]"
	}
	err := s.deps.Repo.UpsertLatest(ctx, port.LatestSnapshot{
		Kind:    snap.Kind,
		Mint:    snap.ItemsMint,
		Count:   len(snap.Items),
		Payload: payload,
		Ts:      snap.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		log.Warn().Err(err).Str("feed", snap.Kind).Str("mint", snap.ItemsMint).Msg("persist latest failed")
	}
}

// handle applies a command to every feed; it reports whether the service should stop.
func (s *Service) handle(cmd Command) bool {
	switch cmd.Op {
	case OpSubscribe:
		mint := strings.TrimSpace(cmd.Mint)
		if mint == "" {
			return false
		}
		s.target = mint
		for _, f := range s.deps.Feeds {
			f.Subscribe(mint)
		}
		log.Info().Str("mint", mint).Msg("subscribe requested")
	case OpUnsubscribe:
		s.target = ""
		for _, f := range s.deps.Feeds {
			f.Unsubscribe()
		}
		log.Info().Msg("unsubscribe requested")
	case OpReconnect:
		for _, f := range s.deps.Feeds {
			f.Reconnect()
		}
		log.Info().Msg("reconnect requested")
	case OpStatus:
		// 直接读 feed，不更新 State，避免吞掉待处理的连接变化
		snaps := make([]port.FeedSnapshot, 0, len(s.deps.Feeds))
		for _, f := range s.deps.Feeds {
			snaps = append(snaps, f.Snapshot())
		}
		_ = s.deps.Sink.WriteSnapshot(time.Now(), s.fmt.Render(snaps, RenderSnapshot))
	case OpQuit:
		return true
	}
	return false
}
