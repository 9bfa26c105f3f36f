package svc

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"topfeed/internal/application/port"
	"topfeed/internal/application/usecase/monitor"
	"topfeed/internal/infrastructure/config"
	"topfeed/internal/infrastructure/container"
	"topfeed/internal/infrastructure/feed"
	"topfeed/internal/infrastructure/websocket"
	"topfeed/internal/interfaces/console"
)

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 存储层
	container *container.Container

	// 输出端口
	Sink port.Sink

	feeds []port.Feed
}

// New 创建并初始化 ServiceContext
// 应用启动的唯一装配入口：存储、feed、输出端口都在这里创建
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	c, err := container.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}

	sc := &ServiceContext{
		Ctx:       ctx,
		Config:    cfg,
		container: c,
		Sink:      console.NewSink(),
	}

	feeds, err := buildFeeds(cfg)
	if err != nil {
		_ = sc.Close()
		return nil, err
	}
	sc.feeds = feeds

	log.Info().
		Int("feeds", len(feeds)).
		Bool("storage", sc.Repository() != nil).
		Msg("all components initialized")
	return sc, nil
}

// ManagerOptions 把配置转换成订阅管理器参数
func ManagerOptions(cfg *config.Config) websocket.Options {
	opts := websocket.DefaultOptions()
	opts.HandshakeTimeout = cfg.Feed.HandshakeTimeout
	opts.PingInterval = cfg.Feed.PingInterval
	opts.PongWait = cfg.Feed.PongWait
	opts.WriteWait = cfg.Feed.WriteWait

	rc := cfg.Feed.Reconnect
	opts.Retry = websocket.RetryConfig{
		Enabled:    rc.Enabled,
		MaxRetries: rc.MaxRetries,
		InitialDel: rc.Min,
		MaxDelay:   rc.Max,
		Factor:     rc.Factor,
		Jitter:     rc.Jitter,
	}
	return opts
}

func buildFeeds(cfg *config.Config) ([]port.Feed, error) {
	opts := ManagerOptions(cfg)

	feeds := make([]port.Feed, 0, len(cfg.Feed.Kinds))
	for _, kind := range cfg.Feed.Kinds {
		factory, ok := feed.Get(kind)
		if !ok {
			for _, f := range feeds {
				_ = f.Close()
			}
			return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownKind, kind, feed.Kinds())
		}
		feeds = append(feeds, factory(cfg.Feed.BaseURL, opts))
		log.Info().Str("kind", kind).Str("base_url", cfg.Feed.BaseURL).Msg("feed created")
	}
	if len(feeds) == 0 {
		return nil, ErrNoFeedsEnabled
	}
	return feeds, nil
}

// Repository 返回已启用的存储，没有则为 nil
func (sc *ServiceContext) Repository() port.Repository {
	return sc.container.Repository()
}

// Feeds 获取已创建的订阅管理器
func (sc *ServiceContext) Feeds() []port.Feed {
	return sc.feeds
}

// BuildMonitorServiceDeps 构建 Monitor Service 所需的所有依赖
func (sc *ServiceContext) BuildMonitorServiceDeps(cmds <-chan monitor.Command) monitor.ServiceDeps {
	repo := sc.Repository()
	if repo == nil {
		repo = monitor.NewNoopRepo()
	}
	return monitor.ServiceDeps{
		Feeds:         sc.feeds,
		Mint:          sc.Config.App.Mint,
		PrintEveryMin: sc.Config.App.PrintEveryMin,
		Top:           sc.Config.App.Top,
		Sink:          sc.Sink,
		Repo:          repo,
		Commands:      cmds,
	}
}

// Close 先关闭所有订阅管理器（发送退订帧），再按后进先出关闭存储
func (sc *ServiceContext) Close() error {
	for _, f := range sc.feeds {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("feed", f.Name()).Msg("error closing feed")
		}
	}
	sc.feeds = nil
	return sc.container.Close()
}
