package port

import (
	"encoding/json"
	"time"

	"topfeed/internal/domain/model"
)

// FeedSnapshot 一个订阅管理器的只读视图，不区分数据种类
type FeedSnapshot struct {
	Kind        string
	Target      string
	Subscribed  bool
	IsConnected bool
	Error       string
	Status      string
	Items       []model.Item
	Raw         json.RawMessage // 最近一次被接受的 items 数组原文
	ItemsMint   string          // 接受 Items 时的订阅目标
	Version     uint64
	Opens       uint64 // 连接成功打开的次数
	UpdatedAt   time.Time
}

// Feed is the consumer-facing contract of a subscription manager.
type Feed interface {
	Name() string
	Connect()
	Subscribe(mint string)
	Unsubscribe()
	Reconnect()
	Snapshot() FeedSnapshot
	Changes() <-chan struct{}
	Close() error
}
