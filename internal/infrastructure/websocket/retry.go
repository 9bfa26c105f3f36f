package websocket

import (
	"time"

	"github.com/jpillora/backoff"
)

// RetryConfig 断线自动重连策略；默认关闭，只支持手动 Reconnect
type RetryConfig struct {
	Enabled    bool
	MaxRetries int           // 连续失败上限，0 表示不限
	InitialDel time.Duration // 初始延迟
	MaxDelay   time.Duration // 最大延迟
	Factor     float64       // 指数因子
	Jitter     bool
}

// DefaultRetryConfig 默认重试配置（未启用）
var DefaultRetryConfig = RetryConfig{
	Enabled:    false,
	MaxRetries: 0,
	InitialDel: 1 * time.Second,
	MaxDelay:   30 * time.Second,
	Factor:     2,
	Jitter:     true,
}

func (r RetryConfig) newBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    r.InitialDel,
		Max:    r.MaxDelay,
		Factor: r.Factor,
		Jitter: r.Jitter,
	}
}

// exhausted reports whether attempts already made reach the retry cap.
func (r RetryConfig) exhausted(attempts float64) bool {
	return r.MaxRetries > 0 && int(attempts) >= r.MaxRetries
}
