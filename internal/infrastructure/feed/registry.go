package feed

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"topfeed/internal/application/port"
	"topfeed/internal/infrastructure/websocket"
)

// Factory 根据服务端基础地址构建某种数据的订阅管理器
type Factory func(baseURL string, opts websocket.Options) port.Feed

// registry maps kind names to their feed factories
var registry = make(map[string]Factory)

// Register 注册一个数据种类的 feed factory
// 内置种类在本包 init() 中自注册
func Register(kind string, factory Factory) {
	if factory == nil {
		log.Warn().Str("kind", kind).Msg("invalid feed factory")
		return
	}
	if _, exists := registry[kind]; exists {
		log.Warn().Str("kind", kind).Msg("feed factory already registered, overwriting")
	}
	registry[kind] = factory
	log.Debug().Str("kind", kind).Msg("feed factory registered")
}

// Get 获取已注册的 feed factory
func Get(kind string) (Factory, bool) {
	factory, ok := registry[kind]
	return factory, ok
}

// Kinds returns registered kind names in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Endpoint joins the feed base address and a kind path.
func Endpoint(baseURL, path string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
}
