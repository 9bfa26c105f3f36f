package feed

import (
	"topfeed/internal/application/port"
	"topfeed/internal/domain/model"
	"topfeed/internal/infrastructure/websocket"
)

func init() {
	Register(model.HoldersKind.Name, func(baseURL string, opts websocket.Options) port.Feed {
		return websocket.NewManager[model.Holder](model.HoldersKind, Endpoint(baseURL, model.HoldersKind.Path), opts)
	})
	Register(model.TradersKind.Name, func(baseURL string, opts websocket.Options) port.Feed {
		return websocket.NewManager[model.Trader](model.TradersKind, Endpoint(baseURL, model.TradersKind.Path), opts)
	})
}
