package model

import "fmt"

// Kind 描述一种推送数据（holders / traders）
// 只有 Key、UpdateType、SnapshotType 参与消息归一化
type Kind struct {
	Name         string // "holders"
	Key          string // items 数组所在的 JSON 键
	UpdateType   string // 增量推送的 type，如 "top_holders_update"
	SnapshotType string // 全量推送的 type，如 "top_holders"
	Path         string // 服务端路径，如 "/ws/new/top-holders"
}

var (
	HoldersKind = Kind{
		Name:         "holders",
		Key:          "holders",
		UpdateType:   "top_holders_update",
		SnapshotType: "top_holders",
		Path:         "/ws/new/top-holders",
	}

	TradersKind = Kind{
		Name:         "traders",
		Key:          "traders",
		UpdateType:   "top_traders_update",
		SnapshotType: "top_traders",
		Path:         "/ws/new/top-traders",
	}
)

func (k Kind) String() string { return k.Name }

// Validate checks that every field used by normalization is set.
func (k Kind) Validate() error {
	switch {
	case k.Name == "":
		return fmt.Errorf("kind name empty")
	case k.Key == "":
		return fmt.Errorf("kind %s: key empty", k.Name)
	case k.UpdateType == "":
		return fmt.Errorf("kind %s: update type empty", k.Name)
	case k.SnapshotType == "":
		return fmt.Errorf("kind %s: snapshot type empty", k.Name)
	}
	return nil
}

// Item is a single record of a top-wallets collection.
type Item interface {
	Wallet() string
	Summary() string
}
