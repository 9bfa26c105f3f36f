package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Trader 交易者记录；未声明的字段保存在 Extra 中
type Trader struct {
	WalletAddress       string   `json:"wallet_address"`
	TotalVolumeUSD      *float64 `json:"total_volume_usd,omitempty"`
	TotalTrades         *float64 `json:"total_trades,omitempty"`
	BuyVolumeUSD        *float64 `json:"buy_volume_usd,omitempty"`
	SellVolumeUSD       *float64 `json:"sell_volume_usd,omitempty"`
	NetVolumeUSD        *float64 `json:"net_volume_usd,omitempty"`
	FirstTradeTimestamp *string  `json:"first_trade_timestamp,omitempty"`
	LastTradeTimestamp  *string  `json:"last_trade_timestamp,omitempty"`
	PnlUSD              *float64 `json:"pnl_usd,omitempty"`
	WinRate             *float64 `json:"win_rate,omitempty"`
	BoughtUSD           *float64 `json:"bought_usd,omitempty"`
	BoughtTokens        *float64 `json:"bought_tokens,omitempty"`
	SoldUSD             *float64 `json:"sold_usd,omitempty"`
	SoldTokens          *float64 `json:"sold_tokens,omitempty"`
	BuyCount            *float64 `json:"buy_count,omitempty"`
	SellCount           *float64 `json:"sell_count,omitempty"`
	RealizedPnlUSD      *float64 `json:"realized_pnl_usd,omitempty"`
	RealizedPnlPct      *float64 `json:"realized_pnl_pct,omitempty"`
	CurrentTokenBalance *float64 `json:"current_token_balance,omitempty"`
	CurrentSolBalance   *float64 `json:"current_sol_balance,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var traderFields = fieldIndex(Trader{})

func (t *Trader) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var p Trader
	extra, err := decodeOpen(b, &p, traderFields)
	if err != nil {
		return err
	}
	p.Extra = extra
	*t = p
	return nil
}

func (t Trader) MarshalJSON() ([]byte, error) {
	type plain Trader
	b, err := json.Marshal(plain(t))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, t.Extra)
}

func (t Trader) Wallet() string { return t.WalletAddress }

func (t Trader) Summary() string {
	parts := []string{ShortAddress(t.WalletAddress)}
	if t.TotalVolumeUSD != nil {
		parts = append(parts, fmt.Sprintf("vol=$%.2f", *t.TotalVolumeUSD))
	}
	if t.TotalTrades != nil {
		parts = append(parts, fmt.Sprintf("trades=%.0f", *t.TotalTrades))
	}
	if t.PnlUSD != nil {
		parts = append(parts, fmt.Sprintf("pnl=%+.2f", *t.PnlUSD))
	}
	if t.WinRate != nil {
		parts = append(parts, fmt.Sprintf("win=%.1f%%", *t.WinRate))
	}
	return strings.Join(parts, " ")
}
