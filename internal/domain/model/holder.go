package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Holder 代币持有者记录；未声明的字段保存在 Extra 中
type Holder struct {
	WalletAddress               string   `json:"wallet_address"`
	CurrentTokenBalance         *float64 `json:"current_token_balance,omitempty"`
	TokenBalanceUSD             *float64 `json:"token_balance_usd,omitempty"`
	HolderRank                  *float64 `json:"holder_rank,omitempty"`
	PercentageOfSupply          *float64 `json:"percentage_of_supply,omitempty"`
	UnrealizedPnlUSD            *float64 `json:"unrealized_pnl_usd,omitempty"`
	UnrealizedPnlPct            *float64 `json:"unrealized_pnl_pct,omitempty"`
	RealizedPnlUSD              *float64 `json:"realized_pnl_usd,omitempty"`
	RealizedPnlPct              *float64 `json:"realized_pnl_pct,omitempty"`
	FirstBuyTimestamp           *float64 `json:"first_buy_timestamp,omitempty"`
	LastActivityTimestamp       *float64 `json:"last_activity_timestamp,omitempty"`
	LastGlobalActivityTimestamp *float64 `json:"last_global_activity_timestamp,omitempty"`
	BuyCount                    *float64 `json:"buy_count,omitempty"`
	SellCount                   *float64 `json:"sell_count,omitempty"`
	BoughtUSD                   *float64 `json:"bought_usd,omitempty"`
	SoldUSD                     *float64 `json:"sold_usd,omitempty"`
	BoughtTokens                *float64 `json:"bought_tokens,omitempty"`
	SoldTokens                  *float64 `json:"sold_tokens,omitempty"`
	CurrentSolBalance           *float64 `json:"current_sol_balance,omitempty"`
	TransferredAmount           *float64 `json:"transferred_amount,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var holderFields = fieldIndex(Holder{})

func (h *Holder) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var p Holder
	extra, err := decodeOpen(b, &p, holderFields)
	if err != nil {
		return err
	}
	p.Extra = extra
	*h = p
	return nil
}

func (h Holder) MarshalJSON() ([]byte, error) {
	type plain Holder
	b, err := json.Marshal(plain(h))
	if err != nil {
		return nil, err
	}
	return mergeExtra(b, h.Extra)
}

func (h Holder) Wallet() string { return h.WalletAddress }

func (h Holder) Summary() string {
	parts := []string{ShortAddress(h.WalletAddress)}
	if h.HolderRank != nil {
		parts = append(parts, fmt.Sprintf("#%.0f", *h.HolderRank))
	}
	if h.TokenBalanceUSD != nil {
		parts = append(parts, fmt.Sprintf("bal=$%.2f", *h.TokenBalanceUSD))
	}
	if h.PercentageOfSupply != nil {
		parts = append(parts, fmt.Sprintf("supply=%.2f%%", *h.PercentageOfSupply))
	}
	if h.UnrealizedPnlUSD != nil {
		parts = append(parts, fmt.Sprintf("upnl=%+.2f", *h.UnrealizedPnlUSD))
	}
	return strings.Join(parts, " ")
}

// ShortAddress 缩写钱包地址，便于单行展示
func ShortAddress(addr string) string {
	if addr == "" {
		return "--"
	}
	r := []rune(addr)
	if len(r) <= 10 {
		return addr
	}
	return string(r[:4]) + "…" + string(r[len(r)-4:])
}
