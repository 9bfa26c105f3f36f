package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHolderKeepsUnknownFields(t *testing.T) {
	in := []byte(`{"wallet_address":"abc","holder_rank":1,"token_balance_usd":12.5,"label":"whale","tags":["a","b"]}`)

	var h Holder
	require.NoError(t, json.Unmarshal(in, &h))
	require.Equal(t, "abc", h.WalletAddress)
	require.NotNil(t, h.HolderRank)
	require.Equal(t, 1.0, *h.HolderRank)
	require.Nil(t, h.SoldUSD)
	require.Len(t, h.Extra, 2)
	require.JSONEq(t, `"whale"`, string(h.Extra["label"]))

	out, err := json.Marshal(h)
	require.NoError(t, err)
	require.JSONEq(t, string(in), string(out))
}

func TestTraderStringTimestamps(t *testing.T) {
	in := []byte(`{"wallet_address":"xyz","first_trade_timestamp":"2024-01-01T00:00:00Z","win_rate":55.5}`)

	var tr Trader
	require.NoError(t, json.Unmarshal(in, &tr))
	require.NotNil(t, tr.FirstTradeTimestamp)
	require.Equal(t, "2024-01-01T00:00:00Z", *tr.FirstTradeTimestamp)
	require.Empty(t, tr.Extra)
	require.Equal(t, "xyz", tr.Wallet())
	require.Contains(t, tr.Summary(), "win=55.5%")
}

func TestRecordRejectsNonObject(t *testing.T) {
	var hs []Holder
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &hs))
}

func TestHolderToleratesFieldTypeDrift(t *testing.T) {
	in := []byte(`{"wallet_address":123,"holder_rank":"1","token_balance_usd":1e400,"percentage_of_supply":2.5}`)

	var h Holder
	require.NoError(t, json.Unmarshal(in, &h))
	require.Empty(t, h.WalletAddress)
	require.Nil(t, h.HolderRank)
	require.Nil(t, h.TokenBalanceUSD)
	require.NotNil(t, h.PercentageOfSupply)
	require.Equal(t, 2.5, *h.PercentageOfSupply)
	require.JSONEq(t, `"1"`, string(h.Extra["holder_rank"]))
	require.Equal(t, "123", string(h.Extra["wallet_address"]))

	out, err := json.Marshal(h)
	require.NoError(t, err)
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &got))
	require.Equal(t, "123", string(got["wallet_address"]))
	require.JSONEq(t, `"1"`, string(got["holder_rank"]))
	require.Equal(t, "1e400", string(got["token_balance_usd"]))
}

func TestTraderToleratesFieldTypeDrift(t *testing.T) {
	var ts []Trader
	require.NoError(t, json.Unmarshal([]byte(`[{"wallet_address":"a","total_trades":"many"},{"wallet_address":"b","last_trade_timestamp":1714566645}]`), &ts))
	require.Len(t, ts, 2)
	require.Nil(t, ts[0].TotalTrades)
	require.Nil(t, ts[1].LastTradeTimestamp)
	require.Equal(t, "b", ts[1].Wallet())
	require.Contains(t, ts[1].Extra, "last_trade_timestamp")
}

func TestShortWallet(t *testing.T) {
	require.Equal(t, "--", ShortAddress(""))
	require.Equal(t, "abc", ShortAddress("abc"))
	require.Equal(t, "7xKX…AsU1", ShortAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU1"))
	require.Equal(t, "钱包地址…尾部四字", ShortAddress("钱包地址很长很长的一个尾部四字"))
	require.Equal(t, "短地址", ShortAddress("短地址"))
}

func TestKindValidate(t *testing.T) {
	require.NoError(t, HoldersKind.Validate())
	require.NoError(t, TradersKind.Validate())
	require.Error(t, Kind{Name: "x"}.Validate())
}
