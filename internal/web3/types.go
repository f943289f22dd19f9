package web3

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// AddressInfo 是区块浏览器返回的地址详情（扩展字段集合）。
type AddressInfo struct {
	BlockNumberBalanceUpdatedAt uint64          `json:"block_number_balance_updated_at"`
	CoinBalance                 string          `json:"coin_balance"`
	Hash                        string          `json:"hash"`
	IsContract                  bool            `json:"is_contract"`
	ExchangeRate                *float64        `json:"exchange_rate,omitempty"`
	CreationTransactionHash     *string         `json:"creation_transaction_hash,omitempty"`
	CreatorAddressHash          *string         `json:"creator_address_hash,omitempty"`
	ENSDomainName               *string         `json:"ens_domain_name,omitempty"`
	Name                        *string         `json:"name,omitempty"`
	HasBeaconChainWithdrawals   bool            `json:"has_beacon_chain_withdrawals"`
	HasLogs                     bool            `json:"has_logs"`
	HasTokenTransfers           bool            `json:"has_token_transfers"`
	HasTokens                   bool            `json:"has_tokens"`
	HasValidatedBlocks          bool            `json:"has_validated_blocks"`
	IsScam                      bool            `json:"is_scam"`
	IsVerified                  bool            `json:"is_verified"`
	ProxyType                   *string         `json:"proxy_type,omitempty"`
	Implementations             []string        `json:"implementations"`
	PrivateTags                 []string        `json:"private_tags"`
	PublicTags                  []string        `json:"public_tags"`
	WatchlistNames              []string        `json:"watchlist_names"`
	WatchlistAddressID          *string         `json:"watchlist_address_id,omitempty"`
	Metadata                    json.RawMessage `json:"metadata,omitempty"`
	Token                       json.RawMessage `json:"token,omitempty"`
}

// TokenBalance 描述地址持有的一种代币。
type TokenBalance struct {
	Balance         string `json:"balance"`
	ContractAddress string `json:"contract_address"`
	Decimals        uint8  `json:"decimals"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	TypeToken       string `json:"type_token"`
}

// TokenList 是代币余额查询的返回结构。
type TokenList struct {
	Items []TokenBalance `json:"items"`
}

// Client 抽象了不同链数据源（区块浏览器、RPC 节点）的地址查询能力。
type Client interface {
	GetAddress(ctx context.Context, address string) (*AddressInfo, error)
	GetTokens(ctx context.Context, address string) (*TokenList, error)
	Close()
}

// FlexFloat 同时兼容 JSON 数字与字符串形式的浮点数，null 与空串视为缺省。
type FlexFloat struct {
	Value *float64
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		f.Value = nil
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		raw = strings.TrimSpace(text)
		if raw == "" {
			f.Value = nil
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	f.Value = &v
	return nil
}

// FlexUint 同时兼容 JSON 数字与字符串形式的无符号整数。
type FlexUint uint64

// UnmarshalJSON 实现 json.Unmarshaler。
func (u *FlexUint) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*u = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return err
	}
	*u = FlexUint(v)
	return nil
}
