package explorer

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/web3"
	"UOMI-Agent/pkg/logger"
)

const (
	// DefaultBaseURL 是 UOMI 区块浏览器的公开地址。
	DefaultBaseURL = "https://explorer.uomi.ai"
	// DefaultTimeout 是单次请求的连接与读取超时。
	DefaultTimeout = 10 * time.Second
	// UserAgent 随每个请求发送。
	UserAgent = "uomi-agent/1.0"

	maxBodyBytes  = 2 << 20
	maxTokenPages = 5
)

// Config 描述访问 Blockscout v2 API 所需的信息。
type Config struct {
	BaseURL     string
	ProxyPrefix string
	APIKey      string
	Timeout     time.Duration
}

// Client 通过 HTTP 调用区块浏览器查询地址与代币余额。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// APIError 表示区块浏览器返回了非 2xx 状态码。
type APIError struct {
	Status  int
	Message string
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d, %s", e.Status, e.Message)
}

// NewClient 根据配置创建区块浏览器客户端。
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if prefix := strings.Trim(strings.TrimSpace(cfg.ProxyPrefix), "/"); prefix != "" {
		baseURL += "/" + prefix
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Named("explorer"),
	}
}

type addressPayload struct {
	BlockNumberBalanceUpdatedAt web3.FlexUint   `json:"block_number_balance_updated_at"`
	CoinBalance                 *string         `json:"coin_balance"`
	Hash                        string          `json:"hash"`
	IsContract                  bool            `json:"is_contract"`
	ExchangeRate                web3.FlexFloat  `json:"exchange_rate"`
	CreationTransactionHash     *string         `json:"creation_transaction_hash"`
	CreatorAddressHash          *string         `json:"creator_address_hash"`
	ENSDomainName               *string         `json:"ens_domain_name"`
	Name                        *string         `json:"name"`
	HasBeaconChainWithdrawals   bool            `json:"has_beacon_chain_withdrawals"`
	HasLogs                     bool            `json:"has_logs"`
	HasTokenTransfers           bool            `json:"has_token_transfers"`
	HasTokens                   bool            `json:"has_tokens"`
	HasValidatedBlocks          bool            `json:"has_validated_blocks"`
	IsScam                      bool            `json:"is_scam"`
	IsVerified                  bool            `json:"is_verified"`
	ProxyType                   *string         `json:"proxy_type"`
	Implementations             []implRef       `json:"implementations"`
	PrivateTags                 []tag           `json:"private_tags"`
	PublicTags                  []tag           `json:"public_tags"`
	WatchlistNames              []tag           `json:"watchlist_names"`
	WatchlistAddressID          json.RawMessage `json:"watchlist_address_id"`
	Metadata                    json.RawMessage `json:"metadata"`
	Token                       json.RawMessage `json:"token"`
}

// implRef 兼容字符串与 {address, name} 对象两种编码。
type implRef struct {
	Address string
}

func (i *implRef) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		i.Address = text
		return nil
	}
	var obj struct {
		Address     string `json:"address"`
		AddressHash string `json:"address_hash"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	i.Address = firstNonEmpty(obj.AddressHash, obj.Address)
	return nil
}

// tag 兼容字符串与 {label, display_name, name} 对象两种编码。
type tag struct {
	Label string
}

func (t *tag) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		t.Label = text
		return nil
	}
	var obj struct {
		Label       string `json:"label"`
		DisplayName string `json:"display_name"`
		Name        string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Label = firstNonEmpty(obj.DisplayName, obj.Label, obj.Name)
	return nil
}

type tokensPayload struct {
	Items []struct {
		Token struct {
			Address     string        `json:"address"`
			AddressHash string        `json:"address_hash"`
			Decimals    web3.FlexUint `json:"decimals"`
			Name        string        `json:"name"`
			Symbol      string        `json:"symbol"`
			Type        string        `json:"type"`
		} `json:"token"`
		Value string `json:"value"`
	} `json:"items"`
	NextPageParams map[string]json.RawMessage `json:"next_page_params"`
}

// GetAddress 查询地址的原生币余额及元数据。
func (c *Client) GetAddress(ctx context.Context, address string) (*web3.AddressInfo, error) {
	if err := web3.ValidateAddress(address); err != nil {
		return nil, err
	}

	var payload addressPayload
	if err := c.getJSON(ctx, "/api/v2/addresses/"+address, nil, &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Hash) == "" {
		return nil, xerrors.New(xerrors.CodeDecode, "区块浏览器响应缺少 hash 字段")
	}

	info := &web3.AddressInfo{
		BlockNumberBalanceUpdatedAt: uint64(payload.BlockNumberBalanceUpdatedAt),
		CoinBalance:                 "0",
		Hash:                        payload.Hash,
		IsContract:                  payload.IsContract,
		ExchangeRate:                payload.ExchangeRate.Value,
		CreationTransactionHash:     payload.CreationTransactionHash,
		CreatorAddressHash:          payload.CreatorAddressHash,
		ENSDomainName:               payload.ENSDomainName,
		Name:                        payload.Name,
		HasBeaconChainWithdrawals:   payload.HasBeaconChainWithdrawals,
		HasLogs:                     payload.HasLogs,
		HasTokenTransfers:           payload.HasTokenTransfers,
		HasTokens:                   payload.HasTokens,
		HasValidatedBlocks:          payload.HasValidatedBlocks,
		IsScam:                      payload.IsScam,
		IsVerified:                  payload.IsVerified,
		ProxyType:                   payload.ProxyType,
		Implementations:             make([]string, 0, len(payload.Implementations)),
		PrivateTags:                 labels(payload.PrivateTags),
		PublicTags:                  labels(payload.PublicTags),
		WatchlistNames:              labels(payload.WatchlistNames),
		Metadata:                    nullable(payload.Metadata),
		Token:                       nullable(payload.Token),
	}
	if payload.CoinBalance != nil && strings.TrimSpace(*payload.CoinBalance) != "" {
		info.CoinBalance = strings.TrimSpace(*payload.CoinBalance)
	}
	for _, impl := range payload.Implementations {
		info.Implementations = append(info.Implementations, impl.Address)
	}
	if id := nullable(payload.WatchlistAddressID); id != nil {
		text := strings.Trim(string(id), `"`)
		info.WatchlistAddressID = &text
	}
	return info, nil
}

// GetTokens 查询地址持有的代币余额，最多跟随 maxTokenPages 页。
// 后续页失败时返回已取得的代币。
func (c *Client) GetTokens(ctx context.Context, address string) (*web3.TokenList, error) {
	if err := web3.ValidateAddress(address); err != nil {
		return nil, err
	}

	list := &web3.TokenList{Items: []web3.TokenBalance{}}
	var query url.Values
	for page := 0; page < maxTokenPages; page++ {
		var payload tokensPayload
		if err := c.getJSON(ctx, "/api/v2/addresses/"+address+"/tokens", query, &payload); err != nil {
			if page == 0 {
				return nil, err
			}
			c.log.Warn("token page failed, returning earlier pages", "page", page, "items", len(list.Items), "error", err)
			break
		}
		for _, item := range payload.Items {
			if item.Token.Decimals > web3.FlexUint(math.MaxUint8) {
				c.log.Warn("skipping token with out-of-range decimals",
					"symbol", item.Token.Symbol, "decimals", uint64(item.Token.Decimals))
				continue
			}
			list.Items = append(list.Items, web3.TokenBalance{
				Balance:         strings.TrimSpace(item.Value),
				ContractAddress: firstNonEmpty(item.Token.AddressHash, item.Token.Address),
				Decimals:        uint8(item.Token.Decimals),
				Name:            item.Token.Name,
				Symbol:          item.Token.Symbol,
				TypeToken:       item.Token.Type,
			})
		}
		query = pageQuery(payload.NextPageParams)
		if len(query) == 0 {
			break
		}
	}
	return list, nil
}

// pageQuery 将 next_page_params 原样转为查询参数，null 值被跳过。
func pageQuery(params map[string]json.RawMessage) url.Values {
	query := url.Values{}
	for key, raw := range params {
		value := strings.TrimSpace(string(raw))
		if value == "" || value == "null" {
			continue
		}
		if strings.HasPrefix(value, `"`) {
			var text string
			if err := json.Unmarshal(raw, &text); err != nil {
				continue
			}
			value = text
		}
		query.Set(key, value)
	}
	return query
}

// Close 释放空闲连接。
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeNetwork, err, "构建区块浏览器请求失败")
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", UserAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.log.Debug("calling explorer api", "url", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return xerrors.Wrap(xerrors.CodeTimeout, err, "请求区块浏览器超时")
		}
		return xerrors.Wrap(xerrors.CodeNetwork, err, "请求区块浏览器失败")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return xerrors.Wrap(xerrors.CodeNetwork, err, "读取区块浏览器响应失败")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		c.log.Warn("explorer api error", "status", resp.StatusCode, "url", endpoint)
		return xerrors.Wrap(xerrors.CodeUpstreamStatus, apiErr, "区块浏览器返回错误状态",
			xerrors.WithMetadata("status", strconv.Itoa(resp.StatusCode)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.log.Warn("failed to parse explorer response", "url", endpoint, "error", err)
		return xerrors.Wrap(xerrors.CodeDecode, err, "解析区块浏览器响应失败")
	}
	return nil
}

// StatusOf 返回错误链中 APIError 的状态码，不存在时返回 0。
func StatusOf(err error) int {
	var apiErr *APIError
	if stdErrors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func isTimeout(err error) bool {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stdErrors.As(err, &netErr) && netErr.Timeout()
}

func labels(tags []tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Label != "" {
			out = append(out, t.Label)
		}
	}
	return out
}

func nullable(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var _ web3.Client = (*Client)(nil)
