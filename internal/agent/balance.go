package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/host"
	"UOMI-Agent/internal/web3"
)

// maxDecimals 限制代币精度，超出视为无法解析。
const maxDecimals = 255

type balanceBody struct {
	BlockNumber  web3.FlexUint  `json:"block_number_balance_updated_at"`
	CoinBalance  string         `json:"coin_balance"`
	Hash         string         `json:"hash"`
	IsContract   bool           `json:"is_contract"`
	ExchangeRate web3.FlexFloat `json:"exchange_rate"`
}

type tokenBody struct {
	Items []tokenItem `json:"items"`
}

type tokenItem struct {
	Balance  string        `json:"balance"`
	Decimals web3.FlexUint `json:"decimals"`
	Name     string        `json:"name"`
	Symbol   string        `json:"symbol"`
}

// balanceReporter 通过宿主区块链代理生成钱包余额报告。
type balanceReporter struct {
	host host.Host
	log  *slog.Logger
}

// Report 返回报告文本；失败时返回固定的致歉语。
func (r *balanceReporter) Report(ctx context.Context, wallet string) string {
	r.log.Info(fmt.Sprintf("Processing balance request for wallet: %s", wallet))

	status, body, err := r.call(ctx, web3.ActionGetBalance, wallet)
	if err == nil && !successful(status) {
		err = xerrors.New(xerrors.CodeUpstreamStatus, "", xerrors.WithMetadata("status", strconv.Itoa(status)))
	}
	if err != nil {
		r.log.Error(fmt.Sprintf("Error fetching balance: %v", err), "code", xerrors.CodeOf(err))
		return ApologyFetch
	}

	var balance balanceBody
	if err := json.Unmarshal(body, &balance); err != nil {
		r.log.Error("balance body could not be decoded", "error", err)
		return ApologyParse
	}
	if strings.TrimSpace(balance.Hash) == "" {
		r.log.Error("balance body is missing the address hash")
		return ApologyParse
	}

	native, ok := r.scale("coin_balance", balance.CoinBalance, NativeDecimals)
	lines := []string{
		fmt.Sprintf("Wallet Balance for %s:", balance.Hash),
		fmt.Sprintf("\nNative Balance: %s %s%s", native.FloatString(nativePlaces), NativeSymbol, unreadable(ok)),
	}
	if rate := balance.ExchangeRate.Value; rate != nil {
		if fiat, ok := new(big.Rat).SetString(strconv.FormatFloat(*rate, 'f', -1, 64)); ok {
			usd := new(big.Rat).Mul(native, fiat)
			lines = append(lines, fmt.Sprintf("($%s USD)", usd.FloatString(fiatPlaces)))
		}
	}

	lines = append(lines, r.tokenLines(ctx, balance.Hash)...)

	lines = append(lines, fmt.Sprintf("\nLast updated at block: %d", uint64(balance.BlockNumber)))
	if balance.IsContract {
		lines = append(lines, "\nNote: This is a smart contract address")
	}
	return strings.Join(lines, "\n")
}

// tokenLines 生成代币段落，任何失败都只记录日志并省略该段。
func (r *balanceReporter) tokenLines(ctx context.Context, address string) []string {
	status, body, err := r.call(ctx, web3.ActionGetTokens, address)
	if err == nil && !successful(status) {
		err = xerrors.New(xerrors.CodeUpstreamStatus, "", xerrors.WithMetadata("status", strconv.Itoa(status)))
	}
	if err != nil {
		r.log.Warn("token balances unavailable", "error", err)
		return nil
	}
	var tokens tokenBody
	if err := json.Unmarshal(body, &tokens); err != nil {
		r.log.Warn("token body could not be decoded", "error", err)
		return nil
	}

	lines := []string{"\nToken Balances:"}
	found := false
	for _, token := range tokens.Items {
		if !strings.EqualFold(token.Symbol, DistinguishedSymbol) {
			continue
		}
		found = true
		amount, ok := r.scale(token.Symbol, token.Balance, uint64(token.Decimals))
		lines = append(lines, fmt.Sprintf("🔹 %s: %s tokens%s", DistinguishedSymbol, amount.FloatString(tokenPlaces), unreadable(ok)))
	}
	for _, token := range tokens.Items {
		if strings.EqualFold(token.Symbol, DistinguishedSymbol) {
			continue
		}
		amount, ok := r.scale(token.Symbol, token.Balance, uint64(token.Decimals))
		lines = append(lines, fmt.Sprintf("- %s (%s): %s%s", token.Name, token.Symbol, amount.FloatString(tokenPlaces), unreadable(ok)))
	}
	if !found {
		lines = append(lines, fmt.Sprintf("\nNote: No %s tokens found in this wallet", DistinguishedSymbol))
	}
	return lines
}

func (r *balanceReporter) call(ctx context.Context, action, address string) (int, []byte, error) {
	request, err := json.Marshal(web3.ProxyRequest{Action: action, Address: address})
	if err != nil {
		return 0, nil, err
	}
	return r.host.CallBlockchain(ctx, request)
}

// scale 将原始整数余额按精度换算；无法解析时返回 0 并记录日志。
func (r *balanceReporter) scale(label, raw string, decimals uint64) (*big.Rat, bool) {
	value, err := ScaleBalance(raw, decimals)
	if err != nil {
		r.log.Warn("balance could not be parsed, reporting zero", "field", label, "raw", raw, "error", err)
		return new(big.Rat), false
	}
	return value, true
}

// ScaleBalance 解析十进制或 0x 十六进制的整数余额并除以 10^decimals。
func ScaleBalance(raw string, decimals uint64) (*big.Rat, error) {
	if decimals > maxDecimals {
		return nil, fmt.Errorf("精度超出范围: %d", decimals)
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("余额为空")
	}
	value, ok := math.ParseBig256(trimmed)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("无法解析余额: %q", raw)
	}
	denom := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(decimals), nil)
	return new(big.Rat).SetFrac(value, denom), nil
}

func unreadable(ok bool) string {
	if ok {
		return ""
	}
	return UnreadableSuffix
}

func successful(status int) bool {
	return status >= 200 && status < 300
}
