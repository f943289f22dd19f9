package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	xerrors "UOMI-Agent/internal/errors"
	"UOMI-Agent/internal/web3"
)

// Config describes how to construct an EVM RPC backed client.
type Config struct {
	Name   string
	RPCURL string
	Notes  string
}

// chainReader mirrors the subset of ethclient methods needed for balance lookups.
type chainReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Client answers address lookups straight from a JSON-RPC node. It is used for
// chains without an explorer; token listings are not available over plain RPC.
type Client struct {
	name      string
	notes     string
	rpcClient *gethrpc.Client
	reader    chainReader
	mu        sync.Mutex
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	return &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		rpcClient: rpcClient,
		reader:    ethclient.NewClient(rpcClient),
	}, nil
}

// Close releases network connections held by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
	c.reader = nil
}

// GetAddress reads balance and code at the latest block.
func (c *Client) GetAddress(ctx context.Context, address string) (*web3.AddressInfo, error) {
	if err := web3.ValidateAddress(address); err != nil {
		return nil, err
	}
	reader := c.chainReader()
	if reader == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未初始化的以太坊客户端")
	}

	account := common.HexToAddress(address)
	head, err := reader.BlockNumber(ctx)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetwork, err, "获取最新区块高度失败")
	}
	at := new(big.Int).SetUint64(head)

	balance, err := reader.BalanceAt(ctx, account, at)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetwork, err, "查询余额失败")
	}
	code, err := reader.CodeAt(ctx, account, at)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetwork, err, "查询合约代码失败")
	}

	return &web3.AddressInfo{
		BlockNumberBalanceUpdatedAt: head,
		CoinBalance:                 balance.String(),
		Hash:                        account.Hex(),
		IsContract:                  len(code) > 0,
		Implementations:             []string{},
		PrivateTags:                 []string{},
		PublicTags:                  []string{},
		WatchlistNames:              []string{},
	}, nil
}

// GetTokens is not supported over plain JSON-RPC.
func (c *Client) GetTokens(ctx context.Context, address string) (*web3.TokenList, error) {
	return nil, xerrors.New(xerrors.CodeUnsupported, fmt.Sprintf("链 %s 不支持代币列表查询", c.name))
}

func (c *Client) chainReader() chainReader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

var _ web3.Client = (*Client)(nil)
