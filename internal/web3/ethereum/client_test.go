package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	xerrors "UOMI-Agent/internal/errors"
)

type stubReader struct {
	head    uint64
	balance *big.Int
	code    []byte
	err     error
	at      *big.Int
}

func (s *stubReader) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	s.at = blockNumber
	if s.err != nil {
		return nil, s.err
	}
	return s.balance, nil
}

func (s *stubReader) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return s.code, nil
}

func (s *stubReader) BlockNumber(ctx context.Context) (uint64, error) {
	return s.head, nil
}

const testAddress = "0x00000000000000000000000000000000deadbeef"

func TestGetAddressFromRPC(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	reader := &stubReader{head: 99, balance: wei, code: []byte{0x60, 0x80}}
	client := &Client{name: "local", reader: reader}

	info, err := client.GetAddress(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.CoinBalance != "1500000000000000000" || info.BlockNumberBalanceUpdatedAt != 99 || !info.IsContract {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Hash != common.HexToAddress(testAddress).Hex() {
		t.Fatalf("unexpected hash %s", info.Hash)
	}
	if reader.at == nil || reader.at.Uint64() != 99 {
		t.Fatalf("balance should be read at the head block, got %v", reader.at)
	}
}

func TestGetAddressRPCFailure(t *testing.T) {
	client := &Client{name: "local", reader: &stubReader{err: errors.New("dial tcp: refused")}}
	_, err := client.GetAddress(context.Background(), testAddress)
	if xerrors.CodeOf(err) != xerrors.CodeNetwork {
		t.Fatalf("expected NETWORK, got %v", err)
	}
}

func TestGetTokensUnsupported(t *testing.T) {
	client := &Client{name: "local"}
	_, err := client.GetTokens(context.Background(), testAddress)
	if xerrors.CodeOf(err) != xerrors.CodeUnsupported {
		t.Fatalf("expected UNSUPPORTED, got %v", err)
	}
}

func TestClosedClient(t *testing.T) {
	client := &Client{name: "local", reader: &stubReader{}}
	client.Close()
	_, err := client.GetAddress(context.Background(), testAddress)
	if xerrors.CodeOf(err) != xerrors.CodeInitializationFailure {
		t.Fatalf("expected INITIALIZATION_FAILURE, got %v", err)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without rpc url")
	}
}
