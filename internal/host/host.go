package host

import (
	"context"
	"errors"
)

// ErrOutputWritten 表示本次调用已经写出过结果。
var ErrOutputWritten = errors.New("本次调用的输出已写入")

// Host 是智能体可以访问的全部宿主能力。
type Host interface {
	ReadInput(ctx context.Context) ([]byte, error)
	WriteOutput(ctx context.Context, output []byte) error
	Log(message string)
	CallModel(ctx context.Context, modelID int, request []byte) ([]byte, error)
	CallBlockchain(ctx context.Context, request []byte) (int, []byte, error)
	FetchCIDFile(ctx context.Context, cid string) ([]byte, error)
	FetchInputFile(ctx context.Context, id string) ([]byte, error)
}

// ChainProxy 处理智能体发往区块链代理的请求。
type ChainProxy interface {
	Handle(ctx context.Context, request []byte) (int, []byte)
}
