package web3

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	xerrors "UOMI-Agent/internal/errors"
)

// ValidateAddress 校验地址必须为 0x 开头的 40 位十六进制字符串。
func ValidateAddress(address string) error {
	if len(address) != 2+2*common.AddressLength || !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return xerrors.New(xerrors.CodeInvalidAddress, "Invalid Ethereum address format",
			xerrors.WithMetadata("address", address))
	}
	return nil
}
