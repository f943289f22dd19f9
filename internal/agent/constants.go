package agent

import "regexp"

const (
	// SystemPersona 是转发对话时插入的系统提示。
	SystemPersona = "You are UOMI Agent, a helpful assistant focused on blockchain and financial services."

	// DistinguishedSymbol 是报告中优先展示的代币符号。
	DistinguishedSymbol = "UOMI"
	// NativeSymbol 是原生币符号。
	NativeSymbol = "UOMI"
	// NativeDecimals 是原生币的小数位数。
	NativeDecimals = 18

	// ModelID 是转发对话时使用的宿主模型编号。
	ModelID = 1

	// ApologyFetch 在余额查询失败时返回。
	ApologyFetch = "Sorry, I couldn't fetch your balance at the moment. Please try again later."
	// ApologyParse 在余额数据无法解析时返回。
	ApologyParse = "Sorry, I couldn't parse the balance data. Please try again later."
	// ApologyModel 在模型调用失败时返回。
	ApologyModel = "Sorry, I couldn't reach the language model at the moment. Please try again later."

	// UnreadableSuffix 标记无法解析、按 0 展示的余额。
	UnreadableSuffix = " (unreadable balance, shown as 0)"

	nativePlaces = 6
	tokenPlaces  = 2
	fiatPlaces   = 2
)

const (
	// EnvelopeTimeTaken 是信封中 time_taken 字段的占位值。
	EnvelopeTimeTaken = 0.0
	// EnvelopeTokensPerSecond 是信封中 tokens_per_second 字段的占位值。
	EnvelopeTokensPerSecond = 0.0
	// EnvelopeTotalTokens 是信封中 total_tokens_generated 字段的占位值。
	EnvelopeTotalTokens = 0
)

// AddressPattern 匹配 0x 开头的 40 位十六进制钱包地址。
var AddressPattern = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

const (
	branchBalance      = "balance"
	branchConversation = "conversation"
	branchInvalidInput = "invalid_input"
)
