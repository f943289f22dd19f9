package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseFormat 决定结果以纯文本还是 JSON 信封输出。
type ResponseFormat string

const (
	FormatPlain     ResponseFormat = "plain"
	FormatEnveloped ResponseFormat = "enveloped"
)

// ParseResponseFormat 解析配置中的输出格式，空值视为 plain。
func ParseResponseFormat(value string) (ResponseFormat, error) {
	switch ResponseFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatPlain:
		return FormatPlain, nil
	case FormatEnveloped:
		return FormatEnveloped, nil
	default:
		return "", fmt.Errorf("不支持的输出格式: %s", value)
	}
}

// Envelope 是 enveloped 格式下的输出结构。
type Envelope struct {
	Response             string  `json:"response"`
	TimeTaken            float64 `json:"time_taken"`
	TokensPerSecond      float64 `json:"tokens_per_second"`
	TotalTokensGenerated int     `json:"total_tokens_generated"`
}

// Wrap 将文本放入信封。
func Wrap(text string) []byte {
	// 只含字符串与数字字段，Marshal 不会失败
	encoded, _ := json.Marshal(Envelope{
		Response:             text,
		TimeTaken:            EnvelopeTimeTaken,
		TokensPerSecond:      EnvelopeTokensPerSecond,
		TotalTokensGenerated: EnvelopeTotalTokens,
	})
	return encoded
}

// renderText 按输出格式渲染由智能体生成的文本。
func (f ResponseFormat) renderText(text string) []byte {
	if f == FormatEnveloped {
		return Wrap(text)
	}
	return []byte(text)
}

// renderModel 按输出格式渲染模型返回的原始字节。
func (f ResponseFormat) renderModel(raw []byte) []byte {
	if f != FormatEnveloped || json.Valid(raw) {
		return raw
	}
	return Wrap(strings.TrimSpace(string(raw)))
}
