package agent

import (
	"bytes"
	"encoding/json"

	xerrors "UOMI-Agent/internal/errors"
)

// ChatMessage 是一条对话消息，角色不做限制。
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DecodeMessages 解析调用输入，支持裸数组与 {"messages": [...]} 两种形式。
func DecodeMessages(input []byte) ([]ChatMessage, error) {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "调用输入为空")
	}

	var messages []ChatMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "消息列表解析失败")
		}
	case '{':
		var wrapped struct {
			Messages *[]ChatMessage `json:"messages"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "消息列表解析失败")
		}
		if wrapped.Messages == nil {
			return nil, xerrors.New(xerrors.CodeInvalidArgument, "缺少 messages 字段")
		}
		messages = *wrapped.Messages
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "调用输入必须是 JSON 数组或对象")
	}
	if messages == nil {
		messages = []ChatMessage{}
	}
	return messages, nil
}

// LatestUserContent 返回最后一条 user 消息的内容，没有则为空串。
func LatestUserContent(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

// DetectWallet 返回文本中第一个钱包地址。
func DetectWallet(text string) (string, bool) {
	match := AddressPattern.FindString(text)
	return match, match != ""
}
