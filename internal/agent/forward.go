package agent

import (
	"context"
	"encoding/json"

	"UOMI-Agent/internal/host"
)

// forwarder 把对话交给宿主模型后端。
type forwarder struct {
	host    host.Host
	modelID int
}

// BuildModelRequest 在对话前插入系统提示并序列化为模型请求。
func BuildModelRequest(messages []ChatMessage) ([]byte, error) {
	withPersona := make([]ChatMessage, 0, len(messages)+1)
	withPersona = append(withPersona, ChatMessage{Role: "system", Content: SystemPersona})
	withPersona = append(withPersona, messages...)
	return json.Marshal(struct {
		Messages []ChatMessage `json:"messages"`
	}{Messages: withPersona})
}

// Forward 返回模型的原始输出，失败时返回 nil 与错误。
func (f *forwarder) Forward(ctx context.Context, messages []ChatMessage) ([]byte, error) {
	request, err := BuildModelRequest(messages)
	if err != nil {
		return nil, err
	}
	return f.host.CallModel(ctx, f.modelID, request)
}
