package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message 是一条对话消息。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request 描述发送给大模型的对话上下文。
type Request struct {
	Model    string
	Messages []Message
}

// Response 是大模型返回的原始文本。
type Response struct {
	Content string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// DefaultModelID 是智能体默认使用的模型编号。
const DefaultModelID = 1

// ModelTable 将宿主模型编号映射为具体的模型名称。
type ModelTable map[int]string

// DefaultModelTable 返回内置的模型映射。
func DefaultModelTable() ModelTable {
	return ModelTable{DefaultModelID: "gpt-4o-mini"}
}

// Resolve 查找模型编号对应的模型名称。
func (t ModelTable) Resolve(id int) (string, error) {
	name, ok := t[id]
	if !ok || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("未注册的模型编号: %d", id)
	}
	return strings.TrimSpace(name), nil
}
