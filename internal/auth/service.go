package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"
)

// Service 校验调用方携带的 Bearer Token。
type Service struct {
	mode   Mode
	tokens []credential
}

type credential struct {
	name   string
	digest [sha256.Size]byte
}

// NewService 根据配置创建认证服务。token 模式下至少需要一个非空令牌。
func NewService(cfg Config) (*Service, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	switch mode {
	case "", ModeDisabled:
		return &Service{mode: ModeDisabled}, nil
	case ModeToken:
	default:
		return nil, fmt.Errorf("不支持的认证模式: %s", cfg.Mode)
	}

	s := &Service{mode: ModeToken}
	for _, tok := range cfg.Tokens {
		value := strings.TrimSpace(tok.Value)
		if value == "" && tok.ValueEnv != "" {
			value = strings.TrimSpace(os.Getenv(tok.ValueEnv))
		}
		if value == "" {
			continue
		}
		name := strings.TrimSpace(tok.Name)
		if name == "" {
			name = fmt.Sprintf("token-%d", len(s.tokens)+1)
		}
		s.tokens = append(s.tokens, credential{name: name, digest: sha256.Sum256([]byte(value))})
	}
	if len(s.tokens) == 0 {
		return nil, fmt.Errorf("token 认证模式下未配置任何令牌")
	}
	return s, nil
}

// Mode 返回当前认证模式。
func (s *Service) Mode() Mode {
	if s == nil {
		return ModeDisabled
	}
	return s.mode
}

// AuthenticateRequest 校验 Authorization 头。
func (s *Service) AuthenticateRequest(ctx context.Context, authorization string) (*Subject, error) {
	if s.Mode() == ModeDisabled {
		return &Subject{Name: "anonymous"}, nil
	}
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(authorization, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}
	digest := sha256.Sum256([]byte(strings.TrimSpace(token)))
	for _, cred := range s.tokens {
		if subtle.ConstantTimeCompare(digest[:], cred.digest[:]) == 1 {
			return &Subject{Name: cred.name}, nil
		}
	}
	return nil, ErrInvalidToken
}
