package auth

import "errors"

// Common errors returned by the authentication subsystem.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing bearer token")
)

// Mode 表示认证模式。
type Mode string

const (
	// ModeDisabled 不做认证。
	ModeDisabled Mode = "disabled"
	// ModeToken 要求静态 Bearer Token。
	ModeToken Mode = "token"
)

// Subject 是通过认证的调用方。
type Subject struct {
	Name string
}

// Token 描述一个允许访问的调用方，令牌可直接给出或从环境变量读取。
type Token struct {
	Name     string
	Value    string
	ValueEnv string
}

// Config 配置认证服务。
type Config struct {
	Mode   Mode
	Tokens []Token
}
