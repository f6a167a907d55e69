package auth

import "errors"

// 参数校验错误（400）
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password is too long")
)

// 认证错误（401），包外调用方不应区分具体原因
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrTokenBadSignature  = errors.New("token signature invalid")
	ErrTokenExpired       = errors.New("token expired")
)
