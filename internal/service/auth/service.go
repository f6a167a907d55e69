package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zhouzirui/moodart/backend/internal/model/user"
)

// Options 调整账户处理行为。
type Options struct {
	// FoldEmailCase 在存储与查找前把邮箱转为小写。
	FoldEmailCase bool
}

// Service 负责注册、登录与身份查询。
type Service struct {
	users     user.Store
	hasher    PasswordHasher
	tokens    *TokenManager
	opts      Options
	logger    logrus.FieldLogger
	dummyHash string
}

// NewService 组合凭证存储、密码哈希器与令牌管理器。
func NewService(users user.Store, hasher PasswordHasher, tokens *TokenManager, opts Options, logger logrus.FieldLogger) (*Service, error) {
	// 未知邮箱也与该哈希比较一次，使耗时与密码错误一致
	dummy, err := hasher.Hash("moodart-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		opts:      opts,
		logger:    logger.WithField("component", "auth"),
		dummyHash: dummy,
	}, nil
}

// Signup 注册新账户，邮箱重复时返回 user.ErrDuplicateEmail。
func (s *Service) Signup(ctx context.Context, email, password string) (user.User, error) {
	email, err := s.validate(email, password)
	if err != nil {
		return user.User{}, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.Create(ctx, email, hashed)
	if err != nil {
		return user.User{}, err
	}

	s.logger.WithField("user_id", u.ID).Info("user registered")
	return u, nil
}

// Login 校验凭证并签发令牌。邮箱不存在与密码错误都返回 ErrInvalidCredentials。
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	email, err := s.validate(email, password)
	if err != nil {
		return Token{}, err
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return Token{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Token{}, err
	}

	s.logger.WithField("user_id", u.ID).Info("user logged in")
	return token, nil
}

// CurrentUser 查询访问网关放入上下文的用户。
func (s *Service) CurrentUser(ctx context.Context, id int64) (user.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *Service) validate(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrEmailRequired
	}
	if password == "" {
		return "", ErrPasswordRequired
	}
	if s.opts.FoldEmailCase {
		email = strings.ToLower(email)
	}
	return email, nil
}
