package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/zhouzirui/moodart/backend/internal/model/user"
)

const uniqueViolation = "23505"

// Open 通过 pgx 的 stdlib 驱动连接 Postgres 并检查连通性。
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// UserStore 基于 users 表实现 user.Store。
type UserStore struct {
	db *sql.DB
}

var _ user.Store = (*UserStore)(nil)

// NewUserStore 包装已打开的数据库连接。
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create 插入用户，邮箱唯一性由 users_email_key 约束保证。
func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	const query = `INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at`

	u := user.User{Email: email, PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx, query, email, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return user.User{}, user.ErrDuplicateEmail
		}
		return user.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// FindByEmail 按邮箱精确查找用户。
func (s *UserStore) FindByEmail(ctx context.Context, email string) (user.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, email))
}

// FindByID 按 ID 查找用户。
func (s *UserStore) FindByID(ctx context.Context, id int64) (user.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, id))
}

func (s *UserStore) scanOne(row *sql.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}
