package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Migrator 执行内嵌的 goose 迁移脚本。
type Migrator struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// NewMigrator 为 db 创建迁移器。
func NewMigrator(db *sql.DB, logger logrus.FieldLogger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("nil database handle")
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("configure goose: %w", err)
	}
	return &Migrator{db: db, logger: logger.WithField("component", "migrate")}, nil
}

// Up 执行所有未应用的迁移。
func (m *Migrator) Up(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	m.logger.Info("applying migrations")
	if err := goose.UpContext(runCtx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	m.logger.Info("migrations applied")
	return nil
}

// Status 输出已应用与待应用的迁移。
func (m *Migrator) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Down 回滚最近一次迁移，target > 0 时回滚到该版本。
func (m *Migrator) Down(ctx context.Context, target int64) error {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if target > 0 {
		m.logger.WithField("target", target).Info("rolling back migrations")
		if err := goose.DownToContext(runCtx, m.db, migrationsDir, target); err != nil {
			return fmt.Errorf("rollback to version %d: %w", target, err)
		}
		return nil
	}

	m.logger.Info("rolling back latest migration")
	if err := goose.DownContext(runCtx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("rollback latest migration: %w", err)
	}
	return nil
}
