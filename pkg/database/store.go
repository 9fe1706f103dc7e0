package database

import (
	"context"
	"database/sql"

	"community-meetings-backend/pkg/schema"
)

// SQLDatabase 基于 database/sql 的实现，SQLite 与 PostgreSQL 共用
type SQLDatabase struct {
	db     *sql.DB
	layout schema.Layout
}

// NewSQLDatabase 创建数据库实例；layout 在启动时解析一次，之后不再探测
func NewSQLDatabase(db *sql.DB, layout schema.Layout) *SQLDatabase {
	return &SQLDatabase{db: db, layout: layout}
}

// Layout 当前表结构
func (s *SQLDatabase) Layout() schema.Layout {
	return s.layout
}

// DB 底层连接（供统计与调试使用）
func (s *SQLDatabase) DB() *sql.DB {
	return s.db
}

// HealthCheck 健康检查
func (s *SQLDatabase) HealthCheck() error {
	return s.db.Ping()
}

// Close 关闭连接
func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

func (s *SQLDatabase) rebind(query string) string {
	return s.layout.Dialect.Rebind(query)
}

func (s *SQLDatabase) queryRow(ctx context.Context, q schema.Querier, query string, args ...interface{}) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *SQLDatabase) exec(ctx context.Context, q schema.Querier, query string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLDatabase) query(ctx context.Context, q schema.Querier, query string, args ...interface{}) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

// insertID 执行带 RETURNING id 的插入
func (s *SQLDatabase) insertID(ctx context.Context, q schema.Querier, query string, args ...interface{}) (int64, error) {
	var id int64
	err := s.queryRow(ctx, q, query+" RETURNING id", args...).Scan(&id)
	return id, err
}
