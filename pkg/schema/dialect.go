package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect SQL 方言
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect 从配置中的驱动名解析方言
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Querier *sql.DB 与 *sql.Tx 的公共子集
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Rebind 将 ? 占位符改写为当前方言的形式（Postgres 为 $1, $2...）
// 单引号字符串内的 ? 保持不变
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PrimaryKey 自增主键列定义
func (d Dialect) PrimaryKey() string {
	if d == Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Timestamp 带默认当前时间的时间戳列定义
func (d Dialect) Timestamp() string {
	if d == Postgres {
		return "TIMESTAMPTZ DEFAULT NOW()"
	}
	return "DATETIME DEFAULT CURRENT_TIMESTAMP"
}

// resetSequence 显式写入 id 后同步自增序列；SQLite 的 AUTOINCREMENT 会自动跟进
func (d Dialect) resetSequence(table string) string {
	if d != Postgres {
		return ""
	}
	return fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
		table, table,
	)
}

// ColumnSet 表的列名集合
type ColumnSet map[string]bool

// Has 是否包含列
func (c ColumnSet) Has(name string) bool {
	return c[name]
}

// Exists 表是否存在（无任何列视为不存在）
func (c ColumnSet) Exists() bool {
	return len(c) > 0
}

// Columns 读取表的现有列
func Columns(ctx context.Context, q Querier, d Dialect, table string) (ColumnSet, error) {
	var query string
	switch d {
	case Postgres:
		query = `SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1`
	default:
		query = `SELECT name FROM pragma_table_info(?)`
	}

	rows, err := q.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := ColumnSet{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("inspect columns of %s: %w", table, err)
		}
		cols[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	return cols, nil
}
