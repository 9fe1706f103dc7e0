package schema

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
)

// NilVersion 尚未执行任何步骤
const NilVersion = database.NilVersion

// VersionMarker 版本记录（schema_migrations 表，含 dirty 标记）与迁移锁
type VersionMarker interface {
	Lock() error
	Unlock() error
	Version() (version int, dirty bool, err error)
	SetVersion(version int, dirty bool) error
}

// openMarker 基于 golang-migrate 的数据库驱动打开版本记录。
// 返回的 release 不会关闭共享的 *sql.DB。
func openMarker(db *sql.DB, d Dialect) (VersionMarker, func(), error) {
	switch d {
	case Postgres:
		driver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres version marker: %w", err)
		}
		// WithInstance 持有一条独立连接，Close 只归还该连接
		return driver, func() { _ = driver.Close() }, nil
	case SQLite:
		driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite version marker: %w", err)
		}
		// sqlite 驱动的 Close 会关闭 *sql.DB，这里不调用
		return driver, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dialect %q", d)
	}
}
