package database

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DatabasePool 进程级数据库单例（无服务器入口在多次调用间复用）
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex
)

// GetDatabase 获取数据库连接（单例模式）；首次创建时执行结构守卫
func GetDatabase(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (DatabaseInterface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil && !shouldRecreateConnection(globalPool, config, logger) {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
		return globalPool.instance, nil
	}

	logger.Info("creating database connection")
	if globalPool != nil && globalPool.instance != nil {
		globalPool.instance.Close()
	}

	instance, err := NewDatabase(ctx, config, logger)
	if err != nil {
		globalPool = nil
		return nil, err
	}
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		lastUsed: time.Now(),
	}
	return instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(pool *DatabasePool, newConfig DatabaseConfig, logger *zap.Logger) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	if !configEquals(pool.config, newConfig) {
		logger.Info("database configuration changed, recreating connection")
		return true
	}

	if err := pool.instance.HealthCheck(); err != nil {
		logger.Warn("database health check failed, recreating connection", zap.Error(err))
		return true
	}

	return false
}

// configEquals 比较两个数据库配置是否相等
func configEquals(a, b DatabaseConfig) bool {
	return a.Driver == b.Driver &&
		a.SQLitePath == b.SQLitePath &&
		a.PostgresDSN == b.PostgresDSN
}

// ClosePool 关闭并清空单例（进程退出或测试清理时调用）
func ClosePool() error {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return nil
	}
	err := globalPool.instance.Close()
	globalPool = nil
	return err
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	stats := map[string]interface{}{
		"status":    "connected",
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
		"driver":    globalPool.config.Driver,
		"layout":    globalPool.instance.Layout().Describe(),
	}
	if sqlDB, ok := globalPool.instance.(*SQLDatabase); ok {
		s := sqlDB.DB().Stats()
		stats["pool"] = map[string]interface{}{
			"open_connections": s.OpenConnections,
			"in_use":           s.InUse,
			"idle":             s.Idle,
			"wait_count":       s.WaitCount,
			"wait_duration":    s.WaitDuration.String(),
		}
	}
	return stats
}
