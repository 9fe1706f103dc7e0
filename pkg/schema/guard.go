package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Guard 启动时检查并向前迁移表结构，旧数据保持可读。
// 失败只记录日志，服务继续以现有结构运行；下次启动从 dirty 步骤重试。
type Guard struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	steps   []Step
}

// NewGuard 创建结构守卫
func NewGuard(db *sql.DB, d Dialect, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		db:      db,
		dialect: d,
		logger:  logger.Named("schema"),
		steps:   Steps(),
	}
}

// Run 执行迁移并解析最终结构；只有无法读取列信息时才返回错误
func (g *Guard) Run(ctx context.Context) (Layout, error) {
	if err := g.Migrate(ctx); err != nil {
		g.logger.Error("schema migration failed, keeping existing tables", zap.Error(err))
	}

	layout, err := ResolveLayout(ctx, g.db, g.dialect)
	if err != nil {
		return DefaultLayout(g.dialect), err
	}
	g.logger.Info("schema layout resolved",
		zap.String("dialect", string(layout.Dialect)),
		zap.Stringer("meetings", layout.Meetings),
		zap.Bool("units_have_project", layout.UnitsHaveProject),
		zap.Bool("units_have_legacy_region", layout.UnitsHaveLegacyRegion),
	)
	return layout, nil
}

// Migrate 依次执行未完成的步骤
func (g *Guard) Migrate(ctx context.Context) error {
	marker, release, err := openMarker(g.db, g.dialect)
	if err != nil {
		return err
	}
	defer release()

	if err := marker.Lock(); err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	defer func() {
		if err := marker.Unlock(); err != nil {
			g.logger.Warn("unlock schema failed", zap.Error(err))
		}
	}()

	current, dirty, err := marker.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		g.logger.Warn("previous schema step did not finish, retrying", zap.Int("version", current))
	}

	applied := 0
	for _, step := range g.steps {
		if step.Version < current || (step.Version == current && !dirty) {
			continue
		}
		if err := g.apply(ctx, marker, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", step.Version, step.Name, err)
		}
		applied++
	}

	if applied == 0 {
		g.logger.Debug("schema up to date", zap.Int("version", current))
	}
	return nil
}

func (g *Guard) apply(ctx context.Context, marker VersionMarker, step Step) (err error) {
	start := time.Now()
	log := g.logger.With(zap.Int("version", step.Version), zap.String("step", step.Name))
	log.Info("applying schema step")

	defer func() {
		if err != nil {
			migrationStepsTotal.WithLabelValues(step.Name, "error").Inc()
			log.Error("schema step failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		}
	}()

	if err = marker.SetVersion(step.Version, true); err != nil {
		return fmt.Errorf("mark dirty: %w", err)
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err = step.Apply(ctx, tx, g.dialect); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	if err = marker.SetVersion(step.Version, false); err != nil {
		return fmt.Errorf("mark clean: %w", err)
	}

	migrationStepsTotal.WithLabelValues(step.Name, "ok").Inc()
	schemaVersion.Set(float64(step.Version))
	log.Info("schema step applied", zap.Duration("duration", time.Since(start)))
	return nil
}
