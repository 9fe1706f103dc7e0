package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/schema"
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 单位管理
	ListUnits(ctx context.Context) ([]models.Unit, error)
	GetUnit(ctx context.Context, id int64) (*models.Unit, error)
	CreateUnit(ctx context.Context, in models.UnitInput) (*models.Unit, error)
	UpdateUnit(ctx context.Context, id int64, in models.UnitInput) (*models.Unit, error)
	DeleteUnit(ctx context.Context, id int64) error

	// 聚会记录
	ListMeetings(ctx context.Context, filter models.MeetingFilter, page, limit int) (*models.MeetingPage, error)
	// ExportMeetings 返回全部匹配记录，排序与 ListMeetings 一致
	ExportMeetings(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, error)
	GetMeeting(ctx context.Context, id int64) (*models.Meeting, error)
	CreateMeeting(ctx context.Context, in models.MeetingInput, createdBy int64, attachments []models.NewAttachment) (*models.Meeting, error)
	// UpdateMeeting 更新字段并追加附件，已有附件保持不变
	UpdateMeeting(ctx context.Context, id int64, in models.MeetingInput, attachments []models.NewAttachment) (*models.Meeting, error)
	// DeleteMeeting 只删除聚会行，附件元数据与文件保留
	DeleteMeeting(ctx context.Context, id int64) error
	ListAttachments(ctx context.Context, meetingID int64) ([]models.Attachment, error)

	// 统计
	Statistics(ctx context.Context, filter models.StatisticsFilter) ([]models.StatisticsRow, error)

	// 管理员
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	GetAdminByID(ctx context.Context, id int64) (*models.Admin, error)
	UpdateAdminName(ctx context.Context, id int64, name string) error
	UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error

	// 完整性检查（只读）；storedFiles 为上传目录中的文件名
	CheckIntegrity(ctx context.Context, storedFiles []string) (*IntegrityReport, error)

	// 启动时解析的表结构
	Layout() schema.Layout

	// 健康检查
	HealthCheck() error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string
	SQLitePath   string
	PostgresDSN  string
	SeedDefaults bool
}

// NewDatabase 打开数据库，执行结构守卫与默认数据写入，返回可用的存储。
// 迁移或写入默认数据失败只记录日志，不阻止启动。
func NewDatabase(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (DatabaseInterface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialect, err := schema.ParseDialect(config.Driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case schema.Postgres:
		logger.Info("using PostgreSQL database")
		db, err = OpenPostgres(config.PostgresDSN, logger)
	default:
		logger.Info("using SQLite database", zap.String("path", config.SQLitePath))
		db, err = OpenSQLite(config.SQLitePath)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	layout, err := schema.NewGuard(db, dialect, logger).Run(ctx)
	if err != nil {
		logger.Error("could not inspect schema, assuming fresh layout", zap.Error(err))
	}

	if config.SeedDefaults {
		if err := schema.Seed(ctx, db, layout, logger); err != nil {
			logger.Error("seeding defaults failed", zap.Error(err))
		}
	}

	return NewSQLDatabase(db, layout), nil
}
