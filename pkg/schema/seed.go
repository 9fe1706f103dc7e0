package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 默认账户（首次启动写入，部署后应立即修改密码）
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	DefaultAdminName     = "系统管理员"
	DefaultAdminRole     = "super_admin"

	sampleUnitCount = 10
)

// Seed 写入默认管理员；单位表为空时写入 10 个示例组（项目 1~10）
func Seed(ctx context.Context, q Querier, layout Layout, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := layout.Dialect

	var id int64
	err := q.QueryRowContext(ctx, d.Rebind(`SELECT id FROM admins WHERE username = ?`), DefaultAdminUsername).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash default password: %w", err)
		}
		if _, err := q.ExecContext(ctx,
			d.Rebind(`INSERT INTO admins (username, password, name, role) VALUES (?, ?, ?, ?)`),
			DefaultAdminUsername, string(hash), DefaultAdminName, DefaultAdminRole,
		); err != nil {
			return fmt.Errorf("seed default admin: %w", err)
		}
		logger.Warn("default admin account created, change its password", zap.String("username", DefaultAdminUsername))
	case err != nil:
		return fmt.Errorf("look up default admin: %w", err)
	}

	var count int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+TableUnits).Scan(&count); err != nil {
		return fmt.Errorf("count units: %w", err)
	}
	if count > 0 {
		return nil
	}

	cols := []string{"name", "type"}
	if layout.UnitsHaveProject {
		cols = append(cols, "project")
	}
	if layout.UnitsHaveLegacyRegion {
		cols = append(cols, "district")
	}
	insert := d.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableUnits, strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")))

	for i := 1; i <= sampleUnitCount; i++ {
		args := []interface{}{fmt.Sprintf("示例%d组", i), "group"}
		if layout.UnitsHaveProject {
			args = append(args, fmt.Sprintf("%d", i))
		}
		if layout.UnitsHaveLegacyRegion {
			args = append(args, "")
		}
		if _, err := q.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("seed sample unit %d: %w", i, err)
		}
	}
	logger.Info("sample units created", zap.Int("count", sampleUnitCount))
	return nil
}
