package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"community-meetings-backend/pkg/models"
)

const adminColumns = "id, username, password, name, COALESCE(role, 'admin'), created_at"

func scanAdmin(row *sql.Row) (*models.Admin, error) {
	var a models.Admin
	var role string
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Name, &role, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = models.AdminRole(role)
	return &a, nil
}

// GetAdminByUsername 根据用户名获取管理员
func (s *SQLDatabase) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	a, err := scanAdmin(s.queryRow(ctx, s.db, "SELECT "+adminColumns+" FROM admins WHERE username = ?", username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundf("admin %q", username)
		}
		return nil, fmt.Errorf("failed to get admin by username: %w", err)
	}
	return a, nil
}

// GetAdminByID 根据ID获取管理员
func (s *SQLDatabase) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	a, err := scanAdmin(s.queryRow(ctx, s.db, "SELECT "+adminColumns+" FROM admins WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundf("admin %d", id)
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return a, nil
}

// UpdateAdminName 修改显示名称
func (s *SQLDatabase) UpdateAdminName(ctx context.Context, id int64, name string) error {
	res, err := s.exec(ctx, s.db, "UPDATE admins SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
	}
	return requireAffected(res, "admin", id)
}

// UpdateAdminPassword 写入新的密码哈希
func (s *SQLDatabase) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.exec(ctx, s.db, "UPDATE admins SET password = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(res, "admin", id)
}
