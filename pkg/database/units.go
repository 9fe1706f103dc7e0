package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/schema"
)

func (s *SQLDatabase) unitColumns() string {
	project := "project"
	if !s.layout.UnitsHaveProject {
		project = "'1'"
	}
	region := "NULL"
	if s.layout.UnitsHaveLegacyRegion {
		region = "district"
	}
	return fmt.Sprintf("id, name, type, %s, %s, created_at", project, region)
}

func scanUnit(sc interface{ Scan(...interface{}) error }) (models.Unit, error) {
	var u models.Unit
	var unitType string
	var region sql.NullString
	if err := sc.Scan(&u.ID, &u.Name, &unitType, &u.Project, &region, &u.CreatedAt); err != nil {
		return u, err
	}
	u.Type = models.UnitType(unitType)
	if region.Valid {
		u.LegacyRegion = &region.String
	}
	return u, nil
}

// ListUnits 按名称排序返回全部单位
func (s *SQLDatabase) ListUnits(ctx context.Context) ([]models.Unit, error) {
	rows, err := s.query(ctx, s.db, fmt.Sprintf("SELECT %s FROM %s ORDER BY name", s.unitColumns(), schema.TableUnits))
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	units := []models.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

// GetUnit 根据ID获取单位
func (s *SQLDatabase) GetUnit(ctx context.Context, id int64) (*models.Unit, error) {
	u, err := scanUnit(s.queryRow(ctx, s.db,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", s.unitColumns(), schema.TableUnits), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundf("unit %d", id)
		}
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return &u, nil
}

// CreateUnit 创建单位；旧库存在 district 列时写入空字符串
func (s *SQLDatabase) CreateUnit(ctx context.Context, in models.UnitInput) (*models.Unit, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cols := []string{"name", "type"}
	args := []interface{}{in.Name, string(in.Type)}
	if s.layout.UnitsHaveProject {
		cols = append(cols, "project")
		args = append(args, in.Project)
	}
	if s.layout.UnitsHaveLegacyRegion {
		cols = append(cols, "district")
		args = append(args, "")
	}

	id, err := s.insertID(ctx, s.db, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.TableUnits, strings.Join(cols, ", "), placeholders(len(cols))), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}
	return s.GetUnit(ctx, id)
}

// UpdateUnit 更新单位；旧库的 district 保持原值
func (s *SQLDatabase) UpdateUnit(ctx context.Context, id int64, in models.UnitInput) (*models.Unit, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sets := []string{"name = ?", "type = ?"}
	args := []interface{}{in.Name, string(in.Type)}
	if s.layout.UnitsHaveProject {
		sets = append(sets, "project = ?")
		args = append(args, in.Project)
	}
	if s.layout.UnitsHaveLegacyRegion {
		sets = append(sets, "district = COALESCE(district, '')")
	}
	args = append(args, id)

	res, err := s.exec(ctx, s.db, fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		schema.TableUnits, strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update unit: %w", err)
	}
	if err := requireAffected(res, "unit", id); err != nil {
		return nil, err
	}
	return s.GetUnit(ctx, id)
}

// DeleteUnit 删除单位，不检查引用（引用式聚会会成为孤儿记录）
func (s *SQLDatabase) DeleteUnit(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, "DELETE FROM "+schema.TableUnits+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete unit: %w", err)
	}
	return requireAffected(res, "unit", id)
}

func requireAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return models.NotFoundf("%s %d", entity, id)
	}
	return nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
