package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Step 一个编号迁移步骤；Apply 在事务内执行，且必须可重复执行
type Step struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sql.Tx, d Dialect) error
}

// Steps 按顺序排列的迁移步骤，只增不改
func Steps() []Step {
	return []Step{
		{Version: 1, Name: "create_admins", Apply: createAdmins},
		{Version: 2, Name: "create_units", Apply: createUnits},
		{Version: 3, Name: "units_add_project", Apply: addUnitProject},
		{Version: 4, Name: "meetings_denormalize", Apply: denormalizeMeetings},
		{Version: 5, Name: "create_meeting_files", Apply: createMeetingFiles},
		{Version: 6, Name: "meetings_date_index", Apply: indexMeetingDate},
	}
}

func createAdmins(ctx context.Context, tx *sql.Tx, d Dialect) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id %s,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT DEFAULT 'admin',
		created_at %s
	)`, TableAdmins, d.PrimaryKey(), d.Timestamp()))
	return err
}

func createUnits(ctx context.Context, tx *sql.Tx, d Dialect) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id %s,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		project TEXT NOT NULL,
		created_at %s
	)`, TableUnits, d.PrimaryKey(), d.Timestamp()))
	return err
}

func addUnitProject(ctx context.Context, tx *sql.Tx, d Dialect) error {
	cols, err := Columns(ctx, tx, d, TableUnits)
	if err != nil {
		return err
	}
	if cols.Has("project") {
		return nil
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN project TEXT NOT NULL DEFAULT '1'", TableUnits))
	return err
}

func meetingsDDL(d Dialect, table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
		id %s,
		project TEXT NOT NULL,
		community_type TEXT NOT NULL,
		meeting_date TEXT NOT NULL,
		meeting_time TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		participants_count INTEGER DEFAULT 0,
		notes TEXT,
		created_by INTEGER NOT NULL,
		created_at %s,
		updated_at %s
	)`, table, d.PrimaryKey(), d.Timestamp(), d.Timestamp())
}

// denormalizeMeetings 将引用式聚会表改写为冗余式：
// 新表写入 meetings_new，按 community_id 关联单位取 project/type（缺失回退 '1'/group），
// 保留原 id，最后替换旧表。整个步骤在同一事务内。
func denormalizeMeetings(ctx context.Context, tx *sql.Tx, d Dialect) error {
	cols, err := Columns(ctx, tx, d, TableMeetings)
	if err != nil {
		return err
	}
	if !cols.Exists() {
		_, err = tx.ExecContext(ctx, meetingsDDL(d, TableMeetings))
		return err
	}
	if cols.Has("project") && cols.Has("community_type") {
		return nil
	}

	const staging = TableMeetings + "_new"
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+staging); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, meetingsDDL(d, staging)); err != nil {
		return err
	}

	if cols.Has("community_id") {
		units, err := Columns(ctx, tx, d, TableUnits)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, copyMeetingsSQL(staging, cols, units)); err != nil {
			return fmt.Errorf("copy meetings: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+TableMeetings); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", staging, TableMeetings)); err != nil {
		return err
	}
	if reset := d.resetSequence(TableMeetings); reset != "" {
		if _, err := tx.ExecContext(ctx, reset); err != nil {
			return err
		}
	}
	return nil
}

// copyMeetingsSQL 构造 INSERT ... SELECT，旧表缺失的列使用默认值
func copyMeetingsSQL(target string, meetings, units ColumnSet) string {
	pick := func(col, expr, fallback string) string {
		if meetings.Has(col) {
			return expr
		}
		return fallback
	}

	project := "'1'"
	if units.Has("project") {
		project = "COALESCE(NULLIF(c.project, ''), '1')"
	}
	unitType := "'group'"
	if units.Has("type") {
		unitType = "COALESCE(NULLIF(c.type, ''), 'group')"
	}

	selects := []string{
		"m.id",
		project,
		unitType,
		pick("meeting_date", "COALESCE(CAST(m.meeting_date AS TEXT), '')", "''"),
		pick("meeting_time", "COALESCE(m.meeting_time, '')", "''"),
		pick("location", "COALESCE(m.location, '')", "''"),
		pick("participants_count", "COALESCE(m.participants_count, 0)", "0"),
		pick("notes", "m.notes", "NULL"),
		pick("created_by", "COALESCE(m.created_by, 0)", "0"),
		pick("created_at", "COALESCE(m.created_at, CURRENT_TIMESTAMP)", "CURRENT_TIMESTAMP"),
		pick("updated_at", "COALESCE(m.updated_at, CURRENT_TIMESTAMP)", "CURRENT_TIMESTAMP"),
	}

	return fmt.Sprintf(`INSERT INTO %s (
		id, project, community_type, meeting_date, meeting_time, location,
		participants_count, notes, created_by, created_at, updated_at
	)
	SELECT %s
	FROM %s m
	LEFT JOIN %s c ON m.community_id = c.id`,
		target, strings.Join(selects, ", "), TableMeetings, TableUnits)
}

func createMeetingFiles(ctx context.Context, tx *sql.Tx, d Dialect) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id %s,
		meeting_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		type TEXT NOT NULL,
		original_name TEXT NOT NULL,
		file_size INTEGER,
		created_at %s
	)`, TableMeetingFiles, d.PrimaryKey(), d.Timestamp()))
	return err
}

func indexMeetingDate(ctx context.Context, tx *sql.Tx, d Dialect) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_meetings_meeting_date ON %s (meeting_date)", TableMeetings))
	return err
}
