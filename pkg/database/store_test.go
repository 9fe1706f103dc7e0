package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/schema"
)

// newTestDB 返回已迁移的内存库，并写入一个测试管理员（id=1）
func newTestDB(t *testing.T) *SQLDatabase {
	t.Helper()
	db := OpenMemory(t)
	layout, err := schema.NewGuard(db, schema.SQLite, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO admins (username, password, name, role) VALUES ('tester', 'x', '测试员', 'admin')`)
	require.NoError(t, err)
	return NewSQLDatabase(db, layout)
}

func mustExec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
}

func TestUnitCRUD(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	b, err := store.CreateUnit(ctx, models.UnitInput{Name: "B组", Type: "group", Project: "2"})
	require.NoError(t, err)
	a, err := store.CreateUnit(ctx, models.UnitInput{Name: "A排", Type: "pai", Project: "1"})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Equal(t, models.UnitTypePai, a.Type)
	assert.Nil(t, a.LegacyRegion)
	assert.False(t, a.CreatedAt.IsZero())

	units, err := store.ListUnits(ctx)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "A排", units[0].Name)
	assert.Equal(t, "B组", units[1].Name)

	updated, err := store.UpdateUnit(ctx, b.ID, models.UnitInput{Name: "B区", Type: "region", Project: "3"})
	require.NoError(t, err)
	assert.Equal(t, "B区", updated.Name)
	assert.Equal(t, models.UnitTypeRegion, updated.Type)
	assert.Equal(t, "3", updated.Project)

	require.NoError(t, store.DeleteUnit(ctx, a.ID))
	_, err = store.GetUnit(ctx, a.ID)
	assert.True(t, models.IsNotFound(err))

	assert.True(t, models.IsNotFound(store.DeleteUnit(ctx, a.ID)))
	_, err = store.UpdateUnit(ctx, 999, models.UnitInput{Name: "x", Type: "group", Project: "1"})
	assert.True(t, models.IsNotFound(err))
}

func TestCreateUnitRejectsInvalidTypeWithoutWriting(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	_, err := store.CreateUnit(ctx, models.UnitInput{Name: "X", Type: "district", Project: "1"})
	assert.True(t, models.IsValidationError(err))

	_, err = store.CreateUnit(ctx, models.UnitInput{Name: "", Type: "group", Project: "1"})
	assert.True(t, models.IsValidationError(err))

	units, err := store.ListUnits(ctx)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestUnitsWithLegacyRegion(t *testing.T) {
	ctx := context.Background()
	db := OpenMemory(t)
	mustExec(t, db,
		`CREATE TABLE communities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			district TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT INTO communities (name, type, district) VALUES ('老一组', 'group', '北区')`,
	)
	layout, err := schema.NewGuard(db, schema.SQLite, zap.NewNop()).Run(ctx)
	require.NoError(t, err)
	require.True(t, layout.UnitsHaveLegacyRegion)
	store := NewSQLDatabase(db, layout)

	created, err := store.CreateUnit(ctx, models.UnitInput{Name: "新组", Type: "group", Project: "5"})
	require.NoError(t, err)
	require.NotNil(t, created.LegacyRegion)
	assert.Equal(t, "", *created.LegacyRegion)

	old, err := store.UpdateUnit(ctx, 1, models.UnitInput{Name: "老一组", Type: "church", Project: "2"})
	require.NoError(t, err)
	require.NotNil(t, old.LegacyRegion)
	assert.Equal(t, "北区", *old.LegacyRegion)
	assert.Equal(t, "2", old.Project)
}

func TestAdmins(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	admin, err := store.GetAdminByUsername(ctx, "tester")
	require.NoError(t, err)
	assert.Equal(t, int64(1), admin.ID)
	assert.Equal(t, "测试员", admin.Name)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "x", admin.PasswordHash)

	_, err = store.GetAdminByUsername(ctx, "nobody")
	assert.True(t, models.IsNotFound(err))

	require.NoError(t, store.UpdateAdminName(ctx, admin.ID, "新名字"))
	require.NoError(t, store.UpdateAdminPassword(ctx, admin.ID, "hash"))
	admin, err = store.GetAdminByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "新名字", admin.Name)
	assert.Equal(t, "hash", admin.PasswordHash)

	assert.True(t, models.IsNotFound(store.UpdateAdminName(ctx, 42, "x")))
}

func TestNewDatabaseSQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/nested/meetings.sqlite"

	store, err := NewDatabase(ctx, DatabaseConfig{Driver: "sqlite", SQLitePath: path, SeedDefaults: true}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.HealthCheck())
	assert.Equal(t, schema.Denormalized, store.Layout().Meetings)

	admin, err := store.GetAdminByUsername(ctx, schema.DefaultAdminUsername)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperAdmin, admin.Role)

	units, err := store.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 10)
}

func TestNewDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase(context.Background(), DatabaseConfig{Driver: "mysql"}, nil)
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestAddConnectionParams(t *testing.T) {
	assert.Equal(t, "postgres://h/db?connect_timeout=10", addConnectionParams("postgres://h/db", "connect_timeout=10"))
	assert.Equal(t, "postgres://h/db?a=1&b=2", addConnectionParams("postgres://h/db?a=1", "b=2"))
	assert.Equal(t, "host=h dbname=db", addConnectionParams("host=h dbname=db", "b=2"))
}
