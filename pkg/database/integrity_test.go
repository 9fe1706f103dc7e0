package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"community-meetings-backend/pkg/models"
)

func TestCheckIntegrity(t *testing.T) {
	ctx := context.Background()
	store := newTestDB(t)

	kept, err := store.CreateMeeting(ctx, meetingInput("1", models.UnitTypeGroup, "2024-01-01", "10:00", 1), 1,
		[]models.NewAttachment{{StoredFilename: "images-keep.png", Kind: models.AttachmentImage, OriginalName: "k.png", SizeBytes: 1}})
	require.NoError(t, err)
	gone, err := store.CreateMeeting(ctx, meetingInput("1", models.UnitTypeGroup, "2024-01-02", "10:00", 1), 1,
		[]models.NewAttachment{{StoredFilename: "files-gone.pdf", Kind: models.AttachmentFile, OriginalName: "g.pdf", SizeBytes: 1}})
	require.NoError(t, err)
	require.NoError(t, store.DeleteMeeting(ctx, gone.ID))

	report, err := store.CheckIntegrity(ctx, []string{"images-keep.png", "images-stray.jpg"})
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, "denormalized", report.MeetingShape)
	assert.Empty(t, report.OrphanMeetings)
	require.Len(t, report.OrphanAttachments, 1)
	assert.Equal(t, []string{"files-gone.pdf"}, report.MissingFiles)
	assert.Equal(t, []string{"images-stray.jpg"}, report.UnreferencedFiles)

	attachments, err := store.ListAttachments(ctx, kept.ID)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
}

func TestCheckIntegrityCleanDatabase(t *testing.T) {
	report, err := newTestDB(t).CheckIntegrity(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, report.Clean())
}

func TestGetDatabaseReusesInstance(t *testing.T) {
	ctx := context.Background()
	t.Cleanup(func() { _ = ClosePool() })

	cfg := DatabaseConfig{Driver: "sqlite", SQLitePath: t.TempDir() + "/pool.sqlite"}
	first, err := GetDatabase(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	second, err := GetDatabase(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, first, second)

	stats := GetConnectionStats()
	assert.Equal(t, "connected", stats["status"])
	assert.Equal(t, "sqlite", stats["driver"])

	cfg.SQLitePath = t.TempDir() + "/other.sqlite"
	third, err := GetDatabase(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	require.NoError(t, ClosePool())
	assert.Equal(t, "no_connection", GetConnectionStats()["status"])
}
