package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"community-meetings-backend/pkg/schema"
)

// IntegrityReport 孤儿数据报告；只读，不做任何修复
type IntegrityReport struct {
	CheckedAt    time.Time `json:"checked_at"`
	MeetingShape string    `json:"meeting_shape"`

	// 引用式结构下 community_id 指向已删除单位的聚会
	OrphanMeetings []int64 `json:"orphan_meetings"`
	// 所属聚会已删除的附件元数据
	OrphanAttachments []int64 `json:"orphan_attachments"`
	// 有元数据但上传目录中不存在的文件
	MissingFiles []string `json:"missing_files"`
	// 上传目录中没有元数据的文件
	UnreferencedFiles []string `json:"unreferenced_files"`
}

// Clean 是否没有发现任何问题
func (r *IntegrityReport) Clean() bool {
	return len(r.OrphanMeetings) == 0 && len(r.OrphanAttachments) == 0 &&
		len(r.MissingFiles) == 0 && len(r.UnreferencedFiles) == 0
}

// CheckIntegrity 检查孤儿记录与孤儿文件
func (s *SQLDatabase) CheckIntegrity(ctx context.Context, storedFiles []string) (*IntegrityReport, error) {
	report := &IntegrityReport{
		CheckedAt:         time.Now().UTC(),
		MeetingShape:      s.layout.Meetings.String(),
		OrphanMeetings:    []int64{},
		OrphanAttachments: []int64{},
		MissingFiles:      []string{},
		UnreferencedFiles: []string{},
	}

	var err error
	if s.layout.Referential() {
		report.OrphanMeetings, err = s.collectIDs(ctx, fmt.Sprintf(
			`SELECT m.id FROM %s m LEFT JOIN %s c ON m.community_id = c.id WHERE c.id IS NULL ORDER BY m.id`,
			schema.TableMeetings, schema.TableUnits))
		if err != nil {
			return nil, fmt.Errorf("failed to check orphan meetings: %w", err)
		}
	}

	report.OrphanAttachments, err = s.collectIDs(ctx, fmt.Sprintf(
		`SELECT f.id FROM %s f LEFT JOIN %s m ON f.meeting_id = m.id WHERE m.id IS NULL ORDER BY f.id`,
		schema.TableMeetingFiles, schema.TableMeetings))
	if err != nil {
		return nil, fmt.Errorf("failed to check orphan attachments: %w", err)
	}

	referenced, err := s.attachmentFilenames(ctx)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(storedFiles))
	for _, name := range storedFiles {
		onDisk[name] = true
		if !referenced[name] {
			report.UnreferencedFiles = append(report.UnreferencedFiles, name)
		}
	}
	for name := range referenced {
		if !onDisk[name] {
			report.MissingFiles = append(report.MissingFiles, name)
		}
	}
	sort.Strings(report.UnreferencedFiles)
	sort.Strings(report.MissingFiles)

	return report, nil
}

func (s *SQLDatabase) collectIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.query(ctx, s.db, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLDatabase) attachmentFilenames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.query(ctx, s.db, "SELECT filename FROM "+schema.TableMeetingFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachment files: %w", err)
	}
	defer rows.Close()

	names := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan attachment file: %w", err)
		}
		names[name] = true
	}
	return names, rows.Err()
}
