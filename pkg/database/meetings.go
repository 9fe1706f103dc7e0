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

func scanMeeting(sc interface{ Scan(...interface{}) error }) (models.Meeting, error) {
	var m models.Meeting
	var unitID sql.NullInt64
	var unitType string
	err := sc.Scan(
		&m.ID, &unitID, &m.UnitName, &m.Project, &unitType,
		&m.MeetingDate, &m.MeetingTime, &m.Location,
		&m.ParticipantsCount, &m.Notes,
		&m.CreatedBy, &m.CreatedByName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return m, err
	}
	m.UnitType = models.UnitType(unitType)
	if unitID.Valid {
		id := unitID.Int64
		m.UnitID = &id
	}
	return m, nil
}

func (s *SQLDatabase) collectMeetings(rows *sql.Rows) ([]models.Meeting, error) {
	defer rows.Close()
	meetings := []models.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meetings: %w", err)
	}
	return meetings, nil
}

// ListMeetings 分页查询聚会记录；总数使用同一组条件单独计数
func (s *SQLDatabase) ListMeetings(ctx context.Context, filter models.MeetingFilter, page, limit int) (*models.MeetingPage, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	page, limit = models.NormalizePage(page, limit)
	p := s.meetingPredicate(filter)

	var total int64
	countSQL := "SELECT COUNT(*) FROM " + s.meetingExprs().from + p.where()
	if err := s.queryRow(ctx, s.db, countSQL, p.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count meetings: %w", err)
	}

	result := &models.MeetingPage{
		Meetings: []models.Meeting{},
		Pagination: models.Pagination{
			CurrentPage:  page,
			TotalPages:   models.TotalPages(total, limit),
			TotalRecords: total,
			Limit:        limit,
		},
	}
	// 末页之后直接返回空页，页码不参与乘法，避免偏移量溢出
	if page > result.Pagination.TotalPages {
		return result, nil
	}

	offset := int64(page-1) * int64(limit)
	args := append(append([]interface{}{}, p.args...), limit, offset)
	rows, err := s.query(ctx, s.db, s.meetingSelect()+p.where()+meetingOrder+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	meetings, err := s.collectMeetings(rows)
	if err != nil {
		return nil, err
	}
	result.Meetings = meetings
	return result, nil
}

// ExportMeetings 返回全部匹配的聚会记录
func (s *SQLDatabase) ExportMeetings(ctx context.Context, filter models.MeetingFilter) ([]models.Meeting, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	p := s.meetingPredicate(filter)
	rows, err := s.query(ctx, s.db, s.meetingSelect()+p.where()+meetingOrder, p.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to export meetings: %w", err)
	}
	return s.collectMeetings(rows)
}

// GetMeeting 获取单条聚会记录及其附件
func (s *SQLDatabase) GetMeeting(ctx context.Context, id int64) (*models.Meeting, error) {
	m, err := scanMeeting(s.queryRow(ctx, s.db, s.meetingSelect()+" WHERE m.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundf("meeting %d", id)
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	attachments, err := s.ListAttachments(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Attachments = attachments
	return &m, nil
}

// meetingWrite 按当前结构形态生成写入列
func (s *SQLDatabase) meetingWrite(in models.MeetingInput) ([]string, []interface{}) {
	var cols []string
	var args []interface{}
	if s.layout.Referential() {
		cols = append(cols, "community_id")
		args = append(args, *in.UnitID)
	} else {
		cols = append(cols, "project", "community_type")
		args = append(args, in.Project, string(in.UnitType))
	}
	cols = append(cols, "meeting_date", "meeting_time", "location", "participants_count", "notes")
	args = append(args, in.MeetingDate, in.MeetingTime, in.Location, in.ParticipantsCount, in.Notes)
	return cols, args
}

// CreateMeeting 创建聚会记录并写入附件元数据（同一事务）
func (s *SQLDatabase) CreateMeeting(ctx context.Context, in models.MeetingInput, createdBy int64, attachments []models.NewAttachment) (*models.Meeting, error) {
	if err := in.Validate(s.layout.Referential()); err != nil {
		return nil, err
	}

	cols, args := s.meetingWrite(in)
	cols = append(cols, "created_by")
	args = append(args, createdBy)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.insertID(ctx, tx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.TableMeetings, strings.Join(cols, ", "), placeholders(len(cols))), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	if err := s.insertAttachments(ctx, tx, id, attachments); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit meeting: %w", err)
	}
	return s.GetMeeting(ctx, id)
}

// UpdateMeeting 更新聚会记录并追加附件
func (s *SQLDatabase) UpdateMeeting(ctx context.Context, id int64, in models.MeetingInput, attachments []models.NewAttachment) (*models.Meeting, error) {
	if err := in.Validate(s.layout.Referential()); err != nil {
		return nil, err
	}

	cols, args := s.meetingWrite(in)
	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := s.exec(ctx, tx, fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		schema.TableMeetings, strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update meeting: %w", err)
	}
	if err := requireAffected(res, "meeting", id); err != nil {
		return nil, err
	}
	if err := s.insertAttachments(ctx, tx, id, attachments); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit meeting: %w", err)
	}
	return s.GetMeeting(ctx, id)
}

// DeleteMeeting 删除聚会记录
func (s *SQLDatabase) DeleteMeeting(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, s.db, "DELETE FROM "+schema.TableMeetings+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	return requireAffected(res, "meeting", id)
}

func (s *SQLDatabase) insertAttachments(ctx context.Context, tx *sql.Tx, meetingID int64, attachments []models.NewAttachment) error {
	for _, a := range attachments {
		if _, err := s.exec(ctx, tx,
			"INSERT INTO "+schema.TableMeetingFiles+" (meeting_id, filename, type, original_name, file_size) VALUES (?, ?, ?, ?, ?)",
			meetingID, a.StoredFilename, string(a.Kind), a.OriginalName, a.SizeBytes,
		); err != nil {
			return fmt.Errorf("failed to save attachment %s: %w", a.StoredFilename, err)
		}
	}
	return nil
}

// ListAttachments 列出聚会附件（按上传顺序）
func (s *SQLDatabase) ListAttachments(ctx context.Context, meetingID int64) ([]models.Attachment, error) {
	rows, err := s.query(ctx, s.db,
		"SELECT id, meeting_id, filename, type, original_name, COALESCE(file_size, 0), created_at FROM "+
			schema.TableMeetingFiles+" WHERE meeting_id = ? ORDER BY id", meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	attachments := []models.Attachment{}
	for rows.Next() {
		var a models.Attachment
		var kind string
		if err := rows.Scan(&a.ID, &a.MeetingID, &a.StoredFilename, &kind, &a.OriginalName, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		a.Kind = models.AttachmentKind(kind)
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}
