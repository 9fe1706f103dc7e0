package models

import (
	"strings"
	"time"
)

// 分页默认值
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	MaxParticipants = 10000
)

// AttachmentKind 附件类别，与上传字段对应
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment 聚会附件元数据（文件本体存放在上传目录）
type Attachment struct {
	ID             int64          `json:"id"`
	MeetingID      int64          `json:"meeting_id"`
	StoredFilename string         `json:"filename"`
	Kind           AttachmentKind `json:"type"`
	OriginalName   string         `json:"original_name"`
	SizeBytes      int64          `json:"file_size"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewAttachment 待写入的附件元数据
type NewAttachment struct {
	StoredFilename string
	Kind           AttachmentKind
	OriginalName   string
	SizeBytes      int64
}

// Meeting 聚会记录
type Meeting struct {
	ID int64 `json:"id"`

	// 仅在旧的引用式结构下存在
	UnitID   *int64 `json:"unit_id,omitempty"`
	UnitName string `json:"unit_name,omitempty"`

	Project           string    `json:"project"`
	UnitType          UnitType  `json:"unit_type"`
	MeetingDate       string    `json:"meeting_date"`
	MeetingTime       string    `json:"meeting_time"`
	Location          string    `json:"location"`
	ParticipantsCount int       `json:"participants_count"`
	Notes             string    `json:"notes"`
	CreatedBy         int64     `json:"created_by"`
	CreatedByName     string    `json:"created_by_name"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Attachments []Attachment `json:"attachments,omitempty"`
}

// MeetingInput 创建/更新聚会请求
type MeetingInput struct {
	UnitID            *int64   `json:"unit_id,omitempty"`
	Project           string   `json:"project"`
	UnitType          UnitType `json:"unit_type" validate:"omitempty,unittype"`
	MeetingDate       string   `json:"meeting_date" validate:"required,isodate"`
	MeetingTime       string   `json:"meeting_time" validate:"required,hhmm"`
	Location          string   `json:"location"`
	ParticipantsCount int      `json:"participants_count" validate:"gte=0,lte=10000"`
	Notes             string   `json:"notes"`
}

// Normalize 去除首尾空白
func (in *MeetingInput) Normalize() {
	in.Project = strings.TrimSpace(in.Project)
	in.UnitType = UnitType(strings.TrimSpace(string(in.UnitType)))
	in.MeetingDate = strings.TrimSpace(in.MeetingDate)
	in.MeetingTime = strings.TrimSpace(in.MeetingTime)
	in.Location = strings.TrimSpace(in.Location)
}

// Validate 校验聚会请求；referential 为 true 时要求 unit_id，否则要求 project + unit_type
func (in *MeetingInput) Validate(referential bool) error {
	in.Normalize()
	if referential {
		if in.UnitID == nil || *in.UnitID <= 0 {
			return NewValidationError("unit_id", "is required")
		}
	} else {
		if in.Project == "" {
			return NewValidationError("project", "is required")
		}
		if in.UnitType == "" {
			return NewValidationError("unit_type", "is required")
		}
	}
	return ValidateStruct(in)
}

// MeetingFilter 聚会列表过滤条件，所有条件为 AND
type MeetingFilter struct {
	Project   string
	UnitType  UnitType
	StartDate string
	EndDate   string
	Location  string
}

// Normalize 去除首尾空白
func (f *MeetingFilter) Normalize() {
	f.Project = strings.TrimSpace(f.Project)
	f.UnitType = UnitType(strings.TrimSpace(string(f.UnitType)))
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	f.Location = strings.TrimSpace(f.Location)
}

// Validate 校验过滤条件格式
func (f *MeetingFilter) Validate() error {
	f.Normalize()
	if f.UnitType != "" && !f.UnitType.Valid() {
		return NewValidationError("unit_type", "must be one of "+joinUnitTypes())
	}
	if f.StartDate != "" && !IsDate(f.StartDate) {
		return NewValidationError("start_date", "must be a date in YYYY-MM-DD format")
	}
	if f.EndDate != "" && !IsDate(f.EndDate) {
		return NewValidationError("end_date", "must be a date in YYYY-MM-DD format")
	}
	return nil
}

// Pagination 分页信息
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalRecords int64 `json:"total_records"`
	Limit        int   `json:"limit"`
}

// MeetingPage 聚会分页结果
type MeetingPage struct {
	Meetings   []Meeting  `json:"meetings"`
	Pagination Pagination `json:"pagination"`
}

// NormalizePage 规范化分页参数：page<1 取 1，limit 缺省 20，上限 100
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// TotalPages ceil(total/limit)
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
