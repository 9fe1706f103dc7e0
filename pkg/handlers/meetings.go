package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"community-meetings-backend/pkg/config"
	"community-meetings-backend/pkg/database"
	"community-meetings-backend/pkg/export"
	"community-meetings-backend/pkg/middleware"
	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/storage"
	"community-meetings-backend/pkg/utils"
)

// 普通表单字段的读取上限
const maxFormFieldBytes = 64 << 10

// MeetingHandler 聚会记录处理器
type MeetingHandler struct {
	config *config.Config
	db     database.DatabaseInterface
	files  *storage.FileStore
	logger *zap.Logger
}

// NewMeetingHandler 创建聚会记录处理器
func NewMeetingHandler(cfg *config.Config, db database.DatabaseInterface, files *storage.FileStore, logger *zap.Logger) *MeetingHandler {
	return &MeetingHandler{
		config: cfg,
		db:     db,
		files:  files,
		logger: logger.Named("meetings"),
	}
}

// meetingFilterFromQuery 列表/导出共用的过滤条件；community_type 为旧客户端参数名
func meetingFilterFromQuery(r *http.Request) models.MeetingFilter {
	q := r.URL.Query()
	return models.MeetingFilter{
		Project:   q.Get("project"),
		UnitType:  models.UnitType(utils.FirstQueryParam(r, "unit_type", "community_type")),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Location:  q.Get("location"),
	}
}

// ListMeetings 分页查询聚会记录
func (h *MeetingHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	page := utils.GetIntQueryParam(r, "page", models.DefaultPage)
	limit := utils.GetIntQueryParam(r, "limit", models.DefaultLimit)

	result, err := h.db.ListMeetings(r.Context(), meetingFilterFromQuery(r), page, limit)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, result)
}

// ExportMeetings 导出全部匹配的聚会记录（xlsx 或 csv）
func (h *MeetingHandler) ExportMeetings(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	meetings, err := h.db.ExportMeetings(r.Context(), meetingFilterFromQuery(r))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	writeExport(w, h.logger, export.MeetingsTable(meetings), format, "meetings")
}

// GetMeeting 获取聚会记录及附件
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	meeting, err := h.db.GetMeeting(r.Context(), id)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, meeting)
}

// CreateMeeting 新建聚会记录，支持 multipart 上传附件或纯 JSON
func (h *MeetingHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.RequireAdmin(r.Context())
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	in, attachments, err := h.readMeetingRequest(r)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	meeting, err := h.db.CreateMeeting(r.Context(), in, claims.AdminID, attachments)
	if err != nil {
		h.discard(attachments)
		utils.WriteError(w, h.logger, err)
		return
	}

	h.logger.Info("meeting created",
		zap.Int64("meeting_id", meeting.ID),
		zap.Int("attachments", len(attachments)),
		zap.String("admin", claims.Username))
	utils.WriteCreatedResponse(w, meeting)
}

// UpdateMeeting 更新聚会记录；新上传的附件追加在原有附件之后
func (h *MeetingHandler) UpdateMeeting(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	in, attachments, err := h.readMeetingRequest(r)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	meeting, err := h.db.UpdateMeeting(r.Context(), id, in, attachments)
	if err != nil {
		h.discard(attachments)
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteSuccessResponse(w, meeting)
}

// DeleteMeeting 删除聚会记录；附件元数据与文件保留
func (h *MeetingHandler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}

	if err := h.db.DeleteMeeting(r.Context(), id); err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.WriteMessage(w, "聚会记录删除成功")
}

// ServeAttachment 读取上传目录中的单个附件，不提供目录列表
func (h *MeetingHandler) ServeAttachment(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		utils.WriteNotFoundResponse(w, "attachment not found")
		return
	}
	http.ServeFile(w, r, filepath.Join(h.files.Dir(), name))
}

func (h *MeetingHandler) discard(attachments []models.NewAttachment) {
	names := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = a.StoredFilename
	}
	h.files.Remove(names...)
}

// readMeetingRequest 按 Content-Type 解析请求体
func (h *MeetingHandler) readMeetingRequest(r *http.Request) (models.MeetingInput, []models.NewAttachment, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == middleware.ContentTypeMultipart {
		return h.readMultipart(r)
	}

	var req meetingRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		return models.MeetingInput{}, nil, err
	}
	return req.input(), nil, nil
}

// readMultipart 逐个读取表单分段，文件直接写入附件存储；任何一步失败都回收本次已写入的文件
func (h *MeetingHandler) readMultipart(r *http.Request) (in models.MeetingInput, attachments []models.NewAttachment, err error) {
	defer func() {
		if err != nil {
			h.discard(attachments)
			attachments = nil
		}
	}()

	mr, err := r.MultipartReader()
	if err != nil {
		return in, nil, models.NewValidationError("", "invalid multipart body")
	}

	fields := map[string]string{}
	counts := map[string]int{}
	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			return in, attachments, bodyError(perr)
		}

		field := part.FormName()
		if part.FileName() == "" {
			value, rerr := io.ReadAll(io.LimitReader(part, maxFormFieldBytes))
			part.Close()
			if rerr != nil {
				return in, attachments, bodyError(rerr)
			}
			fields[field] = string(value)
			continue
		}

		if _, ok := storage.KindForField(field); !ok {
			part.Close()
			return in, attachments, models.NewValidationError(field, "unexpected file field")
		}
		counts[field]++
		if err := checkUploadCounts(counts); err != nil {
			part.Close()
			return in, attachments, err
		}

		att, serr := h.files.Save(field, part.FileName(), part)
		part.Close()
		if serr != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(serr, &tooLarge) {
				serr = bodyError(serr)
			}
			return in, attachments, serr
		}
		attachments = append(attachments, att)
	}

	in, err = formInput(fields)
	return in, attachments, err
}

func checkUploadCounts(counts map[string]int) error {
	if counts[storage.FieldImages] > storage.MaxImages {
		return models.NewValidationError(storage.FieldImages, fmt.Sprintf("at most %d images", storage.MaxImages))
	}
	if counts[storage.FieldFiles] > storage.MaxFiles {
		return models.NewValidationError(storage.FieldFiles, fmt.Sprintf("at most %d files", storage.MaxFiles))
	}
	if counts[storage.FieldImages]+counts[storage.FieldFiles] > storage.MaxFilesPerRequest {
		return models.NewValidationError("", fmt.Sprintf("at most %d uploads per request", storage.MaxFilesPerRequest))
	}
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return models.NewValidationError("", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return models.NewValidationError("", "invalid multipart body: "+err.Error())
}

// formInput 把 multipart 文本字段转换为聚会请求
func formInput(fields map[string]string) (models.MeetingInput, error) {
	in := models.MeetingInput{
		Project:     fields["project"],
		UnitType:    models.UnitType(firstNonEmpty(fields["unit_type"], fields["community_type"])),
		MeetingDate: fields["meeting_date"],
		MeetingTime: fields["meeting_time"],
		Location:    fields["location"],
		Notes:       fields["notes"],
	}

	if raw := strings.TrimSpace(fields["participants_count"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return in, models.NewValidationError("participants_count", "must be an integer")
		}
		in.ParticipantsCount = n
	}
	if raw := strings.TrimSpace(fields["unit_id"]); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return in, models.NewValidationError("unit_id", "must be an integer")
		}
		in.UnitID = &id
	}
	return in, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// meetingRequest JSON 请求体；participants_count 兼容数字与数字字符串
type meetingRequest struct {
	UnitID            *int64    `json:"unit_id"`
	Project           string    `json:"project"`
	UnitType          string    `json:"unit_type"`
	CommunityType     string    `json:"community_type"`
	MeetingDate       string    `json:"meeting_date"`
	MeetingTime       string    `json:"meeting_time"`
	Location          string    `json:"location"`
	ParticipantsCount flexCount `json:"participants_count"`
	Notes             string    `json:"notes"`
}

func (req meetingRequest) input() models.MeetingInput {
	return models.MeetingInput{
		UnitID:            req.UnitID,
		Project:           req.Project,
		UnitType:          models.UnitType(firstNonEmpty(req.UnitType, req.CommunityType)),
		MeetingDate:       req.MeetingDate,
		MeetingTime:       req.MeetingTime,
		Location:          req.Location,
		ParticipantsCount: int(req.ParticipantsCount),
		Notes:             req.Notes,
	}
}

type flexCount int

func (c *flexCount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return models.NewValidationError("participants_count", "must be an integer")
	}
	*c = flexCount(n)
	return nil
}

// writeExport 写出导出文件
func writeExport(w http.ResponseWriter, logger *zap.Logger, table export.Table, format export.Format, base string) {
	filename := format.Filename(base, time.Now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if err := table.Write(w, format); err != nil {
		logger.Error("export failed", zap.String("file", filename), zap.Error(err))
	}
}
