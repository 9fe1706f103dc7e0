package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"community-meetings-backend/pkg/models"
)

// 上传字段与数量限制
const (
	FieldImages = "images"
	FieldFiles  = "files"

	MaxImages          = 5
	MaxFiles           = 10
	MaxFilesPerRequest = MaxImages + MaxFiles

	DefaultMaxFileBytes int64 = 10 * 1024 * 1024
)

const tempPrefix = ".upload-"

// AllowedTypes 允许上传的 MIME 类型（按文件内容识别，不信任客户端声明）
var AllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// FileStore 附件文件存储，文件平铺在上传目录下
type FileStore struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewFileStore 创建附件存储，目录不存在时自动创建
func NewFileStore(dir string, maxBytes int64, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FileStore{dir: dir, maxBytes: maxBytes, logger: logger.Named("storage")}, nil
}

// Dir 上传目录
func (s *FileStore) Dir() string { return s.dir }

// MaxBytes 单个文件大小上限
func (s *FileStore) MaxBytes() int64 { return s.maxBytes }

// KindForField 上传字段对应的附件类别
func KindForField(field string) (models.AttachmentKind, bool) {
	switch field {
	case FieldImages:
		return models.AttachmentImage, true
	case FieldFiles:
		return models.AttachmentFile, true
	}
	return "", false
}

// Save 写入一个上传文件，返回待入库的附件元数据。
// 文件名为 <field>-<uuid><ext>；类型不在白名单或超过大小上限时返回 ValidationError 且不留下文件。
func (s *FileStore) Save(field, originalName string, r io.Reader) (models.NewAttachment, error) {
	kind, ok := KindForField(field)
	if !ok {
		return models.NewAttachment{}, models.NewValidationError(field, "unknown upload field")
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return models.NewAttachment{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpPath)
		}
	}()

	size, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return models.NewAttachment{}, fmt.Errorf("failed to write upload: %w", err)
	}
	if closeErr != nil {
		return models.NewAttachment{}, fmt.Errorf("failed to write upload: %w", closeErr)
	}
	if size > s.maxBytes {
		return models.NewAttachment{}, models.NewValidationError(field,
			fmt.Sprintf("%s exceeds the %d byte limit", originalName, s.maxBytes))
	}

	mt, err := mimetype.DetectFile(tmpPath)
	if err != nil {
		return models.NewAttachment{}, fmt.Errorf("failed to detect file type: %w", err)
	}
	match := allowed(mt)
	if match == nil {
		return models.NewAttachment{}, models.NewValidationError(field,
			fmt.Sprintf("unsupported file type %s", mt.String()))
	}

	// 扩展名只取自检测结果，客户端文件名只保留为 original_name
	ext := mt.Extension()
	if ext == "" {
		ext = match.Extension()
	}
	name := field + "-" + uuid.NewString() + ext
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return models.NewAttachment{}, fmt.Errorf("failed to store upload: %w", err)
	}
	keep = true

	s.logger.Debug("stored upload",
		zap.String("filename", name),
		zap.String("mime", mt.String()),
		zap.Int64("size", size))

	return models.NewAttachment{
		StoredFilename: name,
		Kind:           kind,
		OriginalName:   originalName,
		SizeBytes:      size,
	}, nil
}

// allowed 沿 MIME 继承链查找白名单，返回命中的类型；未命中返回 nil
func allowed(mt *mimetype.MIME) *mimetype.MIME {
	for m := mt; m != nil; m = m.Parent() {
		if mimetype.EqualsAny(m.String(), AllowedTypes...) {
			return m
		}
	}
	return nil
}

// Remove 删除已存储的文件（同一请求后续文件校验失败时回收）
func (s *FileStore) Remove(names ...string) {
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dir, filepath.Base(name))); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove upload", zap.String("filename", name), zap.Error(err))
		}
	}
}

// List 返回上传目录中的全部文件名（按名称排序，不含临时文件）
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
