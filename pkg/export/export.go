package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"community-meetings-backend/pkg/models"
)

// Format 导出格式
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat 解析导出格式，空值默认为 xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", models.NewValidationError("format", "must be xlsx or csv")
}

// ContentType 响应的 Content-Type
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename 带日期的下载文件名
func (f Format) Filename(base string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, now.Format("20060102"), f)
}

// Table 一张待导出的表
type Table struct {
	Sheet   string
	Headers []string
	Widths  []float64
	Rows    [][]interface{}
}

// StatisticsTable 统计结果表，列随分组方式变化
func StatisticsTable(rows []models.StatisticsRow, groupBy models.GroupBy) Table {
	t := Table{Sheet: "统计"}
	withProject := groupBy != models.GroupByUnit
	withUnit := groupBy != models.GroupByProject
	if withProject {
		t.Headers = append(t.Headers, "项目")
		t.Widths = append(t.Widths, 12)
	}
	if withUnit {
		t.Headers = append(t.Headers, "单位类型")
		t.Widths = append(t.Widths, 14)
	}
	t.Headers = append(t.Headers, "聚会次数", "总人数", "平均人数")
	t.Widths = append(t.Widths, 12, 12, 12)

	for _, r := range rows {
		var row []interface{}
		if withProject {
			row = append(row, r.Project)
		}
		if withUnit {
			label := r.UnitLabel
			if r.UnitType != nil {
				label = r.UnitType.Label()
			}
			row = append(row, label)
		}
		row = append(row, r.MeetingCount, r.TotalParticipants, r.AvgParticipants)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// MeetingsTable 聚会记录明细表
func MeetingsTable(meetings []models.Meeting) Table {
	t := Table{
		Sheet:   "聚会记录",
		Headers: []string{"ID", "项目", "单位类型", "聚会日期", "聚会时间", "地点", "参与人数", "备注", "创建人", "创建时间"},
		Widths:  []float64{8, 10, 12, 14, 10, 24, 10, 40, 14, 20},
	}
	for _, m := range meetings {
		t.Rows = append(t.Rows, []interface{}{
			m.ID,
			m.Project,
			m.UnitType.Label(),
			m.MeetingDate,
			m.MeetingTime,
			m.Location,
			m.ParticipantsCount,
			m.Notes,
			m.CreatedByName,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return t
}

// Write 按格式写出
func (t Table) Write(w io.Writer, f Format) error {
	if f == FormatCSV {
		return t.WriteCSV(w)
	}
	data, err := t.XLSX()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteCSV 写出 CSV，带 UTF-8 BOM 以便 Excel 正确识别中文
func (t Table) WriteCSV(w io.Writer) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record[:len(row)]); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// XLSX 生成 Excel 文件内容
func (t Table) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("failed to rename sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if len(t.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, w := range t.Widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &t.Rows[i]); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
