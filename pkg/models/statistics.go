package models

import (
	"strings"
)

// GroupBy 统计分组方式
type GroupBy string

const (
	GroupByProject        GroupBy = "by_project"
	GroupByUnit           GroupBy = "by_unit"
	GroupByProjectAndUnit GroupBy = "by_project_and_unit"
)

// ParseGroupBy 解析分组参数，空值取 by_unit；兼容 project / unit / project_unit 简写
func ParseGroupBy(s string) (GroupBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unit", string(GroupByUnit):
		return GroupByUnit, nil
	case "project", string(GroupByProject):
		return GroupByProject, nil
	case "project_unit", string(GroupByProjectAndUnit):
		return GroupByProjectAndUnit, nil
	default:
		return "", NewValidationError("group_by", "must be one of by_project, by_unit, by_project_and_unit")
	}
}

// StatisticsFilter 统计条件；日期区间仅在起止都给出时生效
type StatisticsFilter struct {
	StartDate string
	EndDate   string
	GroupBy   GroupBy
}

// HasRange 起止日期是否都已给出
func (f StatisticsFilter) HasRange() bool {
	return f.StartDate != "" && f.EndDate != ""
}

// Validate 校验统计条件
func (f *StatisticsFilter) Validate() error {
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	if f.StartDate != "" && !IsDate(f.StartDate) {
		return NewValidationError("start_date", "must be a date in YYYY-MM-DD format")
	}
	if f.EndDate != "" && !IsDate(f.EndDate) {
		return NewValidationError("end_date", "must be a date in YYYY-MM-DD format")
	}
	if f.GroupBy == "" {
		f.GroupBy = GroupByUnit
	}
	return nil
}

// StatisticsRow 一个分组的聚合结果
type StatisticsRow struct {
	Project           string    `json:"project"`
	UnitLabel         string    `json:"unit_label"`
	UnitType          *UnitType `json:"unit_type"`
	MeetingCount      int64     `json:"meeting_count"`
	TotalParticipants int64     `json:"total_participants"`
	AvgParticipants   float64   `json:"avg_participants"`
}

// AverageParticipants total/count，不做舍入；count 为 0 时返回 0
func AverageParticipants(total, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}
