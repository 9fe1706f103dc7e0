package database

import (
	"context"
	"fmt"
	"strings"

	"community-meetings-backend/pkg/models"
)

// Statistics 按分组统计聚会次数与参与人数。
// 数据库只做 COUNT 与 SUM，平均值在这里计算，保证两种数据库结果一致。
func (s *SQLDatabase) Statistics(ctx context.Context, filter models.StatisticsFilter) ([]models.StatisticsRow, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	e := s.meetingExprs()
	var p predicate
	if filter.HasRange() {
		p.add("m.meeting_date >= ?", filter.StartDate)
		p.add("m.meeting_date <= ?", filter.EndDate)
	}

	projectKey, unitKey := "''", "''"
	var terms []string
	if filter.GroupBy != models.GroupByUnit {
		projectKey = e.project
		if !e.projectConst {
			terms = append(terms, e.project)
		}
	}
	if filter.GroupBy != models.GroupByProject {
		unitKey = e.unitType
		terms = append(terms, e.unitType)
	}

	// 分组键全为常量时整体聚合为一行，HAVING 保证没有聚会时不返回空组
	tail := "HAVING COUNT(m.id) > 0"
	if len(terms) > 0 {
		group := strings.Join(terms, ", ")
		tail = "GROUP BY " + group + " ORDER BY " + group
	}

	query := fmt.Sprintf(`SELECT %s, %s, COUNT(m.id), COALESCE(SUM(m.participants_count), 0)
		FROM %s%s
		%s`, projectKey, unitKey, e.from, p.where(), tail)

	rows, err := s.query(ctx, s.db, query, p.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	result := []models.StatisticsRow{}
	for rows.Next() {
		var row models.StatisticsRow
		var unitType string
		if err := rows.Scan(&row.Project, &unitType, &row.MeetingCount, &row.TotalParticipants); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		if filter.GroupBy != models.GroupByProject {
			t := models.UnitType(unitType)
			row.UnitType = &t
			row.UnitLabel = unitType
		}
		row.AvgParticipants = models.AverageParticipants(row.TotalParticipants, row.MeetingCount)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statistics: %w", err)
	}
	return result, nil
}
