package database

import (
	"fmt"
	"strings"

	"community-meetings-backend/pkg/models"
	"community-meetings-backend/pkg/schema"
)

// predicate 以 AND 连接的查询条件，数据查询与计数查询共用
type predicate struct {
	clauses []string
	args    []interface{}
}

func (p *predicate) add(clause string, args ...interface{}) {
	p.clauses = append(p.clauses, clause)
	p.args = append(p.args, args...)
}

func (p predicate) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// meetingExprs 聚会表中 project / 单位类型的取值表达式，随结构形态变化
type meetingExprs struct {
	from     string
	project  string
	unitType string
	unitID   string
	unitName string

	// projectConst 旧单位表没有 project 列时 project 为常量，不能出现在 GROUP BY 中
	projectConst bool
}

func (s *SQLDatabase) meetingExprs() meetingExprs {
	if !s.layout.Referential() {
		return meetingExprs{
			from:     schema.TableMeetings + " m",
			project:  "m.project",
			unitType: "m.community_type",
			unitID:   "NULL",
			unitName: "''",
		}
	}

	project, projectConst := "'1'", true
	if s.layout.UnitsHaveProject {
		project, projectConst = "COALESCE(NULLIF(c.project, ''), '1')", false
	}
	return meetingExprs{
		from:         fmt.Sprintf("%s m LEFT JOIN %s c ON m.community_id = c.id", schema.TableMeetings, schema.TableUnits),
		project:      project,
		unitType:     "COALESCE(NULLIF(c.type, ''), 'group')",
		unitID:       "m.community_id",
		unitName:     "COALESCE(c.name, '')",
		projectConst: projectConst,
	}
}

// meetingPredicate 构造列表过滤条件：项目、类型精确匹配，日期闭区间，地点子串（不区分大小写）
func (s *SQLDatabase) meetingPredicate(f models.MeetingFilter) predicate {
	e := s.meetingExprs()
	var p predicate
	if f.Project != "" {
		p.add(e.project+" = ?", f.Project)
	}
	if f.UnitType != "" {
		p.add(e.unitType+" = ?", string(f.UnitType))
	}
	if f.StartDate != "" {
		p.add("m.meeting_date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		p.add("m.meeting_date <= ?", f.EndDate)
	}
	if f.Location != "" {
		p.add(`LOWER(m.location) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Location))+"%")
	}
	return p
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike 转义 LIKE 通配符，地点过滤按字面子串匹配
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *SQLDatabase) meetingSelect() string {
	e := s.meetingExprs()
	return fmt.Sprintf(`SELECT m.id, %s, %s, %s, %s,
		CAST(m.meeting_date AS TEXT), COALESCE(m.meeting_time, ''), COALESCE(m.location, ''),
		COALESCE(m.participants_count, 0), COALESCE(m.notes, ''),
		m.created_by, COALESCE(a.name, ''), m.created_at, m.updated_at
	FROM %s
	LEFT JOIN admins a ON m.created_by = a.id`,
		e.unitID, e.unitName, e.project, e.unitType, e.from)
}

const meetingOrder = " ORDER BY m.meeting_date DESC, m.meeting_time DESC, m.id DESC"
