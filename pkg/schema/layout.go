package schema

import (
	"context"
	"fmt"
)

// 物理表名；沿用旧库命名以保证旧数据可读
const (
	TableAdmins       = "admins"
	TableUnits        = "communities"
	TableMeetings     = "meetings"
	TableMeetingFiles = "meeting_files"
)

// MeetingShape 聚会表的结构形态
type MeetingShape int

const (
	// Denormalized 聚会行直接保存 project + community_type
	Denormalized MeetingShape = iota
	// Referential 聚会行通过 community_id 引用单位
	Referential
)

func (s MeetingShape) String() string {
	if s == Referential {
		return "referential"
	}
	return "denormalized"
}

// Layout 启动时解析的表结构，之后只读
type Layout struct {
	Dialect  Dialect      `json:"dialect"`
	Meetings MeetingShape `json:"-"`

	UnitsHaveProject      bool `json:"units_have_project"`
	UnitsHaveLegacyRegion bool `json:"units_have_legacy_region"`
}

// DefaultLayout 全新安装后的结构
func DefaultLayout(d Dialect) Layout {
	return Layout{Dialect: d, Meetings: Denormalized, UnitsHaveProject: true}
}

// Referential 是否为引用式聚会结构
func (l Layout) Referential() bool {
	return l.Meetings == Referential
}

// Describe 用于健康检查输出
func (l Layout) Describe() map[string]interface{} {
	return map[string]interface{}{
		"dialect":                  string(l.Dialect),
		"meetings":                 l.Meetings.String(),
		"units_have_project":       l.UnitsHaveProject,
		"units_have_legacy_region": l.UnitsHaveLegacyRegion,
	}
}

// ResolveLayout 根据实际列判断当前结构
func ResolveLayout(ctx context.Context, q Querier, d Dialect) (Layout, error) {
	layout := Layout{Dialect: d}

	units, err := Columns(ctx, q, d, TableUnits)
	if err != nil {
		return layout, fmt.Errorf("resolve layout: %w", err)
	}
	layout.UnitsHaveProject = units.Has("project")
	layout.UnitsHaveLegacyRegion = units.Has("district")

	meetings, err := Columns(ctx, q, d, TableMeetings)
	if err != nil {
		return layout, fmt.Errorf("resolve layout: %w", err)
	}
	switch {
	case meetings.Has("project") && meetings.Has("community_type"):
		layout.Meetings = Denormalized
	case meetings.Has("community_id"):
		layout.Meetings = Referential
	default:
		layout.Meetings = Denormalized
	}
	return layout, nil
}
