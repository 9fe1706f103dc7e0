package models

import (
	"strings"
	"time"
)

// UnitType 单位类型
type UnitType string

const (
	UnitTypeGroup     UnitType = "group"
	UnitTypePai       UnitType = "pai"
	UnitTypeCommunity UnitType = "community"
	UnitTypeRegion    UnitType = "region"
	UnitTypeChurch    UnitType = "church"
)

// UnitTypes 全部合法的单位类型，按展示顺序
var UnitTypes = []UnitType{
	UnitTypeGroup,
	UnitTypePai,
	UnitTypeCommunity,
	UnitTypeRegion,
	UnitTypeChurch,
}

// Valid 是否为合法枚举值
func (t UnitType) Valid() bool {
	for _, v := range UnitTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Label 单位类型的中文名称
func (t UnitType) Label() string {
	switch t {
	case UnitTypeGroup:
		return "小组"
	case UnitTypePai:
		return "排"
	case UnitTypeCommunity:
		return "社区"
	case UnitTypeRegion:
		return "区域"
	case UnitTypeChurch:
		return "教会"
	default:
		return string(t)
	}
}

func joinUnitTypes() string {
	parts := make([]string, len(UnitTypes))
	for i, t := range UnitTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// Unit 单位
type Unit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      UnitType  `json:"type"`
	Project   string    `json:"project"`
	CreatedAt time.Time `json:"created_at"`

	// LegacyRegion 旧库中的 district 字段，只读保留
	LegacyRegion *string `json:"legacy_region,omitempty"`
}

// UnitInput 创建/更新单位请求
type UnitInput struct {
	Name    string   `json:"name" validate:"required"`
	Type    UnitType `json:"type" validate:"required,unittype"`
	Project string   `json:"project" validate:"required"`
}

// Normalize 去除首尾空白，空白字段视为缺失
func (in *UnitInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = UnitType(strings.TrimSpace(string(in.Type)))
	in.Project = strings.TrimSpace(in.Project)
}

// Validate 校验单位请求
func (in *UnitInput) Validate() error {
	in.Normalize()
	return ValidateStruct(in)
}
