package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ProjectExtra 索引中的附加字段，以 JSON 存储
type ProjectExtra map[string]any

// Scan 实现 sql.Scanner 接口
func (e *ProjectExtra) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*e = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*e = nil
		return nil
	}
	return json.Unmarshal(bytes, e)
}

// Value 实现 driver.Valuer 接口
func (e ProjectExtra) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Project 项目索引记录
type Project struct {
	ID                string       `json:"id" gorm:"primaryKey;size:64"`
	Path              string       `json:"path" gorm:"size:512;not null"`
	Title             string       `json:"title,omitempty" gorm:"size:200"`
	HasNativeTimeline bool         `json:"hasNativeTimeline" gorm:"default:false"`
	HasSceneScript    bool         `json:"hasSceneScript" gorm:"default:false"`
	Position          int          `json:"position" gorm:"index;default:0"` // 索引顺序，第一个作为兜底项目
	Extra             ProjectExtra `json:"extra,omitempty" gorm:"type:json"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// Namespace 媒体路径前缀，默认取项目ID
func (p *Project) Namespace() string {
	if p == nil {
		return ""
	}
	if ns, ok := p.Extra["namespace"].(string); ok && ns != "" {
		return ns
	}
	return p.ID
}
