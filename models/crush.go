package models

import "time"

// CrushEdge 单向暗恋关系：wall 内 source 指向 target。
// 约束：uniqueIndex:uidx_wall_source 保证同一面墙上每人最多一条边；
// 换目标是覆盖这条边并重置 SetAt，不是新增
type CrushEdge struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	WallID   string    `gorm:"type:varchar(36);not null;uniqueIndex:uidx_wall_source" json:"wall_id"`
	SourceID string    `gorm:"type:varchar(36);not null;uniqueIndex:uidx_wall_source" json:"source_id"`
	TargetID string    `gorm:"type:varchar(36);not null;index" json:"target_id"`
	SetAt    time.Time `gorm:"not null" json:"set_at"` // 撤回锁定从这里起算
}
