package models

import "time"

// WallMember 墙成员模型。
// AdmirerCount 是当前暗恋该成员的人数，只给本人看数字，永远不暴露来源
type WallMember struct {
	WallID       string    `gorm:"primaryKey;type:varchar(36)" json:"wall_id"`
	UserID       string    `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	AdmirerCount int       `gorm:"not null;default:0" json:"admirer_count"`
	JoinedAt     time.Time `gorm:"autoCreateTime" json:"joined_at"` // 加入墙的时间
}
