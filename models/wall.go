package models

import "time"

// Wall 表白墙模型
type Wall struct {
	WallID      string    `gorm:"primaryKey;type:varchar(36)" json:"wall_id"`
	Name        string    `gorm:"type:varchar(64);not null" json:"name"`
	Password    string    `gorm:"not null" json:"-"` // 加入口令，bcrypt 加密存储
	OwnerID     string    `gorm:"type:varchar(36)" json:"owner_id"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
