package models

import "time"

// Confession 匿名表白/吐槽。AuthorID 只落库，接口永远不返回
type Confession struct {
	ConfessionID string    `gorm:"primaryKey;type:varchar(36)" json:"confession_id"`
	WallID       string    `gorm:"type:varchar(36);index;not null" json:"wall_id"`
	AuthorID     string    `gorm:"type:varchar(36);not null" json:"-"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}
