package models

import "time"

// Message 会话消息，落库后不可变。
// 排序按 CreatedAt，相同时间戳按自增 ID（即插入顺序）
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"seq"`
	MessageID      string    `gorm:"type:varchar(36);uniqueIndex" json:"message_id"`
	ConversationID string    `gorm:"type:varchar(120);index" json:"conversation_id"`
	SenderID       string    `gorm:"type:varchar(36)" json:"sender_id"` // 系统消息固定为 "system"
	Content        string    `gorm:"type:text" json:"content"`
	IsSystem       bool      `gorm:"not null;default:false" json:"is_system"`
	CreatedAt      time.Time `json:"created_at"`
}
