package models

import "time"

// Conversation 私聊会话，互相暗恋成功后创建，一对匹配一面墙只有一条。
// 主键为 "<wall_id>-<match_id>"，重复创建会撞主键，按已存在处理
type Conversation struct {
	ConversationID  string    `gorm:"primaryKey;type:varchar(120)" json:"conversation_id"`
	WallID          string    `gorm:"type:varchar(36);index" json:"wall_id"`
	MatchID         string    `gorm:"type:varchar(80);index" json:"match_id"`
	ParticipantA    string    `gorm:"type:varchar(36);index" json:"participant_a"` // 两人中 ID 较小者
	ParticipantB    string    `gorm:"type:varchar(36);index" json:"participant_b"`
	Status          string    `gorm:"type:varchar(20)" json:"status"` // 关系状态
	StatusUpdatedAt time.Time `json:"status_updated_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	// 关联用户A和用户B
	ParticipantAUser User `gorm:"foreignKey:ParticipantA;references:ID" json:"participant_a_user"`
	ParticipantBUser User `gorm:"foreignKey:ParticipantB;references:ID" json:"participant_b_user"`
}
