package services

import (
	"encoding/json"

	"wall-system/models"
)

// EventType 推送事件类型
type EventType string

const (
	EventChatMessage     EventType = "chat_message"
	EventTypingIndicator EventType = "typing_indicator"
	EventCrushUpdate     EventType = "crush_update"
	EventMutualMatch     EventType = "mutual_match"
	EventSystemMessage   EventType = "system_message"
)

// Envelope 推送给客户端的统一信封 {type, payload}
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func marshalEnvelope(t EventType, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// ChatMessagePayload 聊天消息推送
type ChatMessagePayload struct {
	WallID  string         `json:"wall_id"`
	Message models.Message `json:"message"`
}

// TypingPayload 正在输入提示，只推不落库
type TypingPayload struct {
	WallID         string `json:"wall_id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// CrushUpdatePayload 被暗恋计数变化，只给目标本人推，不带来源。
// MatchBroken 为 true 时表示一段匹配被拆散，客户端据此清掉聊天界面的临时状态
// （历史消息仍在库里，不删）
type CrushUpdatePayload struct {
	WallID         string `json:"wall_id"`
	AdmirerCount   int    `json:"admirer_count"`
	MatchBroken    bool   `json:"match_broken,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// MutualMatchPayload 匹配成功，给双方各推一份，PeerID 是对方
type MutualMatchPayload struct {
	WallID         string `json:"wall_id"`
	MatchID        string `json:"match_id"`
	ConversationID string `json:"conversation_id"`
	PeerID         string `json:"peer_id"`
}

// SystemMessagePayload 系统消息推送（状态变更留痕等）
type SystemMessagePayload struct {
	WallID  string         `json:"wall_id"`
	Message models.Message `json:"message"`
}
