package services

import (
	"encoding/json"
	"fmt"
	"log"

	"wall-system/models"
)

// Event 路由器的入站事件，封闭的变体集合。
// 新增事件类型必须同时补上 Route 里的分支，漏了会走到 default 报错
type Event interface {
	eventType() EventType
}

// ChatMessageEvent 聊天消息：先落库再推送
type ChatMessageEvent struct {
	WallID         string
	ConversationID string
	SenderID       string
	Content        string
	MessageID      string // 客户端预生成的 ID，空串则服务端生成
	IsSystem       bool
}

func (ChatMessageEvent) eventType() EventType { return EventChatMessage }

// TypingEvent 正在输入提示：只推，不落库
type TypingEvent struct {
	WallID         string
	ConversationID string
	UserID         string
}

func (TypingEvent) eventType() EventType { return EventTypingIndicator }

// CrushChangedEvent 被暗恋计数变化：只推给目标本人
type CrushChangedEvent struct {
	WallID       string
	TargetID     string
	AdmirerCount int
}

func (CrushChangedEvent) eventType() EventType { return EventCrushUpdate }

// MatchFoundEvent 匹配成功：推给双方
type MatchFoundEvent struct {
	WallID         string
	Match          Match
	ConversationID string
}

func (MatchFoundEvent) eventType() EventType { return EventMutualMatch }

// MatchBrokenEvent 匹配被拆散：通知前任双方清掉聊天界面的临时状态
type MatchBrokenEvent struct {
	WallID         string
	ConversationID string
	UserA          string
	UserB          string
}

func (MatchBrokenEvent) eventType() EventType { return EventCrushUpdate }

// Route 处理一个入站事件：该落库的先落库，再通过注册表推给相关在线成员。
// 推送是尽力而为，没人在线就丢弃，不排队
func Route(ev Event) error {
	switch e := ev.(type) {
	case ChatMessageEvent:
		_, err := RouteChatMessage(e)
		return err
	case TypingEvent:
		return routeTyping(e)
	case CrushChangedEvent:
		return routeCrushChanged(e)
	case MatchFoundEvent:
		return routeMatchFound(e)
	case MatchBrokenEvent:
		return routeMatchBroken(e)
	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}
}

// RouteChatMessage 落库 + 推送，返回落库后的消息（兜底接口要回给调用方做对账）。
// 非系统消息不回显给发送者；系统消息双方都推
func RouteChatMessage(e ChatMessageEvent) (*models.Message, error) {
	msg, err := AppendMessage(e.ConversationID, e.SenderID, e.Content, e.IsSystem, e.MessageID)
	if err != nil {
		return nil, err
	}
	conv, err := GetConversation(e.ConversationID)
	if err != nil {
		return nil, err
	}

	var data []byte
	if msg.IsSystem {
		data, err = marshalEnvelope(EventSystemMessage, SystemMessagePayload{WallID: e.WallID, Message: *msg})
	} else {
		data, err = marshalEnvelope(EventChatMessage, ChatMessagePayload{WallID: e.WallID, Message: *msg})
	}
	if err != nil {
		return msg, err
	}

	for _, uid := range []string{conv.ParticipantA, conv.ParticipantB} {
		if !msg.IsSystem && uid == msg.SenderID {
			continue
		}
		Manager.Push(e.WallID, uid, data)
	}
	return msg, nil
}

func routeTyping(e TypingEvent) error {
	conv, err := GetConversation(e.ConversationID)
	if err != nil {
		return err
	}
	if e.UserID != conv.ParticipantA && e.UserID != conv.ParticipantB {
		return ErrNotAParticipant
	}
	data, err := marshalEnvelope(EventTypingIndicator, TypingPayload{
		WallID:         e.WallID,
		ConversationID: e.ConversationID,
		UserID:         e.UserID,
	})
	if err != nil {
		return err
	}
	for _, uid := range []string{conv.ParticipantA, conv.ParticipantB} {
		if uid == e.UserID {
			continue
		}
		Manager.Push(e.WallID, uid, data)
	}
	return nil
}

func routeCrushChanged(e CrushChangedEvent) error {
	data, err := marshalEnvelope(EventCrushUpdate, CrushUpdatePayload{
		WallID:       e.WallID,
		AdmirerCount: e.AdmirerCount,
	})
	if err != nil {
		return err
	}
	Manager.Push(e.WallID, e.TargetID, data)
	return nil
}

func routeMatchFound(e MatchFoundEvent) error {
	pairs := []struct{ to, peer string }{
		{e.Match.UserA, e.Match.UserB},
		{e.Match.UserB, e.Match.UserA},
	}
	for _, p := range pairs {
		data, err := marshalEnvelope(EventMutualMatch, MutualMatchPayload{
			WallID:         e.WallID,
			MatchID:        e.Match.MatchID,
			ConversationID: e.ConversationID,
			PeerID:         p.peer,
		})
		if err != nil {
			return err
		}
		Manager.Push(e.WallID, p.to, data)
	}
	return nil
}

func routeMatchBroken(e MatchBrokenEvent) error {
	for _, uid := range []string{e.UserA, e.UserB} {
		cnt, _ := AdmirerCount(e.WallID, uid)
		data, err := marshalEnvelope(EventCrushUpdate, CrushUpdatePayload{
			WallID:         e.WallID,
			AdmirerCount:   cnt,
			MatchBroken:    true,
			ConversationID: e.ConversationID,
		})
		if err != nil {
			return err
		}
		Manager.Push(e.WallID, uid, data)
	}
	return nil
}

// 客户端通过推送通道发上来的入站消息

type inboundChat struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	MessageID      string `json:"message_id"`
}

type inboundTyping struct {
	ConversationID string `json:"conversation_id"`
}

// ReadPump 读取连接上的入站消息并路由，连接出错后注销退出。
// 单条消息处理失败只记日志，不影响别的连接
func (c *Client) ReadPump() {
	defer Manager.Unregister(c)
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		if string(raw) == "pong" {
			c.markPong()
			continue
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Println("Invalid message format:", string(raw))
			continue
		}

		switch env.Type {
		case EventChatMessage:
			var in inboundChat
			if err := json.Unmarshal(env.Payload, &in); err != nil {
				log.Println("Invalid chat payload:", err)
				continue
			}
			if err := Route(ChatMessageEvent{
				WallID:         c.WallID,
				ConversationID: in.ConversationID,
				SenderID:       c.UserID,
				Content:        in.Content,
				MessageID:      in.MessageID,
			}); err != nil {
				log.Println("Failed to route chat message:", err)
			}
		case EventTypingIndicator:
			var in inboundTyping
			if err := json.Unmarshal(env.Payload, &in); err != nil {
				log.Println("Invalid typing payload:", err)
				continue
			}
			if err := Route(TypingEvent{
				WallID:         c.WallID,
				ConversationID: in.ConversationID,
				UserID:         c.UserID,
			}); err != nil {
				log.Println("Failed to route typing event:", err)
			}
		default:
			log.Println("Unsupported inbound event type:", env.Type)
		}
	}
}
