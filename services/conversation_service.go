package services

import (
	"errors"
	"fmt"
	"time"

	"wall-system/config"
	"wall-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemSender 系统消息的发送者标识
const SystemSender = "system"

// MatchedSystemMessage 匹配成功后会话里的第一条系统消息
const MatchedSystemMessage = "You both have crushes on each other!"

// StatusJustMatched 会话创建时的默认关系状态
const StatusJustMatched = "just matched"

// RelationshipStatuses 关系状态的固定词表，按阶段排列
var RelationshipStatuses = []string{
	StatusJustMatched,
	"chatting",
	"dating",
	"exclusive",
	"complicated",
	"ended",
}

func validStatus(status string) bool {
	for _, s := range RelationshipStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ConversationID 会话主键："<wall_id>-<match_id>"，同一对人在不同墙上是不同会话
func ConversationID(wallID, userA, userB string) string {
	return fmt.Sprintf("%s-%s", wallID, MatchID(userA, userB))
}

// GetOrCreateConversation 幂等创建会话。
// 两个客户端同时打开聊天也只会建出一条：后写的会撞主键，按已存在处理，
// 初始系统消息只有赢了创建竞争的那次会插入
func GetOrCreateConversation(wallID, userA, userB string) (*models.Conversation, error) {
	a, b := userA, userB
	if a > b {
		a, b = b, a
	}
	conversationID := ConversationID(wallID, a, b)

	var conv models.Conversation
	if err := config.DB.Where("conversation_id = ?", conversationID).First(&conv).Error; err == nil {
		return &conv, nil
	}

	conv = models.Conversation{
		ConversationID:  conversationID,
		WallID:          wallID,
		MatchID:         MatchID(a, b),
		ParticipantA:    a,
		ParticipantB:    b,
		Status:          StatusJustMatched,
		StatusUpdatedAt: time.Now(),
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		msg := models.Message{
			MessageID:      uuid.New().String(),
			ConversationID: conversationID,
			SenderID:       SystemSender,
			Content:        MatchedSystemMessage,
			IsSystem:       true,
			CreatedAt:      time.Now(),
		}
		return tx.Create(&msg).Error
	})
	if err != nil {
		// 撞主键说明对方先建好了，直接取现成的
		var existing models.Conversation
		if err2 := config.DB.Where("conversation_id = ?", conversationID).First(&existing).Error; err2 == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetConversation 按 ID 取会话
func GetConversation(conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := config.DB.Where("conversation_id = ?", conversationID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// FindConversationByMatch 按墙 + 匹配 ID 找会话，拆散匹配时用来定位要通知的会话
func FindConversationByMatch(wallID, matchID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := config.DB.Where("wall_id = ? AND match_id = ?", wallID, matchID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// ListConversations 取用户参与的所有会话
func ListConversations(userID string) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := config.DB.
		Preload("ParticipantAUser").
		Preload("ParticipantBUser").
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Find(&conversations).Error
	return conversations, err
}

// AppendMessage 往会话追加消息。
// 发送者不是会话双方时返回 ErrNotAParticipant（系统消息除外）；
// messageID 可由客户端预生成用于占位对账，传空串则服务端生成；
// 同一个 messageID 重复追加直接返回已落库的那条，推送通道和兜底通道各发一次也不会写两条
func AppendMessage(conversationID, senderID, content string, isSystem bool, messageID string) (*models.Message, error) {
	conv, err := GetConversation(conversationID)
	if err != nil {
		return nil, err
	}
	if !isSystem && senderID != conv.ParticipantA && senderID != conv.ParticipantB {
		return nil, ErrNotAParticipant
	}

	convLocks.Lock(conversationID)
	defer convLocks.Unlock(conversationID)

	if messageID == "" {
		messageID = uuid.New().String()
	} else {
		var existing models.Message
		if err := config.DB.Where("message_id = ?", messageID).First(&existing).Error; err == nil {
			return &existing, nil
		}
	}

	msg := models.Message{
		MessageID:      messageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		IsSystem:       isSystem,
		CreatedAt:      time.Now(),
	}
	if isSystem {
		msg.SenderID = SystemSender
	}
	if err := config.DB.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages 按落库顺序取会话的所有消息，时间相同按插入顺序
func ListMessages(conversationID string) ([]models.Message, error) {
	if _, err := GetConversation(conversationID); err != nil {
		return nil, err
	}
	var messages []models.Message
	err := config.DB.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// UpdateRelationshipStatus 更新关系状态，并追加一条系统消息留痕
func UpdateRelationshipStatus(conversationID, userID, newStatus string) (*models.Conversation, *models.Message, error) {
	if !validStatus(newStatus) {
		return nil, nil, ErrInvalidStatus
	}
	conv, err := GetConversation(conversationID)
	if err != nil {
		return nil, nil, err
	}
	if userID != conv.ParticipantA && userID != conv.ParticipantB {
		return nil, nil, ErrNotAParticipant
	}

	now := time.Now()
	err = config.DB.Model(&models.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]interface{}{"status": newStatus, "status_updated_at": now}).Error
	if err != nil {
		return nil, nil, err
	}
	conv.Status = newStatus
	conv.StatusUpdatedAt = now

	sysMsg, err := AppendMessage(conversationID, SystemSender,
		fmt.Sprintf("Relationship status changed to %q", newStatus), true, "")
	if err != nil {
		return nil, nil, err
	}
	return conv, sysMsg, nil
}
