package controllers

import (
	"errors"
	"log"
	"net/http"

	"wall-system/models"
	"wall-system/services"
	"wall-system/utils"

	"github.com/gin-gonic/gin"
)

// CreateConversationHandler 创建或获取会话（推送通道不可用时的兜底接口）。
// 只有互相暗恋的两个人才能建会话；已存在的会话直接返回，不会重复创建
func CreateConversationHandler(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}

	var requestData struct {
		WallID string `json:"wall_id" binding:"required"`
		PeerID string `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if requestData.PeerID == userInfo.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot create a conversation with yourself"})
		return
	}

	// 已有会话直接返回（匹配虽然可能已经拆散，历史会话保留）
	matchID := services.MatchID(userInfo.ID, requestData.PeerID)
	if conv, err := services.FindConversationByMatch(requestData.WallID, matchID); err == nil {
		utils.RespondSuccess(c, conv, nil)
		return
	}

	// 没有会话就必须是当前互相暗恋的一对
	matches, err := services.CheckMutual(requestData.WallID, userInfo.ID)
	if err != nil || len(matches) == 0 || matches[0].MatchID != matchID {
		c.JSON(http.StatusForbidden, gin.H{"error": "No mutual crush with this member"})
		return
	}

	conv, err := services.GetOrCreateConversation(requestData.WallID, userInfo.ID, requestData.PeerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		log.Println("Error creating conversation:", err)
		return
	}
	utils.RespondSuccess(c, conv, nil)
}

// GetConversations 取当前用户的所有会话，只返回对方的信息
func GetConversations(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}

	conversations, err := services.ListConversations(userInfo.ID)
	if err != nil {
		log.Println("Error fetching conversations:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}

	formatted := make([]map[string]interface{}, 0)
	for _, conv := range conversations {
		var otherUser *models.User
		if userInfo.ID == conv.ParticipantA {
			otherUser = &conv.ParticipantBUser
		} else {
			otherUser = &conv.ParticipantAUser
		}
		formatted = append(formatted, map[string]interface{}{
			"conversation_id":   conv.ConversationID,
			"wall_id":           conv.WallID,
			"status":            conv.Status,
			"status_updated_at": conv.StatusUpdatedAt,
			"participant": map[string]interface{}{
				"user_id":    otherUser.ID,
				"username":   otherUser.Username,
				"avatar":     otherUser.AvatarURL,
				"last_login": otherUser.LastLogin,
			},
		})
	}
	utils.RespondSuccess(c, formatted, nil)
}

// SendMessage 发消息的兜底接口，和推送通道落同样的库，
// 返回落库后的消息给调用方做占位对账
func SendMessage(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID := c.Param("conversation_id")

	var input struct {
		Content   string `json:"content" binding:"required"`
		MessageID string `json:"message_id"` // 客户端预生成的 ID，可选
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := services.GetConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	msg, err := services.RouteChatMessage(services.ChatMessageEvent{
		WallID:         conv.WallID,
		ConversationID: conversationID,
		SenderID:       userInfo.ID,
		Content:        input.Content,
		MessageID:      input.MessageID,
	})
	if err != nil {
		if errors.Is(err, services.ErrNotAParticipant) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not part of this conversation"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	utils.RespondSuccess(c, msg, nil)
}

// GetMessagesByConversationID 取会话的消息列表，按落库顺序
func GetMessagesByConversationID(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID := c.Param("conversation_id")

	conv, err := services.GetConversation(conversationID)
	if err != nil {
		log.Println("Conversation not found:", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if conv.ParticipantA != userInfo.ID && conv.ParticipantB != userInfo.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not part of this conversation"})
		return
	}

	messages, err := services.ListMessages(conversationID)
	if err != nil {
		log.Println("Error fetching messages:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	utils.RespondSuccess(c, messages, nil)
}

// UpdateRelationshipStatus 更新关系状态，系统消息留痕并推给双方
func UpdateRelationshipStatus(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	conversationID := c.Param("conversation_id")

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, sysMsg, err := services.UpdateRelationshipStatus(conversationID, userInfo.ID, input.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown relationship status", "allowed": services.RelationshipStatuses})
		case errors.Is(err, services.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		case errors.Is(err, services.ErrNotAParticipant):
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not part of this conversation"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	// 系统消息已落库，这里路由只负责推送（同 MessageID 不会写第二条）
	if err := services.Route(services.ChatMessageEvent{
		WallID:         conv.WallID,
		ConversationID: conversationID,
		SenderID:       services.SystemSender,
		Content:        sysMsg.Content,
		MessageID:      sysMsg.MessageID,
		IsSystem:       true,
	}); err != nil {
		log.Println("Failed to route status system message:", err)
	}

	utils.RespondSuccess(c, gin.H{
		"conversation_id":   conv.ConversationID,
		"status":            conv.Status,
		"status_updated_at": conv.StatusUpdatedAt,
	}, nil)
}
