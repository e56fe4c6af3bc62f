package controllers

import (
	"errors"
	"net/http"

	"wall-system/config"
	"wall-system/services"
	"wall-system/utils"

	"github.com/gin-gonic/gin"
)

// SetCrush 设置暗恋对象。落库后服务端会同步重查匹配，
// 匹配成功的话本次响应里直接带上匹配和会话 ID（另一方走推送通知）
func SetCrush(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")

	var input struct {
		TargetID string `json:"target_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !services.IsMember(wallID, userInfo.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this wall"})
		return
	}
	if input.TargetID == userInfo.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot set a crush on yourself"})
		return
	}

	edge, matches, err := services.SetCrushAndNotify(wallID, userInfo.ID, input.TargetID)
	if err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Target is not a member of this wall"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set crush"})
		return
	}

	data := gin.H{
		"target_id": edge.TargetID,
		"set_at":    edge.SetAt,
	}
	if len(matches) > 0 {
		m := matches[0]
		data["match"] = m
		data["conversation_id"] = services.ConversationID(wallID, m.UserA, m.UserB)
	}
	utils.RespondSuccess(c, data, nil)
}

// RemoveCrush 移除暗恋。锁定期内返回 403 并带剩余等待时间；
// bypass_lock 只在 ALLOW_LOCK_BYPASS 打开时生效（测试环境）
func RemoveCrush(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")

	var input struct {
		BypassLock bool `json:"bypass_lock"`
	}
	// DELETE 可以不带 body
	_ = c.ShouldBindJSON(&input)
	bypass := input.BypassLock && config.AllowLockBypass

	edge, err := services.RemoveCrushAndNotify(wallID, userInfo.ID, bypass)
	if err != nil {
		var tooSoon *services.TooSoonError
		if errors.As(err, &tooSoon) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":             tooSoon.Error(),
				"remaining_seconds": int(tooSoon.Remaining.Seconds()),
			})
			return
		}
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No crush to remove"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove crush"})
		return
	}

	utils.RespondSuccess(c, gin.H{"removed_target_id": edge.TargetID}, nil)
}

// GetMyCrush 查自己当前的暗恋对象
func GetMyCrush(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")

	edge, err := services.GetCrush(wallID, userInfo.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondSuccess(c, nil, nil)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch crush"})
		return
	}
	utils.RespondSuccess(c, gin.H{"target_id": edge.TargetID, "set_at": edge.SetAt}, nil)
}
