package controllers

import (
	"log"
	"net/http"

	"wall-system/config"
	"wall-system/models"
	"wall-system/services"
	"wall-system/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PostConfession 发匿名表白，作者 ID 只落库不返回
func PostConfession(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")
	if !services.IsMember(wallID, userInfo.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this wall"})
		return
	}

	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	confession := models.Confession{
		ConfessionID: uuid.New().String(),
		WallID:       wallID,
		AuthorID:     userInfo.ID,
		Content:      input.Content,
	}
	if err := config.DB.Create(&confession).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post confession"})
		log.Println("Error creating confession:", err)
		return
	}
	utils.RespondSuccess(c, confession, nil)
}

// GetConfessions 取墙上的表白列表，最新的在前
func GetConfessions(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")
	if !services.IsMember(wallID, userInfo.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this wall"})
		return
	}

	var confessions []models.Confession
	err := config.DB.
		Where("wall_id = ?", wallID).
		Order("created_at DESC").
		Find(&confessions).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch confessions"})
		return
	}
	utils.RespondSuccess(c, confessions, nil)
}
