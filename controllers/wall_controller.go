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
	"golang.org/x/crypto/bcrypt"
)

// CreateWall 创建表白墙，创建者自动成为成员
func CreateWall(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}

	var input struct {
		Name        string `json:"name" binding:"required"`
		Password    string `json:"password" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	wall := models.Wall{
		WallID:      uuid.New().String(),
		Name:        input.Name,
		Password:    string(hashedPassword),
		OwnerID:     userInfo.ID,
		Description: input.Description,
	}
	member := models.WallMember{WallID: wall.WallID, UserID: userInfo.ID}

	if err := config.DB.Create(&wall).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wall"})
		log.Println("Error creating wall:", err)
		return
	}
	if err := config.DB.Create(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join wall"})
		return
	}

	utils.RespondSuccess(c, gin.H{"wall_id": wall.WallID}, nil)
}

// JoinWall 凭口令加入墙，重复加入直接返回成功
func JoinWall(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")

	var input struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var wall models.Wall
	if err := config.DB.Where("wall_id = ?", wallID).First(&wall).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Wall not found"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(wall.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Wrong wall password"})
		return
	}

	if services.IsMember(wallID, userInfo.ID) {
		utils.RespondSuccess(c, gin.H{"wall_id": wallID}, nil)
		return
	}

	member := models.WallMember{WallID: wallID, UserID: userInfo.ID}
	if err := config.DB.Create(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join wall"})
		return
	}
	utils.RespondSuccess(c, gin.H{"wall_id": wallID}, nil)
}

// GetWalls 取当前用户加入的所有墙
func GetWalls(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}

	var walls []models.Wall
	err := config.DB.
		Joins("JOIN wall_members ON wall_members.wall_id = walls.wall_id").
		Where("wall_members.user_id = ?", userInfo.ID).
		Find(&walls).Error
	if err != nil {
		log.Println("Error fetching walls:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch walls"})
		return
	}
	utils.RespondSuccess(c, walls, nil)
}

// GetWallMembers 取墙的成员列表（不带被暗恋计数，那个只给本人看）
func GetWallMembers(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")
	if !services.IsMember(wallID, userInfo.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this wall"})
		return
	}

	var members []struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
	}
	err := config.DB.Model(&models.WallMember{}).
		Select("wall_members.user_id, users.username").
		Joins("JOIN users ON users.id = wall_members.user_id").
		Where("wall_members.wall_id = ?", wallID).
		Scan(&members).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members"})
		return
	}
	utils.RespondSuccess(c, members, nil)
}

// GetAdmirerCount 取自己在这面墙上的被暗恋人数，只有数字没有名单
func GetAdmirerCount(c *gin.Context) {
	userInfo, ok := currentUser(c)
	if !ok {
		return
	}
	wallID := c.Param("wall_id")

	count, err := services.AdmirerCount(wallID, userInfo.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "You are not a member of this wall"})
		return
	}
	utils.RespondSuccess(c, gin.H{"admirer_count": count}, nil)
}
