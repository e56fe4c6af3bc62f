package services

import (
	"testing"

	"wall-system/config"
	"wall-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB 每个测试用一个独立的内存库，替换全局 config.DB
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// sqlite 内存库并发写会锁表，收到一个连接上串行执行
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Wall{},
		&models.WallMember{},
		&models.Confession{},
		&models.CrushEdge{},
		&models.Conversation{},
		&models.Message{},
	))
	config.DB = db
}

// seedWall 建一面墙并把给定用户都拉进去，返回 wallID
func seedWall(t *testing.T, userIDs ...string) string {
	t.Helper()
	wallID := uuid.New().String()
	require.NoError(t, config.DB.Create(&models.Wall{
		WallID:   wallID,
		Name:     "test wall",
		Password: "x",
	}).Error)
	for _, uid := range userIDs {
		require.NoError(t, config.DB.Create(&models.User{
			ID:       uid,
			Username: uid,
			Password: "x",
		}).Error)
		require.NoError(t, config.DB.Create(&models.WallMember{
			WallID: wallID,
			UserID: uid,
		}).Error)
	}
	return wallID
}

func admirerCountOf(t *testing.T, wallID, userID string) int {
	t.Helper()
	cnt, err := AdmirerCount(wallID, userID)
	require.NoError(t, err)
	return cnt
}

// resetManager 换一个干净的全局连接注册表
func resetManager() {
	Manager = NewWSManager()
}
