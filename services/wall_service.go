package services

import (
	"errors"

	"wall-system/config"
	"wall-system/models"

	"gorm.io/gorm"
)

// IsMember 判断用户是不是墙的成员，暗恋目标必须是同一面墙的成员
func IsMember(wallID, userID string) bool {
	var cnt int64
	config.DB.Model(&models.WallMember{}).
		Where("wall_id = ? AND user_id = ?", wallID, userID).
		Count(&cnt)
	return cnt > 0
}

// AdmirerCount 查询当前暗恋该成员的人数，只返回数字不返回来源
func AdmirerCount(wallID, userID string) (int, error) {
	var member models.WallMember
	err := config.DB.Where("wall_id = ? AND user_id = ?", wallID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return member.AdmirerCount, nil
}

// adjustAdmirers 在事务内增减被暗恋计数，用表达式原子更新
func adjustAdmirers(tx *gorm.DB, wallID, userID string, delta int) error {
	return tx.Model(&models.WallMember{}).
		Where("wall_id = ? AND user_id = ?", wallID, userID).
		Update("admirer_count", gorm.Expr("admirer_count + ?", delta)).Error
}
