package services

import (
	"errors"
	"time"

	"wall-system/config"
	"wall-system/models"

	"gorm.io/gorm"
)

// SetCrush 设置暗恋对象。
// 同一面墙每人只能有一个对象：已有对象时换人会覆盖旧边并把 SetAt 重置为现在；
// 重复设置同一个人是 no-op，返回原来的边（SetAt 不变）。
// 目标的 admirer_count 在同一个事务里增减，匹配检测读到的永远是完整状态
func SetCrush(wallID, sourceID, targetID string) (*models.CrushEdge, error) {
	if !IsMember(wallID, targetID) {
		return nil, ErrNotAMember
	}

	key := wallID + ":" + sourceID
	crushLocks.Lock(key)
	defer crushLocks.Unlock(key)

	var edge models.CrushEdge
	err := config.DB.Where("wall_id = ? AND source_id = ?", wallID, sourceID).First(&edge).Error
	if err == nil {
		if edge.TargetID == targetID {
			// 同一个人，no-op
			return &edge, nil
		}
		// 换目标：覆盖旧边，重置锁定计时，双方计数一增一减
		oldTarget := edge.TargetID
		now := time.Now()
		err = config.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.CrushEdge{}).Where("id = ?", edge.ID).
				Updates(map[string]interface{}{"target_id": targetID, "set_at": now}).Error; err != nil {
				return err
			}
			if err := adjustAdmirers(tx, wallID, oldTarget, -1); err != nil {
				return err
			}
			return adjustAdmirers(tx, wallID, targetID, +1)
		})
		if err != nil {
			return nil, err
		}
		edge.TargetID = targetID
		edge.SetAt = now
		return &edge, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 还没有边，新建
	edge = models.CrushEdge{
		WallID:   wallID,
		SourceID: sourceID,
		TargetID: targetID,
		SetAt:    time.Now(),
	}
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&edge).Error; err != nil {
			return err
		}
		return adjustAdmirers(tx, wallID, targetID, +1)
	})
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// RemoveCrush 移除暗恋。
// 设置后 config.CrushLockDuration（默认 4 小时）内不允许移除，
// 返回 TooSoonError 带剩余等待时间；bypassLock 只给测试环境用。
// 换目标不受锁限制，锁只管整条边的删除
func RemoveCrush(wallID, sourceID string, bypassLock bool) (*models.CrushEdge, error) {
	key := wallID + ":" + sourceID
	crushLocks.Lock(key)
	defer crushLocks.Unlock(key)

	var edge models.CrushEdge
	err := config.DB.Where("wall_id = ? AND source_id = ?", wallID, sourceID).First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !bypassLock {
		if remain := config.CrushLockDuration - time.Since(edge.SetAt); remain > 0 {
			return nil, &TooSoonError{Remaining: remain}
		}
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.CrushEdge{}, "id = ?", edge.ID).Error; err != nil {
			return err
		}
		return adjustAdmirers(tx, wallID, edge.TargetID, -1)
	})
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// GetCrush 查询用户在墙上的当前暗恋边
func GetCrush(wallID, sourceID string) (*models.CrushEdge, error) {
	var edge models.CrushEdge
	err := config.DB.Where("wall_id = ? AND source_id = ?", wallID, sourceID).First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &edge, nil
}
