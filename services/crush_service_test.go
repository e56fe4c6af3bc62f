package services

import (
	"testing"
	"time"

	"wall-system/config"
	"wall-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backdateCrush(t *testing.T, wallID, sourceID string, d time.Duration) {
	t.Helper()
	require.NoError(t, config.DB.Model(&models.CrushEdge{}).
		Where("wall_id = ? AND source_id = ?", wallID, sourceID).
		Update("set_at", time.Now().Add(-d)).Error)
}

func TestSetCrushTargetMustBeMember(t *testing.T) {
	setupTestDB(t)
	wallID := seedWall(t, "alice", "bob")

	_, err := SetCrush(wallID, "alice", "stranger")
	assert.ErrorIs(t, err, ErrNotAMember)
}

func TestSetCrushIncrementsAdmirerCount(t *testing.T) {
	setupTestDB(t)
	wallID := seedWall(t, "alice", "bob")

	edge, err := SetCrush(wallID, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", edge.TargetID)
	assert.False(t, edge.SetAt.IsZero())

	assert.Equal(t, 1, admirerCountOf(t, wallID, "bob"))
	assert.Equal(t, 0, admirerCountOf(t, wallID, "alice"))
}

func TestSetCrushSameTargetIsNoop(t *testing.T) {
	setupTestDB(t)
	wallID := seedWall(t, "alice", "bob")

	first, err := SetCrush(wallID, "alice", "bob")
	require.NoError(t, err)

	again, err := SetCrush(wallID, "alice", "bob")
	require.NoError(t, err)
	// no-op：保留原来的 set_at，计数不变
	assert.WithinDuration(t, first.SetAt, again.SetAt, time.Millisecond)
	assert.Equal(t, 1, admirerCountOf(t, wallID, "bob"))
}

func TestRetargetReplacesEdgeAndMovesCounter(t *testing.T) {
	setupTestDB(t)
	wallID := seedWall(t, "alice", "bob", "carol")

	_, err := SetCrush(wallID, "alice", "bob")
	require.NoError(t, err)
	backdateCrush(t, wallID, "alice", time.Hour)

	edge, err := SetCrush(wallID, "alice", "carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", edge.TargetID)
	// 换人重置锁定计时
	assert.WithinDuration(t, time.Now(), edge.SetAt, time.Second)

	// 只剩一条边
	var cnt int64
	config.DB.Model(&models.CrushEdge{}).Where("wall_id = ? AND source_id = ?", wallID, "alice").Count(&cnt)
	assert.EqualValues(t, 1, cnt)

	assert.Equal(t, 0, admirerCountOf(t, wallID, "bob"))
	assert.Equal(t, 1, admirerCountOf(t, wallID, "carol"))
}

func TestRemoveCrushRespectsLock(t *testing.T) {
	setupTestDB(t)
	wallID := seedWall(t, "alice", "bob")

	_, err := SetCrush(wallID, "alice", "bob")
	require.NoError(t, err)

	// 3 小时 59 分：还在锁定期
	backdateCrush(t, wallID, "alice", 3*time.Hour+59*time.Minute)
	_, err = RemoveCrush(wallID, "alice", false)
	var tooSoon *TooSoonError
	require.ErrorAs(t, err, &tooSoon)
	assert.Greater(t, tooSoon.Remaining, time.Duration(0))
	assert.LessOrEqual(t, tooSoon.Remaining, time.Minute)

	// 满 4 小时：可以移除
	backdateCrush(t, wallID, "alice", 4*time.Hour+time.Second)
	edge, err := RemoveCrush(wallID, "alice", false)
	require.NoError(t, err)
	assert.Equal(t, "bob", edge.TargetID)
	assert.Equal(t, 0, admirerCountOf(t, wallID, "bob"))

	_, err = GetCrush(wallID, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveCrushBypassSkipsLock(t *testing.T) {
	setupTestDB(t)
	wallID := seedWall(t, "alice", "bob")

	_, err := SetCrush(wallID, "alice", "bob")
	require.NoError(t, err)

	_, err = RemoveCrush(wallID, "alice", true)
	require.NoError(t, err)
	assert.Equal(t, 0, admirerCountOf(t, wallID, "bob"))
}

func TestRemoveCrushNotFound(t *testing.T) {
	setupTestDB(t)
	wallID := seedWall(t, "alice")

	_, err := RemoveCrush(wallID, "alice", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTooSoonErrorMessage(t *testing.T) {
	err := &TooSoonError{Remaining: 3*time.Hour + 25*time.Minute}
	assert.Equal(t, "crush can be removed in 3h25m", err.Error())
}
