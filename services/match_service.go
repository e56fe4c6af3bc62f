package services

import (
	"fmt"
	"log"

	"wall-system/config"
	"wall-system/models"
)

// Match 互相暗恋形成的匹配，派生数据不落库
type Match struct {
	MatchID string `json:"match_id"`
	WallID  string `json:"wall_id"`
	UserA   string `json:"user_a"` // 两人中 ID 较小者
	UserB   string `json:"user_b"`
}

// MatchID 规范化的匹配 ID，两个方向算出来是同一个值
func MatchID(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("match-%s-%s", userA, userB)
}

// CheckMutual 检查 user 在墙上是否形成互相暗恋。
// 可以和 SetCrush/RemoveCrush 并发调用：撞上正在进行的修改时可能漏报，
// 但写入落库后再查一定能查到，所以每次写入后都要重查一遍（见 SetCrushAndNotify）
func CheckMutual(wallID, userID string) ([]Match, error) {
	var edges []models.CrushEdge
	if err := config.DB.Where("wall_id = ?", wallID).Find(&edges).Error; err != nil {
		return nil, err
	}

	targets := make(map[string]string, len(edges)) // source -> target
	for _, e := range edges {
		targets[e.SourceID] = e.TargetID
	}

	target, ok := targets[userID]
	if !ok {
		return nil, nil
	}
	if targets[target] != userID {
		return nil, nil
	}

	a, b := userID, target
	if a > b {
		a, b = b, a
	}
	return []Match{{MatchID: MatchID(a, b), WallID: wallID, UserA: a, UserB: b}}, nil
}

// SetCrushAndNotify 设置暗恋并在落库后同步重查匹配：
// 新匹配 -> 幂等建会话、给双方推 mutual_match；
// 换人拆散旧匹配 -> 给前任双方推会话拆除通知；
// 目标（换人时包括旧目标）收到被暗恋计数更新，但永远不知道来源是谁
func SetCrushAndNotify(wallID, sourceID, targetID string) (*models.CrushEdge, []Match, error) {
	var oldTarget string
	if prev, err := GetCrush(wallID, sourceID); err == nil {
		if prev.TargetID == targetID {
			// no-op，不发任何事件
			return prev, nil, nil
		}
		oldTarget = prev.TargetID
	}

	oldMatches, _ := CheckMutual(wallID, sourceID)

	edge, err := SetCrush(wallID, sourceID, targetID)
	if err != nil {
		return nil, nil, err
	}

	// 写后重查
	newMatches, err := CheckMutual(wallID, sourceID)
	if err != nil {
		log.Println("Failed to recheck mutual after set:", err)
	}

	notifyMatchDiff(wallID, oldMatches, newMatches)

	pushAdmirerUpdate(wallID, targetID)
	if oldTarget != "" {
		pushAdmirerUpdate(wallID, oldTarget)
	}
	return edge, newMatches, nil
}

// RemoveCrushAndNotify 移除暗恋并在落库后重查，拆散匹配时通知前任双方
func RemoveCrushAndNotify(wallID, sourceID string, bypassLock bool) (*models.CrushEdge, error) {
	oldMatches, _ := CheckMutual(wallID, sourceID)

	edge, err := RemoveCrush(wallID, sourceID, bypassLock)
	if err != nil {
		return nil, err
	}

	newMatches, err := CheckMutual(wallID, sourceID)
	if err != nil {
		log.Println("Failed to recheck mutual after remove:", err)
	}

	notifyMatchDiff(wallID, oldMatches, newMatches)
	pushAdmirerUpdate(wallID, edge.TargetID)
	return edge, nil
}

// notifyMatchDiff 对比写入前后的匹配状态，路由新匹配/拆散事件。
// 路由失败只记日志，推送丢了客户端重连后会自己对账
func notifyMatchDiff(wallID string, oldMatches, newMatches []Match) {
	oldID, newID := "", ""
	if len(oldMatches) > 0 {
		oldID = oldMatches[0].MatchID
	}
	if len(newMatches) > 0 {
		newID = newMatches[0].MatchID
	}
	if oldID == newID {
		return
	}

	if oldID != "" {
		old := oldMatches[0]
		if conv, err := FindConversationByMatch(wallID, old.MatchID); err == nil {
			if err := Route(MatchBrokenEvent{
				WallID:         wallID,
				ConversationID: conv.ConversationID,
				UserA:          old.UserA,
				UserB:          old.UserB,
			}); err != nil {
				log.Println("Failed to route match broken event:", err)
			}
		}
	}

	if newID != "" {
		m := newMatches[0]
		conv, err := GetOrCreateConversation(wallID, m.UserA, m.UserB)
		if err != nil {
			log.Println("Failed to create conversation for match:", err)
			return
		}
		if err := Route(MatchFoundEvent{WallID: wallID, Match: m, ConversationID: conv.ConversationID}); err != nil {
			log.Println("Failed to route mutual match event:", err)
		}
	}
}

func pushAdmirerUpdate(wallID, userID string) {
	cnt, err := AdmirerCount(wallID, userID)
	if err != nil {
		return
	}
	if err := Route(CrushChangedEvent{WallID: wallID, TargetID: userID, AdmirerCount: cnt}); err != nil {
		log.Println("Failed to route crush update event:", err)
	}
}
