package services

import (
	"encoding/json"
	"testing"
	"time"

	"wall-system/config"
	"wall-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recvEnvelope 从连接的发送队列取一帧并解开信封
func recvEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.Send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no push received")
		return Envelope{}
	}
}

func assertNoPush(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected push: %s", raw)
	default:
	}
}

func setupMatchedPair(t *testing.T) (wallID string, conv *models.Conversation, aliceConn, bobConn *Client) {
	t.Helper()
	setupTestDB(t)
	resetManager()
	wallID = seedWall(t, "alice", "bob")

	var err error
	conv, err = GetOrCreateConversation(wallID, "alice", "bob")
	require.NoError(t, err)

	aliceConn = NewClient(nil, "conn-a", "alice", wallID)
	bobConn = NewClient(nil, "conn-b", "bob", wallID)
	Manager.Register(aliceConn)
	Manager.Register(bobConn)
	return wallID, conv, aliceConn, bobConn
}

func TestRouteChatMessagePersistsThenPushes(t *testing.T) {
	wallID, conv, aliceConn, bobConn := setupMatchedPair(t)

	msg, err := RouteChatMessage(ChatMessageEvent{
		WallID:         wallID,
		ConversationID: conv.ConversationID,
		SenderID:       "alice",
		Content:        "hi bob",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.MessageID)

	// 先落库
	var stored models.Message
	require.NoError(t, config.DB.Where("message_id = ?", msg.MessageID).First(&stored).Error)
	assert.Equal(t, "hi bob", stored.Content)

	// 对方收到，发送者不回显
	env := recvEnvelope(t, bobConn)
	assert.Equal(t, EventChatMessage, env.Type)
	var payload ChatMessagePayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, msg.MessageID, payload.Message.MessageID)
	assertNoPush(t, aliceConn)
}

func TestRouteSystemMessageReachesBoth(t *testing.T) {
	wallID, conv, aliceConn, bobConn := setupMatchedPair(t)

	err := Route(ChatMessageEvent{
		WallID:         wallID,
		ConversationID: conv.ConversationID,
		SenderID:       SystemSender,
		Content:        "notice",
		IsSystem:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, EventSystemMessage, recvEnvelope(t, aliceConn).Type)
	assert.Equal(t, EventSystemMessage, recvEnvelope(t, bobConn).Type)
}

func TestRouteTypingIsPushOnly(t *testing.T) {
	wallID, conv, aliceConn, bobConn := setupMatchedPair(t)

	var before int64
	config.DB.Model(&models.Message{}).Count(&before)

	err := Route(TypingEvent{WallID: wallID, ConversationID: conv.ConversationID, UserID: "alice"})
	require.NoError(t, err)

	env := recvEnvelope(t, bobConn)
	assert.Equal(t, EventTypingIndicator, env.Type)
	var payload TypingPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "alice", payload.UserID)
	assertNoPush(t, aliceConn)

	// 不落库
	var after int64
	config.DB.Model(&models.Message{}).Count(&after)
	assert.Equal(t, before, after)
}

func TestRouteCrushUpdateOnlyToTarget(t *testing.T) {
	wallID, _, aliceConn, bobConn := setupMatchedPair(t)

	err := Route(CrushChangedEvent{WallID: wallID, TargetID: "bob", AdmirerCount: 3})
	require.NoError(t, err)

	env := recvEnvelope(t, bobConn)
	assert.Equal(t, EventCrushUpdate, env.Type)
	var payload CrushUpdatePayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, 3, payload.AdmirerCount)
	assert.False(t, payload.MatchBroken)
	assertNoPush(t, aliceConn)
}

func TestMutualMatchNotifiesBothSides(t *testing.T) {
	setupTestDB(t)
	resetManager()
	wallID := seedWall(t, "alice", "bob")

	aliceConn := NewClient(nil, "conn-a", "alice", wallID)
	bobConn := NewClient(nil, "conn-b", "bob", wallID)
	Manager.Register(aliceConn)
	Manager.Register(bobConn)

	// bob 先设，alice 后设触发匹配；alice 走的是"兜底路径"（直接调服务），
	// bob 在推送通道上，也必须收到匹配通知
	_, _, err := SetCrushAndNotify(wallID, "bob", "alice")
	require.NoError(t, err)
	// bob 设置时 alice 作为目标收到计数更新
	assert.Equal(t, EventCrushUpdate, recvEnvelope(t, aliceConn).Type)

	_, matches, err := SetCrushAndNotify(wallID, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	env := recvEnvelope(t, bobConn)
	assert.Equal(t, EventMutualMatch, env.Type)
	var payload MutualMatchPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "match-alice-bob", payload.MatchID)
	assert.Equal(t, "alice", payload.PeerID)
	assert.NotEmpty(t, payload.ConversationID)

	env = recvEnvelope(t, aliceConn)
	assert.Equal(t, EventMutualMatch, env.Type)
}

func TestMatchBrokenSendsTeardownToBoth(t *testing.T) {
	setupTestDB(t)
	resetManager()
	wallID := seedWall(t, "alice", "bob")

	_, _, err := SetCrushAndNotify(wallID, "alice", "bob")
	require.NoError(t, err)
	_, _, err = SetCrushAndNotify(wallID, "bob", "alice")
	require.NoError(t, err)
	conv, err := FindConversationByMatch(wallID, "match-alice-bob")
	require.NoError(t, err)

	aliceConn := NewClient(nil, "conn-a", "alice", wallID)
	bobConn := NewClient(nil, "conn-b", "bob", wallID)
	Manager.Register(aliceConn)
	Manager.Register(bobConn)

	_, err = RemoveCrushAndNotify(wallID, "alice", true)
	require.NoError(t, err)

	for _, conn := range []*Client{aliceConn, bobConn} {
		env := recvEnvelope(t, conn)
		assert.Equal(t, EventCrushUpdate, env.Type)
		var payload CrushUpdatePayload
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.True(t, payload.MatchBroken)
		assert.Equal(t, conv.ConversationID, payload.ConversationID)
	}
}

type bogusEvent struct{}

func (bogusEvent) eventType() EventType { return "bogus" }

func TestRouteRejectsUnknownEvent(t *testing.T) {
	err := Route(bogusEvent{})
	assert.Error(t, err)
}

func TestFallbackAndPushPersistSameShape(t *testing.T) {
	wallID, conv, _, _ := setupMatchedPair(t)

	// 推送通道路径（ReadPump 收到后调 Route）和兜底接口路径（controller 调
	// RouteChatMessage）走的是同一套落库，消息形状必须一致
	viaPush, err := RouteChatMessage(ChatMessageEvent{
		WallID:         wallID,
		ConversationID: conv.ConversationID,
		SenderID:       "alice",
		Content:        "same content",
		MessageID:      "push-1",
	})
	require.NoError(t, err)
	viaFallback, err := RouteChatMessage(ChatMessageEvent{
		WallID:         wallID,
		ConversationID: conv.ConversationID,
		SenderID:       "alice",
		Content:        "same content",
	})
	require.NoError(t, err)

	assert.Equal(t, viaPush.ConversationID, viaFallback.ConversationID)
	assert.Equal(t, viaPush.SenderID, viaFallback.SenderID)
	assert.Equal(t, viaPush.Content, viaFallback.Content)
	assert.Equal(t, viaPush.IsSystem, viaFallback.IsSystem)
	assert.NotEqual(t, viaPush.MessageID, viaFallback.MessageID)
}
