package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTracksWallIndex(t *testing.T) {
	m := NewWSManager()

	// 同一个用户两条连接（两个设备）
	c1 := NewClient(nil, "conn-1", "alice", "wall-1")
	c2 := NewClient(nil, "conn-2", "alice", "wall-1")
	m.Register(c1)
	m.Register(c2)

	assert.True(t, m.IsOnline("wall-1", "alice"))
	assert.Len(t, m.ClientsFor("wall-1", "alice"), 2)
	assert.Equal(t, []string{"alice"}, m.OnlineMembers("wall-1"))

	// 关掉一条还在线
	m.Unregister(c1)
	assert.True(t, m.IsOnline("wall-1", "alice"))
	assert.Len(t, m.ClientsFor("wall-1", "alice"), 1)

	// 关掉最后一条，墙的在线索引同步清掉
	m.Unregister(c2)
	assert.False(t, m.IsOnline("wall-1", "alice"))
	assert.Empty(t, m.OnlineMembers("wall-1"))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	m := NewWSManager()
	c := NewClient(nil, "conn-1", "alice", "wall-1")
	m.Register(c)
	m.Unregister(c)
	m.Unregister(c) // 重复注销不会炸
	assert.False(t, m.IsOnline("wall-1", "alice"))
}

func TestPushToAbsentMemberIsNoop(t *testing.T) {
	m := NewWSManager()
	// 没人在线，推送直接丢弃，不报错不 panic
	m.Push("wall-1", "nobody", []byte("hello"))
}

func TestPushReachesAllConnections(t *testing.T) {
	m := NewWSManager()
	c1 := NewClient(nil, "conn-1", "alice", "wall-1")
	c2 := NewClient(nil, "conn-2", "alice", "wall-1")
	m.Register(c1)
	m.Register(c2)

	m.Push("wall-1", "alice", []byte("hello"))

	assert.Equal(t, "hello", string(<-c1.Send))
	assert.Equal(t, "hello", string(<-c2.Send))
}

func TestPushIsScopedToWall(t *testing.T) {
	m := NewWSManager()
	c1 := NewClient(nil, "conn-1", "alice", "wall-1")
	c2 := NewClient(nil, "conn-2", "alice", "wall-2")
	m.Register(c1)
	m.Register(c2)

	m.Push("wall-1", "alice", []byte("hello"))

	assert.Len(t, c1.Send, 1)
	assert.Len(t, c2.Send, 0)
}

func TestSendQueueOverflowDisconnects(t *testing.T) {
	m := NewWSManager()
	c := NewClient(nil, "conn-1", "alice", "wall-1")
	m.Register(c)

	// 没有 WritePump 消费，塞满队列
	for i := 0; i < sendQueueSize; i++ {
		require.True(t, c.trySend([]byte("x")))
	}

	// 再推一条：慢客户端直接被踢，不能拖住路由
	m.Push("wall-1", "alice", []byte("overflow"))
	assert.False(t, m.IsOnline("wall-1", "alice"))

	// 被踢之后再推也不会 panic
	m.Push("wall-1", "alice", []byte("after"))
}

func TestClosedClientRejectsSend(t *testing.T) {
	m := NewWSManager()
	c := NewClient(nil, "conn-1", "alice", "wall-1")
	m.Register(c)
	m.Unregister(c)
	assert.False(t, c.trySend([]byte("late")))
}
