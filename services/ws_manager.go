package services

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 10 * time.Second // 发送 Ping 的间隔
	pongTimeout   = 15 * time.Second // 超过 15 秒未收到 Pong 断开连接
	sendQueueSize = 64               // 每个连接的发送队列上限，塞满直接断开慢客户端
)

// Client 一条在线连接。一个用户可以同时有多条（多设备/多标签页）
type Client struct {
	Conn         *websocket.Conn
	Send         chan []byte
	ConnectionID string
	UserID       string
	WallID       string
	ConnectedAt  time.Time
	LastPong     time.Time

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

// NewClient 创建连接对象，未注册前不会收到推送
func NewClient(conn *websocket.Conn, connectionID, userID, wallID string) *Client {
	return &Client{
		Conn:         conn,
		Send:         make(chan []byte, sendQueueSize),
		ConnectionID: connectionID,
		UserID:       userID,
		WallID:       wallID,
		ConnectedAt:  time.Now(),
		LastPong:     time.Now(),
	}
}

// trySend 往发送队列投递，连接已关闭或队列塞满返回 false
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.closeOnce.Do(func() {
		close(c.Send)
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

type connKey struct {
	WallID string
	UserID string
}

// WSManager 在线连接注册表：(墙, 用户) -> 连接列表，外加每面墙的在线成员索引。
// 纯内存态，进程重启后靠客户端重连重建
type WSManager struct {
	mu          sync.RWMutex
	clients     map[connKey][]*Client
	wallMembers map[string]map[string]int // wall -> user -> 连接数
}

func NewWSManager() *WSManager {
	return &WSManager{
		clients:     make(map[connKey][]*Client),
		wallMembers: make(map[string]map[string]int),
	}
}

// Manager 全局连接注册表实例
var Manager = NewWSManager()

// Register 登记一条在线连接
func (m *WSManager) Register(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := connKey{WallID: c.WallID, UserID: c.UserID}
	m.clients[k] = append(m.clients[k], c)
	if m.wallMembers[c.WallID] == nil {
		m.wallMembers[c.WallID] = make(map[string]int)
	}
	m.wallMembers[c.WallID][c.UserID]++
	log.Printf("🟢 User %s connected to wall %s (conn %s)", c.UserID, c.WallID, c.ConnectionID)
}

// Unregister 注销连接并关闭。重复调用是安全的；
// 注销的是该用户在这面墙上的最后一条连接时，同步清掉墙的在线索引
func (m *WSManager) Unregister(c *Client) {
	m.mu.Lock()
	k := connKey{WallID: c.WallID, UserID: c.UserID}
	if clients, ok := m.clients[k]; ok {
		for i, cc := range clients {
			if cc.ConnectionID == c.ConnectionID {
				m.clients[k] = append(clients[:i], clients[i+1:]...)
				if members := m.wallMembers[c.WallID]; members != nil {
					members[c.UserID]--
					if members[c.UserID] <= 0 {
						delete(members, c.UserID)
					}
					if len(members) == 0 {
						delete(m.wallMembers, c.WallID)
					}
				}
				log.Printf("🔴 User %s disconnected from wall %s (conn %s)", c.UserID, c.WallID, c.ConnectionID)
				break
			}
		}
		if len(m.clients[k]) == 0 {
			delete(m.clients, k)
		}
	}
	m.mu.Unlock()
	c.close()
}

// ClientsFor 返回用户在某面墙上的所有在线连接
func (m *WSManager) ClientsFor(wallID, userID string) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clients := m.clients[connKey{WallID: wallID, UserID: userID}]
	out := make([]*Client, len(clients))
	copy(out, clients)
	return out
}

// OnlineMembers 返回墙上当前有在线连接的用户
func (m *WSManager) OnlineMembers(wallID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := make([]string, 0, len(m.wallMembers[wallID]))
	for uid := range m.wallMembers[wallID] {
		members = append(members, uid)
	}
	return members
}

// IsOnline 用户在墙上是否有在线连接
func (m *WSManager) IsOnline(wallID, userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wallMembers[wallID][userID] > 0
}

// Push 往单个用户的所有在线连接投递。
// 没人在线直接丢弃，客户端重连后自己从库里对账，这里不排队；
// 发送队列塞满说明客户端卡死了，直接断开，不能拖住路由
func (m *WSManager) Push(wallID, userID string, data []byte) {
	for _, c := range m.ClientsFor(wallID, userID) {
		if !c.trySend(data) {
			log.Printf("⚠️ Send queue full, dropping connection %s of user %s", c.ConnectionID, c.UserID)
			m.Unregister(c)
		}
	}
}

// WritePump 把发送队列里的数据写到连接上，队列关闭或写失败后退出
func (c *Client) WritePump() {
	defer func() {
		Manager.Unregister(c)
	}()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// StartHeartbeat 定期发 ping，超时没收到 pong 就断开
func (c *Client) StartHeartbeat() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		timedOut := time.Since(c.LastPong) > pongTimeout
		c.mu.Unlock()

		if timedOut {
			log.Printf("⚠️ Client timeout, closing connection %s of user %s", c.ConnectionID, c.UserID)
			Manager.Unregister(c)
			return
		}
		if !c.trySend([]byte("ping")) {
			return
		}
	}
}

func (c *Client) markPong() {
	c.mu.Lock()
	c.LastPong = time.Now()
	c.mu.Unlock()
}
