package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"wall-system/models"
	"wall-system/services"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State 推送通道状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed // 重连次数用尽，不再自动重试
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrReconnectFailed 重连次数用尽
var ErrReconnectFailed = errors.New("unable to reconnect")

// ErrTransportUnavailable 推送通道不可用（内部用来触发兜底，不直接抛给用户）
var ErrTransportUnavailable = errors.New("push channel unavailable")

const (
	defaultReconnectBase  = 500 * time.Millisecond
	defaultMaxReconnects  = 8
	defaultRequestTimeout = 10 * time.Second
)

// Config 客户端配置
type Config struct {
	BaseURL              string // 兜底接口地址，如 http://host:8082
	WSURL                string // 推送通道地址，如 ws://host:8082/ws
	Token                string
	WallID               string
	ReconnectBase        time.Duration // 重连退避起始间隔，每次翻倍
	MaxReconnectAttempts int           // 重连次数上限，用尽后进入 StateFailed
	RequestTimeout       time.Duration // 兜底请求超时
}

// Handlers 推送事件回调，没设的直接丢弃
type Handlers struct {
	OnChatMessage   func(services.ChatMessagePayload)
	OnTyping        func(services.TypingPayload)
	OnCrushUpdate   func(services.CrushUpdatePayload)
	OnMutualMatch   func(services.MutualMatchPayload)
	OnSystemMessage func(services.SystemMessagePayload)
	OnStateChange   func(State)
}

// Client 成员侧投递客户端：优先走推送通道，断线自动退避重连，
// 通道不可用时发送/拉取走兜底接口
type Client struct {
	cfg        Config
	handlers   Handlers
	httpClient *http.Client

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	cancel     context.CancelFunc
	userClosed bool

	writeMu sync.Mutex // 串行化对 conn 的写
}

func New(cfg Config, handlers Handlers) *Client {
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnects
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Client{
		cfg:        cfg,
		handlers:   handlers,
		httpClient: &http.Client{},
		state:      StateDisconnected,
	}
}

// State 当前通道状态
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	cb := c.handlers.OnStateChange
	c.mu.Unlock()
	if changed && cb != nil {
		cb(s)
	}
}

// Connect 建立推送通道并启动读循环。
// 首次连接和断线重连都走同一套指数退避，重连次数用尽返回 ErrReconnectFailed
// 并停在 StateFailed；Close 会取消正在进行的重连
func (c *Client) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.userClosed = false
	c.mu.Unlock()
	return c.connectWithBackoff(ctx)
}

func (c *Client) connectWithBackoff(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.ReconnectBase
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		return c.dial(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxReconnectAttempts)), ctx))
	if err != nil {
		c.mu.Lock()
		closed := c.userClosed
		c.mu.Unlock()
		if closed {
			// 用户主动断开打断的重连，停在 Disconnected 就行
			c.setState(StateDisconnected)
			return err
		}
		c.setState(StateFailed)
		return fmt.Errorf("%w: %v", ErrReconnectFailed, err)
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	c.setState(StateConnecting)
	url := fmt.Sprintf("%s?wall_id=%s&token=%s", c.cfg.WSURL, c.cfg.WallID, c.cfg.Token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		c.setState(StateDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	go c.readLoop(ctx, conn)
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if string(raw) == "ping" {
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.TextMessage, []byte("pong"))
			c.writeMu.Unlock()
			continue
		}
		c.dispatch(raw)
	}
	conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	closed := c.userClosed
	c.mu.Unlock()

	c.setState(StateDisconnected)
	if closed || ctx.Err() != nil {
		return
	}
	// 不是用户主动断的，自动重连
	go func() {
		if err := c.connectWithBackoff(ctx); err != nil {
			log.Println("Reconnect failed:", err)
		}
	}()
}

func (c *Client) dispatch(raw []byte) {
	var env services.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Println("Invalid push frame:", string(raw))
		return
	}
	switch env.Type {
	case services.EventChatMessage:
		var p services.ChatMessagePayload
		if json.Unmarshal(env.Payload, &p) == nil && c.handlers.OnChatMessage != nil {
			c.handlers.OnChatMessage(p)
		}
	case services.EventTypingIndicator:
		var p services.TypingPayload
		if json.Unmarshal(env.Payload, &p) == nil && c.handlers.OnTyping != nil {
			c.handlers.OnTyping(p)
		}
	case services.EventCrushUpdate:
		var p services.CrushUpdatePayload
		if json.Unmarshal(env.Payload, &p) == nil && c.handlers.OnCrushUpdate != nil {
			c.handlers.OnCrushUpdate(p)
		}
	case services.EventMutualMatch:
		var p services.MutualMatchPayload
		if json.Unmarshal(env.Payload, &p) == nil && c.handlers.OnMutualMatch != nil {
			c.handlers.OnMutualMatch(p)
		}
	case services.EventSystemMessage:
		var p services.SystemMessagePayload
		if json.Unmarshal(env.Payload, &p) == nil && c.handlers.OnSystemMessage != nil {
			c.handlers.OnSystemMessage(p)
		}
	default:
		log.Println("Unknown push event type:", env.Type)
	}
}

// Close 用户主动断开：取消重连，关闭连接，停在 StateDisconnected
func (c *Client) Close() {
	c.mu.Lock()
	c.userClosed = true
	if c.cancel != nil {
		c.cancel()
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	c.setState(StateDisconnected)
}

// sendEnvelope 通过推送通道发一帧，通道不可用返回 ErrTransportUnavailable
func (c *Client) sendEnvelope(t services.EventType, payload interface{}) error {
	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()
	if state != StateConnected || conn == nil {
		return ErrTransportUnavailable
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(services.Envelope{Type: t, Payload: raw})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// SendChatMessage 发聊天消息。
// 优先走推送通道：成功时返回带预生成 ID 的占位消息，落库后的正式消息
// 会按同一个 ID 推回来或被拉取到，调用方按 ID 替换占位，不会出现重复；
// 通道不在 Connected 状态或写入失败时走兜底接口，返回落库后的消息
func (c *Client) SendChatMessage(ctx context.Context, conversationID, content string) (*models.Message, error) {
	messageID := uuid.New().String()

	err := c.sendEnvelope(services.EventChatMessage, map[string]string{
		"conversation_id": conversationID,
		"content":         content,
		"message_id":      messageID,
	})
	if err == nil {
		return &models.Message{
			MessageID:      messageID,
			ConversationID: conversationID,
			Content:        content,
		}, nil
	}

	// 兜底：同一个 message_id，服务端去重，两条路都走到也只落一条
	var msg models.Message
	reqErr := c.doRequest(ctx, http.MethodPost, "/api/conversation/"+conversationID+"/messages",
		map[string]string{"content": content, "message_id": messageID}, &msg)
	if reqErr != nil {
		return nil, reqErr
	}
	return &msg, nil
}

// SendTyping 发正在输入提示。只走推送通道，发不出去就算了，不兜底不报错
func (c *Client) SendTyping(conversationID string) {
	_ = c.sendEnvelope(services.EventTypingIndicator, map[string]string{
		"conversation_id": conversationID,
	})
}

// SetCrush 设置暗恋对象（兜底接口）
func (c *Client) SetCrush(ctx context.Context, targetID string) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.doRequest(ctx, http.MethodPost, "/api/wall/"+c.cfg.WallID+"/crush",
		map[string]string{"target_id": targetID}, &out)
	return out, err
}

// RemoveCrush 移除暗恋（兜底接口）
func (c *Client) RemoveCrush(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/wall/"+c.cfg.WallID+"/crush", nil, nil)
}

// GetOrCreateConversation 创建或获取会话（兜底接口）
func (c *Client) GetOrCreateConversation(ctx context.Context, peerID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := c.doRequest(ctx, http.MethodPost, "/api/conversation",
		map[string]string{"wall_id": c.cfg.WallID, "peer_id": peerID}, &conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FetchMessages 拉取会话消息，重连后用来对账
func (c *Client) FetchMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	err := c.doRequest(ctx, http.MethodGet, "/api/conversation/"+conversationID+"/messages", nil, &messages)
	return messages, err
}

// UpdateRelationshipStatus 更新关系状态（兜底接口）
func (c *Client) UpdateRelationshipStatus(ctx context.Context, conversationID, status string) error {
	return c.doRequest(ctx, http.MethodPut, "/api/conversation/"+conversationID+"/status",
		map[string]string{"status": status}, nil)
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError 兜底接口返回的错误
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// doRequest 兜底请求，带超时，卡住的网络调用会变成可见错误而不是挂死
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	var wrapped apiResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	if wrapped.Data == nil {
		return nil
	}
	return json.Unmarshal(wrapped.Data, out)
}
