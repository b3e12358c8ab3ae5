package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/udonggeum-storefront/internal/cart"
	"github.com/ikkim/udonggeum-storefront/pkg/logger"
)

const (
	// Rate limiting: 최대 메시지 수 (1초당)
	maxMessagesPerSecond = 10

	sendBufferSize = 64
)

// ClientMessage 클라이언트로부터 받은 메시지
type ClientMessage struct {
	Type    string `json:"type"` // pop_up
	Visible bool   `json:"visible"`
}

// CartMessage 장바구니 변경 알림
type CartMessage struct {
	Type      string    `json:"type"` // cart_updated
	Cart      cart.Cart `json:"cart"`
	Subtotal  int64     `json:"subtotal"`
	ItemCount int       `json:"item_count"`
}

// MessageHandler handles a message a client sent for its cart session
type MessageHandler func(sessionID string, msg ClientMessage)

// Client WebSocket 클라이언트
type Client struct {
	Hub           *Hub
	Conn          *Conn
	SessionID     string
	Send          chan []byte
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex
}

// NewClient wraps an upgraded connection for one cart session
func NewClient(hub *Hub, conn *Conn, sessionID string) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		SessionID:     sessionID,
		Send:          make(chan []byte, sendBufferSize),
		LastResetTime: time.Now(),
	}
}

// sessionMessage 세션 단위 브로드캐스트 메시지
type sessionMessage struct {
	SessionID string
	Message   []byte
}

// Hub WebSocket 연결 관리자. 같은 장바구니 세션을 연 탭들이 모두 변경을 받는다
type Hub struct {
	// 세션별 클라이언트들 (SessionID -> []*Client - 멀티 탭 지원)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *sessionMessage

	onMessage MessageHandler

	// done is closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub Hub 생성. onMessage may be nil
func NewHub(onMessage MessageHandler) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *sessionMessage, 1024),
		onMessage:  onMessage,
		done:       make(chan struct{}),
	}
}

// SetMessageHandler replaces the handler for client messages. Call before Run.
func (h *Hub) SetMessageHandler(fn MessageHandler) {
	h.onMessage = fn
}

// Run dispatches registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			sessions := len(h.clients[client.SessionID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"cart_session": client.SessionID,
				"connections":  sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.SessionID] {
				select {
				case client.Send <- message.Message:
				default:
					// Send 채널이 막혀있음 - 비동기로 정리
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"cart_session": message.SessionID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	newList := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		newList = append(newList, c)
	}
	if !found {
		return
	}
	if len(newList) == 0 {
		delete(h.clients, client.SessionID)
	} else {
		h.clients[client.SessionID] = newList
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"cart_session": client.SessionID,
		"remaining":    len(newList),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, clientList := range h.clients {
		for _, c := range clientList {
			close(c.Send)
		}
		delete(h.clients, sessionID)
	}
	// 아직 처리되지 않은 등록 요청
	for {
		select {
		case c := <-h.register:
			close(c.Send)
		default:
			return
		}
	}
}

// NotifyCart pushes the committed cart to every connection of the session.
// Drops the update when the broadcast queue is full.
func (h *Hub) NotifyCart(sessionID string, c cart.Cart) {
	data, err := json.Marshal(CartMessage{
		Type:      "cart_updated",
		Cart:      c,
		Subtotal:  c.Subtotal(),
		ItemCount: c.ItemCount(),
	})
	if err != nil {
		logger.Error("Failed to marshal cart message", err, nil)
		return
	}

	select {
	case h.broadcast <- &sessionMessage{SessionID: sessionID, Message: data}:
	case <-h.done:
	default:
		logger.Warn("Broadcast channel full, cart update dropped", map[string]interface{}{
			"cart_session": sessionID,
		})
	}
}

// Register 클라이언트 등록. Hub가 종료된 뒤에는 Send를 닫아 WritePump를 끝낸다
func (h *Hub) Register(client *Client) {
	select {
	case <-h.done:
		close(client.Send)
		return
	default:
	}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister 클라이언트 등록 해제. Hub가 종료된 뒤에는 아무것도 하지 않는다
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Connections 세션에 연결된 클라이언트 수
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// HandleClientMessage 클라이언트 메시지 처리
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"cart_session": client.SessionID,
			"count":        count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"cart_session": client.SessionID,
			"error":        err.Error(),
		})
		return
	}

	switch msg.Type {
	case "pop_up":
		if h.onMessage != nil {
			h.onMessage(client.SessionID, msg)
		}
	default:
		logger.Debug("Ignoring client message", map[string]interface{}{
			"cart_session": client.SessionID,
			"type":         msg.Type,
		})
	}
}
