package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"valet_parking/internal/api/middleware"
	"valet_parking/internal/domain"
	"valet_parking/internal/feed"
	"valet_parking/internal/gesture"
	"valet_parking/internal/logger"
	"valet_parking/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Cho phép kết nối từ mọi nguồn
	},
}

// ServiceEnder là thao tác kết thúc dịch vụ mà swipe kích hoạt.
type ServiceEnder interface {
	GetSlot(ctx context.Context, slotID string) (*domain.SlotRecord, error)
	EndService(ctx context.Context, slotID string) (*domain.SlotRecord, error)
}

type wsClient struct {
	conn     *websocket.Conn
	identity domain.Identity
	send     chan []byte
}

// WebSocketManager theo dõi các kết nối đang mở và phát thông báo chung.
type WebSocketManager struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	stopped    chan struct{}
	mutex      sync.RWMutex
	log        *logrus.Entry
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		stopped:    make(chan struct{}),
		log:        logger.WithComponent("websocket"),
	}
}

// Start chạy vòng lặp quản lý kết nối tới khi ctx bị huỷ.
func (wsm *WebSocketManager) Start(ctx context.Context) error {
	defer close(wsm.stopped)
	for {
		select {
		case <-ctx.Done():
			wsm.mutex.Lock()
			for client := range wsm.clients {
				client.conn.Close()
				delete(wsm.clients, client)
			}
			wsm.mutex.Unlock()
			return nil

		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			n := len(wsm.clients)
			wsm.mutex.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			wsm.log.WithField("employee_id", client.identity.EmployeeID).Infof("WebSocket client connected. Total: %d", n)

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				client.conn.Close()
			}
			n := len(wsm.clients)
			wsm.mutex.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			wsm.log.Infof("WebSocket client disconnected. Total: %d", n)

		case message := <-wsm.broadcast:
			wsm.mutex.RLock()
			for client := range wsm.clients {
				select {
				case client.send <- message:
				default:
					wsm.log.Warn("WebSocket client chậm, bỏ qua message")
				}
			}
			wsm.mutex.RUnlock()
		}
	}
}

func (wsm *WebSocketManager) add(client *wsClient) bool {
	select {
	case wsm.register <- client:
		return true
	case <-wsm.stopped:
		return false
	}
}

func (wsm *WebSocketManager) remove(client *wsClient) {
	select {
	case wsm.unregister <- client:
	case <-wsm.stopped:
		client.conn.Close()
	}
}

// Broadcast gửi message cho mọi client đang kết nối.
func (wsm *WebSocketManager) Broadcast(msg domain.SocketMessage) {
	message, err := json.Marshal(msg)
	if err != nil {
		wsm.log.WithError(err).Error("Error marshaling socket message")
		return
	}
	select {
	case wsm.broadcast <- message:
	default:
		wsm.log.Warn("Broadcast channel is full, dropping message")
	}
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
	hub       *feed.Hub
	tokens    middleware.TokenValidator
	ender     ServiceEnder
}

func NewWebSocketHandler(wsManager *WebSocketManager, hub *feed.Hub, tokens middleware.TokenValidator, ender ServiceEnder) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager, hub: hub, tokens: tokens, ender: ender}
}

// GET /ws?token=...
// Client nhận snapshot các chỗ đang có xe sau mỗi thay đổi và có thể gửi khung swipe
// để giao xe.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	id, _, err := h.tokens.ValidateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token không hợp lệ hoặc đã hết hạn"})
		return
	}
	if id.Role != domain.RoleValet && id.Role != domain.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Không có quyền truy cập"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.wsManager.log.WithError(err).Warn("Failed to upgrade to WebSocket")
		return
	}

	client := &wsClient{conn: conn, identity: id, send: make(chan []byte, sendBuffer)}
	if !h.wsManager.add(client) {
		conn.Close()
		return
	}

	snapshots, cancel := h.hub.Subscribe(func(r domain.SlotRecord) bool { return r.IsOccupied })
	done := make(chan struct{})
	go h.writePump(client, snapshots, done)
	go func() {
		defer func() {
			cancel()
			close(done)
			h.wsManager.remove(client)
		}()
		// context của request bị huỷ ngay khi handler trả về
		h.readPump(context.Background(), client)
	}()
}

func (h *WebSocketHandler) writePump(client *wsClient, snapshots <-chan []domain.SlotRecord, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	write := func(msgType int, data []byte) bool {
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return client.conn.WriteMessage(msgType, data) == nil
	}
	for {
		select {
		case <-done:
			return
		case recs, ok := <-snapshots:
			if !ok {
				return
			}
			domain.SortForDisplay(recs)
			data, err := json.Marshal(domain.SocketMessage{Type: domain.SocketSlotsSnapshot, Slots: recs})
			if err != nil || !write(websocket.TextMessage, data) {
				return
			}
		case data := <-client.send:
			if !write(websocket.TextMessage, data) {
				return
			}
		case <-ticker.C:
			if !write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (h *WebSocketHandler) readPump(ctx context.Context, client *wsClient) {
	session := newSwipeSession(h.ender, func(msg domain.SocketMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			return
		}
		select {
		case client.send <- data:
		default:
		}
	}, h.wsManager.Broadcast)
	defer session.Close()

	client.conn.SetReadLimit(4096)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.wsManager.log.WithError(err).Warn("WebSocket error")
			}
			return
		}
		var frame domain.SwipeFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Action != "swipe" {
			session.emit(domain.SocketMessage{Type: domain.SocketActionResult, Error: "Khung dữ liệu không hợp lệ"})
			continue
		}
		session.Handle(ctx, frame)
	}
}

type swipeEntry struct {
	detector *gesture.Detector
	unmount  func()
	slotID   string
}

// swipeSession giữ các Detector của một kết nối, mỗi chỗ đỗ một Detector.
// Mọi sự kiện "release" đi qua một ReleaseBus chung của kết nối.
type swipeSession struct {
	bus       *gesture.ReleaseBus
	ender     ServiceEnder
	emit      func(domain.SocketMessage)
	broadcast func(domain.SocketMessage)
	entries   map[string]*swipeEntry
}

func newSwipeSession(ender ServiceEnder, emit, broadcast func(domain.SocketMessage)) *swipeSession {
	return &swipeSession{
		bus:       gesture.NewReleaseBus(),
		ender:     ender,
		emit:      emit,
		broadcast: broadcast,
		entries:   make(map[string]*swipeEntry),
	}
}

func (s *swipeSession) Handle(ctx context.Context, f domain.SwipeFrame) {
	if f.Phase == domain.SwipeRelease {
		s.bus.Release()
		for _, e := range s.entries {
			s.emitState(e)
		}
		return
	}
	if !domain.IsValidSlotID(f.SlotID) {
		s.emit(domain.SocketMessage{Type: domain.SocketActionResult, Error: "slotId không hợp lệ"})
		return
	}

	e := s.entries[f.SlotID]
	if e == nil {
		if f.Phase != domain.SwipeStart {
			return
		}
		e = &swipeEntry{slotID: f.SlotID}
		e.detector = gesture.NewDetector(f.ContainerWidth, func() { s.complete(ctx, e) })
		e.unmount = e.detector.Mount(s.bus)
		s.entries[f.SlotID] = e
	}
	if f.ContainerWidth > 0 {
		e.detector.SetContainerWidth(f.ContainerWidth)
	}

	switch f.Phase {
	case domain.SwipeStart:
		e.detector.Start(f.X)
	case domain.SwipeMove:
		e.detector.Move(f.X)
	case domain.SwipeEnd:
		e.detector.End()
	}
	if _, alive := s.entries[f.SlotID]; alive {
		s.emitState(e)
	}
}

// complete chạy đúng một lần cho mỗi Detector; Detector bị gỡ sau đó.
func (s *swipeSession) complete(ctx context.Context, e *swipeEntry) {
	s.emitState(e)
	e.unmount()
	delete(s.entries, e.slotID)

	// swipe chỉ giao xe đã READY
	cur, err := s.ender.GetSlot(ctx, e.slotID)
	if err != nil {
		s.emit(domain.SocketMessage{Type: domain.SocketActionResult, Error: err.Error()})
		return
	}
	if !cur.IsOccupied || cur.Status != domain.StatusReady {
		s.emit(domain.SocketMessage{Type: domain.SocketActionResult, Error: fmt.Sprintf("Xe tại %s chưa sẵn sàng để giao", e.slotID)})
		return
	}

	_, err = s.ender.EndService(ctx, e.slotID)
	if err != nil {
		s.emit(domain.SocketMessage{Type: domain.SocketActionResult, Error: err.Error()})
		return
	}
	msg := domain.SocketMessage{Type: domain.SocketActionResult, Message: deliveredMessage(e.slotID)}
	if s.broadcast != nil {
		s.broadcast(msg)
		return
	}
	s.emit(msg)
}

func (s *swipeSession) emitState(e *swipeEntry) {
	st := e.detector.State()
	s.emit(domain.SocketMessage{Type: domain.SocketSwipeState, Swipe: &domain.SwipeState{
		SlotID:    e.slotID,
		Dragging:  st.Dragging,
		OffsetX:   st.OffsetX,
		Completed: st.Completed,
	}})
}

// Close gỡ mọi Detector khỏi ReleaseBus.
func (s *swipeSession) Close() {
	for id, e := range s.entries {
		e.unmount()
		delete(s.entries, id)
	}
}
