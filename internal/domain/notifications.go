package domain

import "time"

// NotificationIntent được phát ra khi kết thúc dịch vụ, gửi cho khách hàng.
type NotificationIntent struct {
	ID          string    `json:"id"`
	SlotID      string    `json:"slotId"`
	PhoneNumber string    `json:"phoneNumber"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CarRequestEvent là yêu cầu lấy xe từ phía khách hàng (qua SQS hoặc HTTP).
// Thời điểm yêu cầu luôn lấy theo đồng hồ server.
type CarRequestEvent struct {
	SlotID string `json:"slotId"`
}

type SocketMessageType string

const (
	SocketSlotsSnapshot SocketMessageType = "slots_snapshot"
	SocketSwipeState    SocketMessageType = "swipe_state"
	SocketActionResult  SocketMessageType = "action_result"
)

// SocketMessage là khung dữ liệu server gửi cho client qua WebSocket.
type SocketMessage struct {
	Type    SocketMessageType `json:"type"`
	Slots   []SlotRecord      `json:"slots,omitempty"`
	Swipe   *SwipeState       `json:"swipe,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type SwipePhase string

const (
	SwipeStart   SwipePhase = "start"
	SwipeMove    SwipePhase = "move"
	SwipeEnd     SwipePhase = "end"
	SwipeRelease SwipePhase = "release" // thả chuột/ngón tay ở bất kỳ đâu
)

// SwipeFrame là khung client gửi lên cho nút "vuốt để giao xe".
type SwipeFrame struct {
	Action         string     `json:"action"` // "swipe"
	SlotID         string     `json:"slotId"`
	Phase          SwipePhase `json:"phase"`
	X              float64    `json:"x"`
	ContainerWidth float64    `json:"containerWidth"`
}

type SwipeState struct {
	SlotID    string  `json:"slotId"`
	Dragging  bool    `json:"dragging"`
	OffsetX   float64 `json:"offsetX"`
	Completed bool    `json:"completed"`
}
