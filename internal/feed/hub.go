// Package feed giữ ảnh chụp mới nhất của tập chỗ đỗ và phát cho các subscriber.
package feed

import (
	"sort"
	"sync"

	"valet_parking/internal/domain"
)

// Predicate chọn các bản ghi một subscriber quan tâm. nil nghĩa là tất cả.
type Predicate func(domain.SlotRecord) bool

type subscriber struct {
	pred Predicate
	ch   chan []domain.SlotRecord
}

// Hub là observer registry cho collection chỗ đỗ.
// Mỗi subscriber nhận toàn bộ tập tài liệu khớp predicate sau mỗi thay đổi;
// nếu subscriber chậm, ảnh chụp cũ bị thay bằng ảnh mới nhất.
type Hub struct {
	mu      sync.Mutex
	records map[string]domain.SlotRecord
	subs    map[int]*subscriber
	nextID  int
}

func NewHub() *Hub {
	return &Hub{
		records: make(map[string]domain.SlotRecord),
		subs:    make(map[int]*subscriber),
	}
}

// Seed thay toàn bộ trạng thái bằng recs và phát cho mọi subscriber.
func (h *Hub) Seed(recs []domain.SlotRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = make(map[string]domain.SlotRecord, len(recs))
	for _, r := range recs {
		h.records[r.SlotID] = r
	}
	h.broadcastLocked()
}

// Publish cập nhật một bản ghi. Bản ghi cũ hơn bản đang giữ bị bỏ qua.
func (h *Hub) Publish(rec domain.SlotRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.records[rec.SlotID]; ok && rec.UpdatedAt.Before(cur.UpdatedAt) {
		return
	}
	h.records[rec.SlotID] = rec
	h.broadcastLocked()
}

// Subscribe trả về kênh nhận ảnh chụp và hàm huỷ đăng ký.
// Ảnh chụp hiện tại được gửi ngay.
func (h *Hub) Subscribe(pred Predicate) (<-chan []domain.SlotRecord, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	s := &subscriber{pred: pred, ch: make(chan []domain.SlotRecord, 1)}
	h.subs[id] = s
	deliver(s, h.snapshotLocked(pred))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(s.ch)
		})
	}
	return s.ch, cancel
}

// Snapshot trả về tập hiện tại khớp predicate, sắp theo SlotID.
func (h *Hub) Snapshot(pred Predicate) []domain.SlotRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked(pred)
}

func (h *Hub) snapshotLocked(pred Predicate) []domain.SlotRecord {
	out := make([]domain.SlotRecord, 0, len(h.records))
	for _, r := range h.records {
		if pred == nil || pred(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out
}

func (h *Hub) broadcastLocked() {
	for _, s := range h.subs {
		deliver(s, h.snapshotLocked(s.pred))
	}
}

// deliver không bao giờ chặn: thay ảnh chụp chưa được đọc bằng ảnh mới.
func deliver(s *subscriber, snap []domain.SlotRecord) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}
