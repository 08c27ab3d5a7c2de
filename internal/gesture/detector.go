// Package gesture nhận diện thao tác kéo trái sang phải ("swipe to deliver").
package gesture

import "sync"

const (
	// HandleWidth là độ rộng của tay nắm kéo, tính bằng pixel.
	HandleWidth = 50.0
	// Threshold là tỉ lệ quãng kéo trên độ rộng track để hoàn tất.
	Threshold = 0.7
)

// State là ảnh chụp trạng thái của Detector.
type State struct {
	Dragging  bool
	OriginX   float64
	OffsetX   float64
	Completed bool
}

// Detector giữ trạng thái của một lần swipe. Completion chỉ được gọi tối đa một lần;
// sau khi hoàn tất, chủ sở hữu phải tạo Detector mới.
type Detector struct {
	mu             sync.Mutex
	state          State
	containerWidth float64
	onComplete     func()
}

func NewDetector(containerWidth float64, onComplete func()) *Detector {
	return &Detector{containerWidth: containerWidth, onComplete: onComplete}
}

// SetContainerWidth cập nhật độ rộng khi layout thay đổi.
func (d *Detector) SetContainerWidth(w float64) {
	d.mu.Lock()
	d.containerWidth = w
	d.mu.Unlock()
}

func (d *Detector) Start(x float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Completed {
		return
	}
	d.state.Dragging = true
	d.state.OriginX = x
	d.state.OffsetX = 0
}

// Move trả về true nếu lần gọi này làm gesture hoàn tất.
func (d *Detector) Move(x float64) bool {
	d.mu.Lock()
	if !d.state.Dragging || d.state.Completed || d.containerWidth <= 0 {
		d.mu.Unlock()
		return false
	}
	delta := clamp(x-d.state.OriginX, 0, d.containerWidth-HandleWidth)
	d.state.OffsetX = delta
	fired := delta/d.containerWidth >= Threshold
	if fired {
		d.state.Completed = true
	}
	cb := d.onComplete
	d.mu.Unlock()

	if fired && cb != nil {
		cb()
	}
	return fired
}

// End thả tay: quay về vị trí ban đầu nếu chưa hoàn tất.
func (d *Detector) End() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Completed {
		return
	}
	d.state.Dragging = false
	d.state.OffsetX = 0
}

func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Mount gắn End vào sự kiện thả tay toàn cục. Hàm trả về dùng để gỡ.
func (d *Detector) Mount(bus *ReleaseBus) (unmount func()) {
	return bus.Subscribe(d.End)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
