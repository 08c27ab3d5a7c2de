// Package dashboard ghép hai nguồn dữ liệu của dashboard: feed trực tiếp các chỗ đang
// có xe và kết quả poll định kỳ của endpoint tổng hợp.
package dashboard

import (
	"context"
	"sync"
	"time"

	"valet_parking/internal/analytics"
	"valet_parking/internal/domain"
)

// ValetView là dữ liệu dashboard của valet.
type ValetView struct {
	Cars              []domain.SlotRecord       `json:"cars"`
	Histogram         analytics.StatusHistogram `json:"histogram"`
	AvgRequestToReady float64                   `json:"avgRequestToReadyMinutes"`
	LiveUpdatedAt     time.Time                 `json:"liveUpdatedAt"`
}

// AdminView là dữ liệu dashboard của admin.
type AdminView struct {
	TotalDelivered int                      `json:"totalCarsDelivered"`
	TotalValets    int                      `json:"totalValetEmployees"`
	Valets         []analytics.ValetSummary `json:"valets"`
	PolledAt       time.Time                `json:"polledAt"`
	PollError      string                   `json:"pollError,omitempty"`
}

// ViewModel giữ mẫu mới nhất của mỗi nguồn. Mỗi nguồn độc lập: live ghi đè live,
// poll ghi đè poll, poll lỗi giữ nguyên giá trị trước.
type ViewModel struct {
	mu       sync.RWMutex
	live     []domain.SlotRecord
	liveAt   time.Time
	polled   []domain.SlotRecord
	polledAt time.Time
	pollErr  error
	now      func() time.Time
}

func NewViewModel() *ViewModel {
	return &ViewModel{now: time.Now}
}

func (vm *ViewModel) ApplyLive(recs []domain.SlotRecord) {
	cp := append([]domain.SlotRecord(nil), recs...)
	domain.SortForDisplay(cp)
	vm.mu.Lock()
	vm.live = cp
	vm.liveAt = vm.now()
	vm.mu.Unlock()
}

func (vm *ViewModel) ApplyPoll(recs []domain.SlotRecord, err error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.pollErr = err
	if err != nil {
		return
	}
	vm.polled = append([]domain.SlotRecord(nil), recs...)
	vm.polledAt = vm.now()
}

// Run áp dụng các snapshot từ feed cho tới khi ctx bị huỷ hoặc kênh đóng.
func (vm *ViewModel) Run(ctx context.Context, updates <-chan []domain.SlotRecord) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case recs, ok := <-updates:
			if !ok {
				return nil
			}
			vm.ApplyLive(recs)
		}
	}
}

func (vm *ViewModel) ValetView() ValetView {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	cars := append([]domain.SlotRecord(nil), vm.live...)
	return ValetView{
		Cars:              cars,
		Histogram:         analytics.Histogram(cars),
		AvgRequestToReady: analytics.AverageCycleMinutes(cars),
		LiveUpdatedAt:     vm.liveAt,
	}
}

// AdminView tính thẻ hiệu suất cho từng valet từ dữ liệu poll gần nhất.
func (vm *ViewModel) AdminView(valets []domain.EmployeeProfile) AdminView {
	vm.mu.RLock()
	polled := vm.polled
	polledAt := vm.polledAt
	pollErr := vm.pollErr
	vm.mu.RUnlock()

	view := AdminView{
		TotalDelivered: analytics.DeliveredCount(polled),
		TotalValets:    len(valets),
		Valets:         make([]analytics.ValetSummary, 0, len(valets)),
		PolledAt:       polledAt,
	}
	if pollErr != nil {
		view.PollError = pollErr.Error()
	}
	for _, v := range valets {
		view.Valets = append(view.Valets, analytics.Summarize(v.ID, v.EmployeeName, polled))
	}
	return view
}
