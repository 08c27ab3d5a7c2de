package domain

import (
	"gopkg.in/guregu/null.v4"
)

type CycleOutcome string

const (
	OutcomeDelivered CycleOutcome = "delivered"
	OutcomeCleared   CycleOutcome = "cleared"
)

// ServiceCycle là một chu kỳ giữ xe đã kết thúc, lưu lại để thống kê.
// Các trường của SlotRecord là ảnh chụp ngay trước khi chỗ đỗ được giải phóng,
// trừ Status và TimestampDelivered được cập nhật theo kết quả.
type ServiceCycle struct {
	SlotRecord
	CycleID  string       `json:"cycleId,omitempty"`
	Outcome  CycleOutcome `json:"outcome,omitempty"`
	ClosedAt null.Time    `json:"closedAt"`
}

// Redacted bỏ số điện thoại khách hàng trước khi trả ra endpoint công khai.
func (c ServiceCycle) Redacted() ServiceCycle {
	if c.Car != nil {
		car := *c.Car
		car.CustomerPhone = ""
		c.Car = &car
	}
	return c
}

// Records trích SlotRecord từ danh sách chu kỳ, dùng cho analytics.
func Records(cycles []ServiceCycle) []SlotRecord {
	out := make([]SlotRecord, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, c.SlotRecord)
	}
	return out
}
