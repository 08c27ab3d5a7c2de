package domain

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
)

// SlotStatus là giá trị "status" được lưu trên bản ghi. Rỗng nghĩa là không có.
type SlotStatus string

const (
	StatusNone      SlotStatus = ""
	StatusParked    SlotStatus = "PARKED"
	StatusRequested SlotStatus = "REQUESTED"
	StatusReady     SlotStatus = "READY"
	StatusDelivered SlotStatus = "DELIVERED"
)

// ErrInvariantViolated được trả về khi một bản ghi vi phạm ràng buộc dữ liệu.
var ErrInvariantViolated = errors.New("bản ghi chỗ đỗ vi phạm ràng buộc")

type CarDetails struct {
	Make          string `json:"make" validate:"required,max=50"`
	Model         string `json:"model" validate:"required,max=50"`
	PlateNumber   string `json:"plateNumber" validate:"required,max=20"`
	CustomerPhone string `json:"customerPhone" validate:"required,min=6,max=20"`
}

// SlotRecord là tài liệu của một chỗ đỗ vật lý, khoá theo SlotID.
type SlotRecord struct {
	SlotID             string      `json:"id"`
	IsOccupied         bool        `json:"isOccupied"`
	Status             SlotStatus  `json:"status,omitempty"`
	Car                *CarDetails `json:"carDetails"`
	ValetID            string      `json:"valetId,omitempty"`
	ValetName          string      `json:"valetName,omitempty"`
	TimestampParked    null.Time   `json:"timestampParked"`
	TimestampRequested null.Time   `json:"timestampRequested"`
	TimestampReady     null.Time   `json:"timestampReady"`
	TimestampDelivered null.Time   `json:"timestampDelivered"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// EmptyRecord trả về bản ghi EMPTY chuẩn của một chỗ đỗ.
func EmptyRecord(slotID string) SlotRecord {
	return SlotRecord{SlotID: slotID}
}

// State suy ra trạng thái vòng đời từ các trường đã lưu.
func (r SlotRecord) State() SlotState {
	if !r.IsOccupied {
		if r.Status == StatusDelivered {
			return StateDelivered
		}
		return StateEmpty
	}
	switch r.Status {
	case StatusRequested:
		return StateRequested
	case StatusReady:
		return StateReady
	default:
		return StateParked
	}
}

// Equivalent so sánh nội dung, bỏ qua UpdatedAt.
func (r SlotRecord) Equivalent(o SlotRecord) bool {
	if r.SlotID != o.SlotID || r.IsOccupied != o.IsOccupied || r.Status != o.Status ||
		r.ValetID != o.ValetID || r.ValetName != o.ValetName {
		return false
	}
	if (r.Car == nil) != (o.Car == nil) || (r.Car != nil && *r.Car != *o.Car) {
		return false
	}
	return r.TimestampParked.Equal(o.TimestampParked) &&
		r.TimestampRequested.Equal(o.TimestampRequested) &&
		r.TimestampReady.Equal(o.TimestampReady) &&
		r.TimestampDelivered.Equal(o.TimestampDelivered)
}

// CheckInvariants kiểm tra các ràng buộc giữa occupancy, status và timestamps.
func (r SlotRecord) CheckInvariants() error {
	if !r.IsOccupied {
		if r.Car != nil || r.TimestampParked.Valid || r.TimestampRequested.Valid || r.TimestampReady.Valid {
			return fmt.Errorf("%w: slot %s trống nhưng còn thông tin xe", ErrInvariantViolated, r.SlotID)
		}
		switch r.Status {
		case StatusNone:
			if r.TimestampDelivered.Valid {
				return fmt.Errorf("%w: slot %s trống nhưng có timestampDelivered", ErrInvariantViolated, r.SlotID)
			}
		case StatusDelivered:
			if !r.TimestampDelivered.Valid {
				return fmt.Errorf("%w: slot %s DELIVERED thiếu timestampDelivered", ErrInvariantViolated, r.SlotID)
			}
		default:
			return fmt.Errorf("%w: slot %s trống với status %s", ErrInvariantViolated, r.SlotID, r.Status)
		}
		return nil
	}

	if r.Car == nil {
		return fmt.Errorf("%w: slot %s đang có xe nhưng thiếu carDetails", ErrInvariantViolated, r.SlotID)
	}
	switch r.Status {
	case StatusParked, StatusRequested:
	case StatusReady:
		if !r.TimestampRequested.Valid || !r.TimestampReady.Valid {
			return fmt.Errorf("%w: slot %s READY thiếu timestamp", ErrInvariantViolated, r.SlotID)
		}
		if r.TimestampReady.Time.Before(r.TimestampRequested.Time) {
			return fmt.Errorf("%w: slot %s timestampReady trước timestampRequested", ErrInvariantViolated, r.SlotID)
		}
	default:
		return fmt.Errorf("%w: slot %s đang có xe với status '%s'", ErrInvariantViolated, r.SlotID, r.Status)
	}
	return nil
}

// ParkRequest là dữ liệu valet gửi lên khi nhận xe.
type ParkRequest struct {
	SlotID string     `json:"slotId" binding:"required" validate:"required,slotid"`
	Car    CarDetails `json:"carDetails" binding:"required"`
}

// ParkingSlotFilter lọc danh sách slot (dùng cho subscribe và truy vấn).
type ParkingSlotFilter struct {
	OccupiedOnly bool
	ValetID      string
}

// Match dùng làm predicate cho feed.
func (f ParkingSlotFilter) Match(r SlotRecord) bool {
	if f.OccupiedOnly && !r.IsOccupied {
		return false
	}
	if f.ValetID != "" && r.ValetID != f.ValetID {
		return false
	}
	return true
}
