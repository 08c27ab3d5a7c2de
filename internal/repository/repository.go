package repository

import (
	"context"
	"errors"
	"valet_parking/internal/domain"
)

var ErrNotFound = errors.New("không tìm thấy bản ghi")
var ErrDuplicateEntry = errors.New("bản ghi đã tồn tại")

// ErrConflict: điều kiện ghi (compare-and-set) không thoả, không có gì được ghi.
var ErrConflict = errors.New("bản ghi đã bị thay đổi bởi thao tác khác")

type EmployeeRepository interface {
	Create(ctx context.Context, e *domain.EmployeeProfile) (*domain.EmployeeProfile, error)
	FindByEmail(ctx context.Context, email string) (*domain.EmployeeProfile, error)
	FindByID(ctx context.Context, id string) (*domain.EmployeeProfile, error)
	FindByRole(ctx context.Context, role domain.Role) ([]domain.EmployeeProfile, error)
}

// SlotRepository là kho tài liệu chỗ đỗ: get / set / update.
// Việc subscribe nằm ở package feed.
type SlotRepository interface {
	FindByID(ctx context.Context, slotID string) (*domain.SlotRecord, error)
	Find(ctx context.Context, filter domain.ParkingSlotFilter) ([]domain.SlotRecord, error)
	// CreateIfVacant ghi bản ghi mới chỉ khi chỗ đỗ chưa tồn tại hoặc đang trống.
	// Trả về ErrConflict nếu chỗ đỗ đang có xe.
	CreateIfVacant(ctx context.Context, slot *domain.SlotRecord) error
	// Update ghi đè toàn bộ bản ghi đã tồn tại. ErrNotFound nếu chưa có.
	Update(ctx context.Context, slot *domain.SlotRecord) error
}

type ServiceCycleRepository interface {
	Create(ctx context.Context, cycle *domain.ServiceCycle) error
	FindAll(ctx context.Context) ([]domain.ServiceCycle, error)
	FindByValetID(ctx context.Context, valetID string) ([]domain.ServiceCycle, error)
}
