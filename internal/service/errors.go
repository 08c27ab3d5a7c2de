package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("dữ liệu không hợp lệ")
	ErrSlotOccupied        = errors.New("chỗ đỗ đang có xe")
	ErrSlotNotFound        = errors.New("không tìm thấy chỗ đỗ")
	ErrSlotNotOccupied     = errors.New("chỗ đỗ không có xe")
	ErrUpstreamUnavailable = errors.New("dịch vụ phụ thuộc không khả dụng")
)

// ValidationError mang thông báo cụ thể cho từng trường.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrValidation, e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}
