// Package memory chứa các repository lưu trong bộ nhớ, dùng cho môi trường dev và test.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"valet_parking/internal/domain"
	"valet_parking/internal/repository"
)

type memSlotRepository struct {
	mu    sync.RWMutex
	slots map[string]domain.SlotRecord
	now   func() time.Time
}

func NewSlotRepository() repository.SlotRepository {
	return &memSlotRepository{
		slots: make(map[string]domain.SlotRecord),
		now:   time.Now,
	}
}

func cloneSlot(s domain.SlotRecord) domain.SlotRecord {
	if s.Car != nil {
		car := *s.Car
		s.Car = &car
	}
	return s
}

func (r *memSlotRepository) FindByID(_ context.Context, slotID string) (*domain.SlotRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[slotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneSlot(s)
	return &out, nil
}

func (r *memSlotRepository) Find(_ context.Context, filter domain.ParkingSlotFilter) ([]domain.SlotRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SlotRecord, 0, len(r.slots))
	for _, s := range r.slots {
		if filter.Match(s) {
			out = append(out, cloneSlot(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out, nil
}

func (r *memSlotRepository) CreateIfVacant(_ context.Context, slot *domain.SlotRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.slots[slot.SlotID]; ok && cur.IsOccupied {
		return repository.ErrConflict
	}
	slot.UpdatedAt = r.now().UTC()
	r.slots[slot.SlotID] = cloneSlot(*slot)
	return nil
}

func (r *memSlotRepository) Update(_ context.Context, slot *domain.SlotRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot.SlotID]; !ok {
		return repository.ErrNotFound
	}
	slot.UpdatedAt = r.now().UTC()
	r.slots[slot.SlotID] = cloneSlot(*slot)
	return nil
}
