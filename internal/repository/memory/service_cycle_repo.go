package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"valet_parking/internal/domain"
	"valet_parking/internal/repository"
)

type memServiceCycleRepository struct {
	mu     sync.RWMutex
	cycles []domain.ServiceCycle
}

func NewServiceCycleRepository() repository.ServiceCycleRepository {
	return &memServiceCycleRepository{}
}

func (r *memServiceCycleRepository) Create(_ context.Context, cycle *domain.ServiceCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cycle.CycleID == "" {
		cycle.CycleID = uuid.NewString()
	}
	c := *cycle
	c.SlotRecord = cloneSlot(c.SlotRecord)
	r.cycles = append(r.cycles, c)
	return nil
}

func (r *memServiceCycleRepository) FindAll(_ context.Context) ([]domain.ServiceCycle, error) {
	return r.find(func(domain.ServiceCycle) bool { return true }), nil
}

func (r *memServiceCycleRepository) FindByValetID(_ context.Context, valetID string) ([]domain.ServiceCycle, error) {
	return r.find(func(c domain.ServiceCycle) bool { return c.ValetID == valetID }), nil
}

func (r *memServiceCycleRepository) find(keep func(domain.ServiceCycle) bool) []domain.ServiceCycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ServiceCycle, 0, len(r.cycles))
	for _, c := range r.cycles {
		if keep(c) {
			c.SlotRecord = cloneSlot(c.SlotRecord)
			out = append(out, c)
		}
	}
	return out
}
