package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"valet_parking/internal/domain"
	"valet_parking/internal/repository"
)

type memEmployeeRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.EmployeeProfile
	byEmail map[string]string
}

func NewEmployeeRepository() repository.EmployeeRepository {
	return &memEmployeeRepository{
		byID:    make(map[string]domain.EmployeeProfile),
		byEmail: make(map[string]string),
	}
}

func (r *memEmployeeRepository) Create(_ context.Context, e *domain.EmployeeProfile) (*domain.EmployeeProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(e.Email)
	if _, ok := r.byEmail[key]; ok {
		return nil, fmt.Errorf("%w: email '%s' đã được đăng ký", repository.ErrDuplicateEntry, e.Email)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	r.byID[e.ID] = *e
	r.byEmail[key] = e.ID
	out := *e
	return &out, nil
}

func (r *memEmployeeRepository) FindByEmail(_ context.Context, email string) (*domain.EmployeeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := r.byID[id]
	return &out, nil
}

func (r *memEmployeeRepository) FindByID(_ context.Context, id string) (*domain.EmployeeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r *memEmployeeRepository) FindByRole(_ context.Context, role domain.Role) ([]domain.EmployeeProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.EmployeeProfile
	for _, e := range r.byID {
		if e.Role == role {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}
