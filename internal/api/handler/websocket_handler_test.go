package handler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valet_parking/internal/domain"
)

type fakeEnder struct {
	mu    sync.Mutex
	slots map[string]domain.SlotRecord
	ended []string
}

func (f *fakeEnder) GetSlot(_ context.Context, slotID string) (*domain.SlotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.slots[slotID]
	return &rec, nil
}

func (f *fakeEnder) EndService(_ context.Context, slotID string) (*domain.SlotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, slotID)
	rec := f.slots[slotID]
	rec.IsOccupied = false
	rec.Status = domain.StatusDelivered
	f.slots[slotID] = rec
	return &rec, nil
}

type captured struct {
	mu   sync.Mutex
	msgs []domain.SocketMessage
}

func (c *captured) add(m domain.SocketMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *captured) results() []domain.SocketMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.SocketMessage
	for _, m := range c.msgs {
		if m.Type == domain.SocketActionResult {
			out = append(out, m)
		}
	}
	return out
}

func swipeAcross(s *swipeSession, slotID string) {
	ctx := context.Background()
	s.Handle(ctx, domain.SwipeFrame{Action: "swipe", SlotID: slotID, Phase: domain.SwipeStart, X: 0, ContainerWidth: 300})
	s.Handle(ctx, domain.SwipeFrame{Action: "swipe", SlotID: slotID, Phase: domain.SwipeMove, X: 240})
}

func TestSwipeSession_DeliversReadySlot(t *testing.T) {
	ender := &fakeEnder{slots: map[string]domain.SlotRecord{
		"P0007": {SlotID: "P0007", IsOccupied: true, Status: domain.StatusReady},
	}}
	emitted, broadcast := &captured{}, &captured{}
	s := newSwipeSession(ender, emitted.add, broadcast.add)
	defer s.Close()

	swipeAcross(s, "P0007")

	assert.Equal(t, []string{"P0007"}, ender.ended)
	res := broadcast.results()
	require.Len(t, res, 1)
	assert.Empty(t, res[0].Error)
	assert.Contains(t, res[0].Message, "Service ended for car in P0007")
	assert.Empty(t, emitted.results())
}

func TestSwipeSession_RefusesSlotNotReady(t *testing.T) {
	for _, status := range []domain.SlotStatus{domain.StatusParked, domain.StatusRequested} {
		t.Run(string(status), func(t *testing.T) {
			ender := &fakeEnder{slots: map[string]domain.SlotRecord{
				"P0008": {SlotID: "P0008", IsOccupied: true, Status: status},
			}}
			emitted, broadcast := &captured{}, &captured{}
			s := newSwipeSession(ender, emitted.add, broadcast.add)
			defer s.Close()

			swipeAcross(s, "P0008")

			assert.Empty(t, ender.ended)
			assert.Empty(t, broadcast.results())
			res := emitted.results()
			require.Len(t, res, 1)
			assert.Contains(t, res[0].Error, "chưa sẵn sàng")
		})
	}
}

func TestSwipeSession_RefusesEmptySlot(t *testing.T) {
	ender := &fakeEnder{slots: map[string]domain.SlotRecord{}}
	emitted := &captured{}
	s := newSwipeSession(ender, emitted.add, nil)
	defer s.Close()

	swipeAcross(s, "P0009")

	assert.Empty(t, ender.ended)
	require.Len(t, emitted.results(), 1)
}
