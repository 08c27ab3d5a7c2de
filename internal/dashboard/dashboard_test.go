package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"valet_parking/internal/domain"
)

const pollBody = `[
 {"id":"P0001","isOccupied":false,"status":"DELIVERED","valetId":"v1","timestampParked":"2024-01-01T08:00:00Z","outcome":"delivered"},
 {"id":"P0002","isOccupied":true,"status":"PARKED","valetId":"v1","timestampParked":"2024-01-02T08:00:00Z"},
 {"id":"P0003","isOccupied":false,"status":"DELIVERED","valetId":"v2","timestampParked":"2024-02-01T08:00:00Z"}
]`

var valets = []domain.EmployeeProfile{
	{ID: "v1", EmployeeName: "An", Role: domain.RoleValet},
	{ID: "v2", EmployeeName: "Bình", Role: domain.RoleValet},
}

func TestPoller_UpdatesAdminView(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pollBody))
	}))
	defer srv.Close()

	vm := NewViewModel()
	NewPoller(srv.Client(), srv.URL, time.Second, vm).PollOnce(context.Background())

	view := vm.AdminView(valets)
	assert.Equal(t, 2, view.TotalDelivered)
	assert.Equal(t, 2, view.TotalValets)
	require.Len(t, view.Valets, 2)
	assert.Equal(t, 2, view.Valets[0].TotalParked)
	assert.Equal(t, 1, view.Valets[1].TotalParked)
	assert.Empty(t, view.PollError)
	assert.False(t, view.PolledAt.IsZero())
}

func TestPoller_FailureKeepsPreviousValue(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(pollBody))
	}))
	defer srv.Close()

	vm := NewViewModel()
	p := NewPoller(srv.Client(), srv.URL, time.Second, vm)
	p.PollOnce(context.Background())
	before := vm.AdminView(valets)

	fail.Store(true)
	p.PollOnce(context.Background())
	after := vm.AdminView(valets)

	assert.Equal(t, before.TotalDelivered, after.TotalDelivered)
	assert.Equal(t, before.PolledAt, after.PolledAt)
	assert.Contains(t, after.PollError, "503")
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewPoller(srv.Client(), srv.URL, 10*time.Millisecond, NewViewModel()).Run(ctx) }()

	assert.Eventually(t, func() bool { return hits.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller không dừng")
	}
}

func TestViewModel_LiveAndPollAreIndependent(t *testing.T) {
	vm := NewViewModel()
	ts := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	vm.ApplyLive([]domain.SlotRecord{
		{SlotID: "P0001", IsOccupied: true, Status: domain.StatusParked},
		{SlotID: "P0002", IsOccupied: true, Status: domain.StatusRequested},
		{SlotID: "P0003", IsOccupied: true, Status: domain.StatusReady,
			TimestampRequested: null.TimeFrom(ts), TimestampReady: null.TimeFrom(ts.Add(3 * time.Minute))},
	})
	vm.ApplyPoll(nil, errors.New("timeout"))

	v := vm.ValetView()
	require.Len(t, v.Cars, 3)
	assert.Equal(t, "P0002", v.Cars[0].SlotID)
	assert.Equal(t, 1, v.Histogram.Parked)
	assert.Equal(t, 1, v.Histogram.Requested)
	assert.Equal(t, 1, v.Histogram.Ready)
	assert.Equal(t, 3.0, v.AvgRequestToReady)

	admin := vm.AdminView(nil)
	assert.Zero(t, admin.TotalDelivered)
	assert.Equal(t, "timeout", admin.PollError)
}

func TestViewModel_RunAppliesUpdates(t *testing.T) {
	vm := NewViewModel()
	updates := make(chan []domain.SlotRecord, 1)
	updates <- []domain.SlotRecord{{SlotID: "P0001", IsOccupied: true, Status: domain.StatusParked}}
	close(updates)

	require.NoError(t, vm.Run(context.Background(), updates))
	assert.Len(t, vm.ValetView().Cars, 1)
}
