package domain

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func TestTransitionTable(t *testing.T) {
	want := map[SlotState]map[Trigger]SlotState{
		StateEmpty:     {TriggerPark: StateParked, TriggerClear: StateEmpty},
		StateParked:    {TriggerRequest: StateRequested, TriggerMarkReady: StateReady, TriggerEndService: StateDelivered, TriggerClear: StateEmpty},
		StateRequested: {TriggerRequest: StateRequested, TriggerMarkReady: StateReady, TriggerEndService: StateDelivered, TriggerClear: StateEmpty},
		StateReady:     {TriggerMarkReady: StateReady, TriggerEndService: StateDelivered, TriggerClear: StateEmpty},
		StateDelivered: {TriggerPark: StateParked, TriggerClear: StateEmpty},
	}

	for _, from := range AllStates() {
		for _, trig := range AllTriggers() {
			to, err := Next(from, trig)
			expected, ok := want[from][trig]
			if !ok {
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s --%s-->", from, trig)
				continue
			}
			require.NoError(t, err, "%s --%s-->", from, trig)
			assert.Equal(t, expected, to, "%s --%s-->", from, trig)
		}
	}
}

func TestClearIsValidFromEveryState(t *testing.T) {
	for _, s := range AllStates() {
		to, err := Next(s, TriggerClear)
		require.NoError(t, err)
		assert.Equal(t, StateEmpty, to)
	}
}

func TestRecordState(t *testing.T) {
	car := &CarDetails{Make: "Toyota", Model: "Camry", PlateNumber: "KA01", CustomerPhone: "+910000000000"}
	cases := []struct {
		name string
		rec  SlotRecord
		want SlotState
	}{
		{"empty", EmptyRecord("P0001"), StateEmpty},
		{"delivered", SlotRecord{SlotID: "P0001", Status: StatusDelivered}, StateDelivered},
		{"parked", SlotRecord{SlotID: "P0001", IsOccupied: true, Status: StatusParked, Car: car}, StateParked},
		{"requested", SlotRecord{SlotID: "P0001", IsOccupied: true, Status: StatusRequested, Car: car}, StateRequested},
		{"ready", SlotRecord{SlotID: "P0001", IsOccupied: true, Status: StatusReady, Car: car}, StateReady},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.rec.State())
		})
	}
}

func TestCheckInvariants(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	car := &CarDetails{Make: "Honda", Model: "City", PlateNumber: "MH12", CustomerPhone: "+911111111111"}

	ok := []SlotRecord{
		EmptyRecord("P0001"),
		{SlotID: "P0001", Status: StatusDelivered, TimestampDelivered: null.TimeFrom(now)},
		{SlotID: "P0001", IsOccupied: true, Status: StatusParked, Car: car, TimestampParked: null.TimeFrom(now), TimestampRequested: null.TimeFrom(now)},
		{SlotID: "P0001", IsOccupied: true, Status: StatusReady, Car: car, TimestampRequested: null.TimeFrom(now), TimestampReady: null.TimeFrom(now.Add(time.Minute))},
	}
	for _, r := range ok {
		assert.NoError(t, r.CheckInvariants(), "%+v", r)
	}

	bad := []SlotRecord{
		{SlotID: "P0001", Car: car},
		{SlotID: "P0001", TimestampParked: null.TimeFrom(now)},
		{SlotID: "P0001", Status: StatusReady},
		{SlotID: "P0001", Status: StatusDelivered},
		{SlotID: "P0001", IsOccupied: true, Status: StatusParked},
		{SlotID: "P0001", IsOccupied: true, Status: StatusReady, Car: car, TimestampRequested: null.TimeFrom(now)},
		{SlotID: "P0001", IsOccupied: true, Status: StatusReady, Car: car, TimestampRequested: null.TimeFrom(now), TimestampReady: null.TimeFrom(now.Add(-time.Second))},
	}
	for _, r := range bad {
		err := r.CheckInvariants()
		assert.True(t, errors.Is(err, ErrInvariantViolated), "%+v", r)
	}
}

func TestSortForDisplay_RequestedFirstStable(t *testing.T) {
	recs := []SlotRecord{
		{SlotID: "A", Status: StatusParked},
		{SlotID: "B", Status: StatusRequested},
		{SlotID: "C", Status: StatusReady},
		{SlotID: "D", Status: StatusRequested},
		{SlotID: "E", Status: StatusParked},
	}
	SortForDisplay(recs)

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.SlotID
	}
	assert.Equal(t, []string{"B", "D", "A", "C", "E"}, ids)
}

func TestGenerateSlotID(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		id := GenerateSlotID(rng)
		assert.True(t, IsValidSlotID(id), id)
	}
	assert.False(t, IsValidSlotID("P001"))
	assert.False(t, IsValidSlotID("X0001"))
	assert.True(t, IsValidSlotID("P0000"))
}
