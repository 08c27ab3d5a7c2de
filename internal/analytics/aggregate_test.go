package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"valet_parking/internal/domain"
)

func parkedAt(valet string, ts time.Time) domain.SlotRecord {
	return domain.SlotRecord{
		IsOccupied:      true,
		Status:          domain.StatusParked,
		ValetID:         valet,
		TimestampParked: null.TimeFrom(ts),
	}
}

func TestDailySeries_SortedAscending(t *testing.T) {
	recs := []domain.SlotRecord{
		parkedAt("v1", time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)),
		parkedAt("v1", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)),
		parkedAt("v1", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		parkedAt("v1", time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)),
		{SlotID: "P0009"},
	}
	assert.Equal(t, []DailyCount{
		{Date: "2024-01-01", Count: 3},
		{Date: "2024-01-02", Count: 1},
	}, DailySeries(recs))

	b, err := json.Marshal(DailySeries(recs))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2024-01-01","count":3},{"date":"2024-01-02","count":1}]`, string(b))
}

func TestDailySeries_UsesUTCDate(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	recs := []domain.SlotRecord{parkedAt("v1", time.Date(2024, 1, 2, 3, 0, 0, 0, ict))}
	assert.Equal(t, []DailyCount{{Date: "2024-01-01", Count: 1}}, DailySeries(recs))
}

func TestMonthlySeries(t *testing.T) {
	recs := []domain.SlotRecord{
		parkedAt("v1", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
		parkedAt("v1", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
		parkedAt("v1", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)),
	}
	assert.Equal(t, []MonthlyCount{
		{Month: "2023-12", Count: 1},
		{Month: "2024-02", Count: 2},
	}, MonthlySeries(recs))
}

func TestAverageCycleMinutes_ExcludesZeroDuration(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	recs := []domain.SlotRecord{
		{IsOccupied: true, Status: domain.StatusReady, TimestampRequested: null.TimeFrom(base), TimestampReady: null.TimeFrom(base.Add(5 * time.Minute))},
		{IsOccupied: true, Status: domain.StatusReady, TimestampRequested: null.TimeFrom(base), TimestampReady: null.TimeFrom(base)},
	}
	assert.Equal(t, 5.00, AverageCycleMinutes(recs))
}

func TestAverageCycleMinutes_RoundingAndEmpty(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	recs := []domain.SlotRecord{
		{Status: domain.StatusReady, TimestampRequested: null.TimeFrom(base), TimestampReady: null.TimeFrom(base.Add(time.Minute))},
		{Status: domain.StatusReady, TimestampRequested: null.TimeFrom(base), TimestampReady: null.TimeFrom(base.Add(time.Minute + 20*time.Second))},
		{Status: domain.StatusParked, TimestampRequested: null.TimeFrom(base), TimestampReady: null.TimeFrom(base.Add(time.Hour))},
	}
	assert.Equal(t, 1.17, AverageCycleMinutes(recs))
	assert.Zero(t, AverageCycleMinutes(nil))
}

func TestHistogram_OnlyOccupiedKnownStatuses(t *testing.T) {
	recs := []domain.SlotRecord{
		{IsOccupied: true, Status: domain.StatusParked},
		{IsOccupied: true, Status: "parked"},
		{IsOccupied: true, Status: domain.StatusRequested},
		{IsOccupied: true, Status: domain.StatusReady},
		{IsOccupied: false, Status: domain.StatusDelivered},
		{IsOccupied: true, Status: "WASHING"},
	}
	assert.Equal(t, StatusHistogram{Parked: 2, Requested: 1, Ready: 1}, Histogram(recs))
	assert.Equal(t, 1, DeliveredCount(recs))
}

func TestSummarize(t *testing.T) {
	recs := []domain.SlotRecord{
		parkedAt("v1", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)),
		parkedAt("v2", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)),
		parkedAt("v1", time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)),
	}
	s := Summarize("v1", "An", recs)
	assert.Equal(t, 2, s.TotalParked)
	assert.Len(t, s.Daily, 2)
	assert.Equal(t, []MonthlyCount{{Month: "2024-01", Count: 1}, {Month: "2024-02", Count: 1}}, s.Monthly)

	empty := Summarize("nobody", "", recs)
	assert.Zero(t, empty.TotalParked)
	assert.Empty(t, empty.Daily)
}
