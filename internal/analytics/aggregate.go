// Package analytics tính các số liệu dashboard từ tập SlotRecord. Mọi hàm đều thuần:
// cùng đầu vào cho cùng kết quả, không đọc đồng hồ.
package analytics

import (
	"math"
	"sort"
	"strings"

	"valet_parking/internal/domain"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

type StatusHistogram struct {
	Parked    int `json:"parked"`
	Requested int `json:"requested"`
	Ready     int `json:"ready"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// ValetSummary là thẻ hiệu suất của một valet trên dashboard admin.
type ValetSummary struct {
	ValetID     string         `json:"valetId"`
	ValetName   string         `json:"valetName"`
	TotalParked int            `json:"totalParked"`
	Daily       []DailyCount   `json:"daily"`
	Monthly     []MonthlyCount `json:"monthly"`
}

func statusIs(r domain.SlotRecord, s domain.SlotStatus) bool {
	return strings.EqualFold(string(r.Status), string(s))
}

// Histogram đếm các chỗ đang có xe theo status. Status khác bị bỏ qua.
func Histogram(records []domain.SlotRecord) StatusHistogram {
	var h StatusHistogram
	for _, r := range records {
		if !r.IsOccupied {
			continue
		}
		switch {
		case statusIs(r, domain.StatusParked):
			h.Parked++
		case statusIs(r, domain.StatusRequested):
			h.Requested++
		case statusIs(r, domain.StatusReady):
			h.Ready++
		}
	}
	return h
}

func bucket(records []domain.SlotRecord, layout string) ([]string, map[string]int) {
	counts := make(map[string]int)
	for _, r := range records {
		if !r.TimestampParked.Valid {
			continue
		}
		counts[r.TimestampParked.Time.UTC().Format(layout)]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, counts
}

// DailySeries đếm số xe theo ngày UTC của timestampParked, tăng dần theo ngày.
func DailySeries(records []domain.SlotRecord) []DailyCount {
	keys, counts := bucket(records, dayLayout)
	out := make([]DailyCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, DailyCount{Date: k, Count: counts[k]})
	}
	return out
}

func MonthlySeries(records []domain.SlotRecord) []MonthlyCount {
	keys, counts := bucket(records, monthLayout)
	out := make([]MonthlyCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, MonthlyCount{Month: k, Count: counts[k]})
	}
	return out
}

// AverageCycleMinutes là thời gian trung bình từ lúc yêu cầu tới lúc sẵn sàng, làm tròn
// 2 chữ số. Chỉ tính các bản ghi READY có thời lượng dương; 0 nếu không có.
func AverageCycleMinutes(records []domain.SlotRecord) float64 {
	var total float64
	var n int
	for _, r := range records {
		if !statusIs(r, domain.StatusReady) || !r.TimestampRequested.Valid || !r.TimestampReady.Valid {
			continue
		}
		d := r.TimestampReady.Time.Sub(r.TimestampRequested.Time).Minutes()
		if d <= 0 {
			continue
		}
		total += d
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(total/float64(n)*100) / 100
}

func DeliveredCount(records []domain.SlotRecord) int {
	n := 0
	for _, r := range records {
		if statusIs(r, domain.StatusDelivered) {
			n++
		}
	}
	return n
}

// Summarize tính thẻ hiệu suất cho một valet từ các xe do họ nhận.
func Summarize(valetID, valetName string, records []domain.SlotRecord) ValetSummary {
	var mine []domain.SlotRecord
	for _, r := range records {
		if r.ValetID == valetID {
			mine = append(mine, r)
		}
	}
	total := 0
	for _, r := range mine {
		if r.TimestampParked.Valid {
			total++
		}
	}
	return ValetSummary{
		ValetID:     valetID,
		ValetName:   valetName,
		TotalParked: total,
		Daily:       DailySeries(mine),
		Monthly:     MonthlySeries(mine),
	}
}
