package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"valet_parking/internal/domain"
	"valet_parking/internal/logger"
	"valet_parking/internal/metrics"
)

const DefaultPollInterval = 10 * time.Second

// Poller gọi endpoint tổng hợp theo chu kỳ. Lỗi được ghi log và thử lại ở nhịp sau.
type Poller struct {
	client   *http.Client
	url      string
	interval time.Duration
	vm       *ViewModel
	log      *logrus.Entry
}

func NewPoller(client *http.Client, url string, interval time.Duration, vm *ViewModel) *Poller {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		url:      url,
		interval: interval,
		vm:       vm,
		log:      logger.WithComponent("dashboard_poller").WithField("url", url),
	}
}

func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

func (p *Poller) PollOnce(ctx context.Context) {
	start := time.Now()
	recs, err := p.fetch(ctx)
	metrics.PollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.PollFailures.Inc()
		p.log.WithError(err).Warn("Poll endpoint tổng hợp thất bại, giữ dữ liệu cũ")
	}
	p.vm.ApplyPoll(recs, err)
}

func (p *Poller) fetch(ctx context.Context) ([]domain.SlotRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	var recs []domain.SlotRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("giải mã phản hồi: %w", err)
	}
	return recs, nil
}
