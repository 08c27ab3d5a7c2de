package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"valet_parking/internal/domain"
	"valet_parking/internal/logger"
	"valet_parking/internal/metrics"
)

const (
	defaultQueueSize = 64
	notifyTimeout    = 10 * time.Second
)

// Dispatcher gửi thông báo bất đồng bộ. Khi hàng đợi đầy, thông báo bị bỏ.
type Dispatcher struct {
	notifier Notifier
	queue    chan domain.NotificationIntent
	log      *logrus.Entry

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(n Notifier, size int) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Dispatcher{
		notifier: n,
		queue:    make(chan domain.NotificationIntent, size),
		log:      logger.WithComponent("notify"),
		done:     make(chan struct{}),
	}
}

// Dispatch không bao giờ chặn người gọi.
func (d *Dispatcher) Dispatch(intent domain.NotificationIntent) {
	select {
	case <-d.done:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return
	default:
	}
	select {
	case d.queue <- intent:
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		d.log.WithField("slot_id", intent.SlotID).Warn("Hàng đợi thông báo đầy, bỏ qua")
	}
}

// Run xử lý hàng đợi tới khi ctx bị huỷ, sau đó gửi nốt phần còn lại.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.closeOnce.Do(func() { close(d.done) })
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return nil
		case intent := <-d.queue:
			d.send(context.Background(), intent)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case intent := <-d.queue:
			d.send(context.Background(), intent)
		default:
			return
		}
	}
}

func (d *Dispatcher) send(parent context.Context, intent domain.NotificationIntent) {
	ctx, cancel := context.WithTimeout(parent, notifyTimeout)
	defer cancel()
	if err := d.notifier.Notify(ctx, intent); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		d.log.WithError(err).WithField("slot_id", intent.SlotID).Error("Gửi thông báo thất bại")
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}
