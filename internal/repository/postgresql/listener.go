package postgresql

import (
	"context"
	"errors"
	"time"
	"valet_parking/internal/domain"
	"valet_parking/internal/logger"
	"valet_parking/internal/repository"

	"github.com/lib/pq"
)

var repoLog = logger.WithComponent("postgresql")

// SlotSink nhận các bản ghi thay đổi từ database (thường là feed.Hub).
type SlotSink interface {
	Publish(rec domain.SlotRecord)
	Seed(recs []domain.SlotRecord)
}

// Listener dùng LISTEN/NOTIFY của lib/pq để đẩy thay đổi của các instance khác vào feed.
// Ngoài notification, Listener đọc lại toàn bộ sau mỗi resyncEvery.
type Listener struct {
	dsn         string
	repo        repository.SlotRepository
	sink        SlotSink
	resyncEvery time.Duration
}

func NewListener(dsn string, repo repository.SlotRepository, sink SlotSink) *Listener {
	return &Listener{dsn: dsn, repo: repo, sink: sink, resyncEvery: 90 * time.Second}
}

func (l *Listener) Start(ctx context.Context) error {
	pl := pq.NewListener(l.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			repoLog.WithError(err).WithField("event", ev).Warn("Listener: sự kiện kết nối")
		}
	})
	defer pl.Close()

	if err := pl.Listen(SlotChangesChannel); err != nil {
		return err
	}
	repoLog.WithField("channel", SlotChangesChannel).Info("Listener: đang lắng nghe thay đổi chỗ đỗ")

	ticker := time.NewTicker(l.resyncEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			repoLog.Info("Listener: context cancelled, stopping.")
			return nil
		case n := <-pl.Notify:
			if n == nil {
				// Kết nối vừa được thiết lập lại, có thể đã mất notification.
				l.resync(ctx)
				continue
			}
			l.refresh(ctx, n.Extra)
		case <-ticker.C:
			if err := pl.Ping(); err != nil {
				repoLog.WithError(err).Warn("Listener: ping thất bại")
			}
			l.resync(ctx)
		}
	}
}

func (l *Listener) refresh(ctx context.Context, slotID string) {
	rec, err := l.repo.FindByID(ctx, slotID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			repoLog.WithError(err).WithField("slot_id", slotID).Warn("Listener: không đọc được slot")
		}
		return
	}
	l.sink.Publish(*rec)
}

func (l *Listener) resync(ctx context.Context) {
	recs, err := l.repo.Find(ctx, domain.ParkingSlotFilter{})
	if err != nil {
		repoLog.WithError(err).Warn("Listener: resync thất bại")
		return
	}
	l.sink.Seed(recs)
}
