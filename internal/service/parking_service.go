package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v4"

	"valet_parking/internal/domain"
	"valet_parking/internal/logger"
	"valet_parking/internal/metrics"
	"valet_parking/internal/repository"
)

const unknownValetName = "Unknown Valet"

// DeliveredMessage là nội dung gửi khách hàng khi kết thúc dịch vụ.
const DeliveredMessage = "Your car is ready at the doorstep!"

// SlotPublisher nhận bản ghi sau mỗi lần ghi thành công (feed.Hub).
type SlotPublisher interface {
	Publish(rec domain.SlotRecord)
}

// NotificationDispatcher gửi thông báo theo kiểu fire-and-forget.
type NotificationDispatcher interface {
	Dispatch(intent domain.NotificationIntent)
}

// ParkingService là engine vòng đời chỗ đỗ: park, request, markReady, endService, clear.
//
// Mỗi thao tác là một lần đọc rồi ghi. Riêng park dùng CreateIfVacant
// (compare-and-set) nên hai valet park cùng một chỗ trống sẽ chỉ có một người thành công.
// Các thao tác còn lại vẫn là last-writer-wins.
type ParkingService struct {
	slotRepo   repository.SlotRepository
	cycleRepo  repository.ServiceCycleRepository
	publisher  SlotPublisher
	dispatcher NotificationDispatcher
	now        func() time.Time
	log        *logrus.Entry

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewParkingService(
	slotRepo repository.SlotRepository,
	cycleRepo repository.ServiceCycleRepository,
	publisher SlotPublisher,
	dispatcher NotificationDispatcher,
) *ParkingService {
	return &ParkingService{
		slotRepo:   slotRepo,
		cycleRepo:  cycleRepo,
		publisher:  publisher,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        logger.WithComponent("parking_service"),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock thay nguồn thời gian, dùng trong test.
func (s *ParkingService) WithClock(now func() time.Time) *ParkingService {
	s.now = now
	return s
}

func (s *ParkingService) clock() time.Time {
	return s.now().UTC()
}

// GenerateSlotID sinh mã chỗ đỗ mới cho khách quét. Không kiểm tra trùng.
func (s *ParkingService) GenerateSlotID() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return domain.GenerateSlotID(s.rng)
}

// Park nhận xe vào chỗ đỗ. Đọc lại occupancy ngay trước khi ghi.
func (s *ParkingService) Park(ctx context.Context, req domain.ParkRequest, valet domain.Identity) (rec *domain.SlotRecord, err error) {
	defer func() { observe(domain.TriggerPark, err) }()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if valet.EmployeeID == "" {
		return nil, &ValidationError{Fields: map[string]string{"valetid": "required"}}
	}

	from := domain.StateEmpty
	cur, err := s.slotRepo.FindByID(ctx, req.SlotID)
	switch {
	case err == nil:
		if cur.IsOccupied {
			return nil, fmt.Errorf("%w: %s", ErrSlotOccupied, req.SlotID)
		}
		from = cur.State()
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, upstream("đọc chỗ đỗ", err)
	}
	if _, err := domain.Next(from, domain.TriggerPark); err != nil {
		return nil, err
	}

	valetName := valet.EmployeeName
	if valetName == "" {
		valetName = unknownValetName
	}
	now := s.clock()
	car := req.Car
	next := &domain.SlotRecord{
		SlotID:             req.SlotID,
		IsOccupied:         true,
		Status:             domain.StatusParked,
		Car:                &car,
		ValetID:            valet.EmployeeID,
		ValetName:          valetName,
		TimestampParked:    null.TimeFrom(now),
		TimestampRequested: null.TimeFrom(now),
	}
	if err := next.CheckInvariants(); err != nil {
		return nil, err
	}

	if err := s.slotRepo.CreateIfVacant(ctx, next); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %s", ErrSlotOccupied, req.SlotID)
		}
		return nil, upstream("ghi chỗ đỗ", err)
	}

	s.log.WithFields(logrus.Fields{"slot_id": next.SlotID, "valet_id": next.ValetID, "plate": car.PlateNumber}).Info("Đã nhận xe")
	s.publish(*next)
	return next, nil
}

// RequestCar đánh dấu khách hàng yêu cầu lấy xe. timestampRequested không bị ghi lại.
func (s *ParkingService) RequestCar(ctx context.Context, slotID string) (rec *domain.SlotRecord, err error) {
	defer func() { observe(domain.TriggerRequest, err) }()

	cur, err := s.loadOccupied(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.Next(cur.State(), domain.TriggerRequest); err != nil {
		return nil, err
	}
	cur.Status = domain.StatusRequested
	if !cur.TimestampRequested.Valid {
		cur.TimestampRequested = null.TimeFrom(s.clock())
	}
	if err := s.write(ctx, cur); err != nil {
		return nil, err
	}
	s.log.WithField("slot_id", slotID).Info("Khách hàng yêu cầu lấy xe")
	return cur, nil
}

// MarkReady cho phép từ mọi trạng thái đang có xe, kể cả PARKED.
func (s *ParkingService) MarkReady(ctx context.Context, slotID string) (rec *domain.SlotRecord, err error) {
	defer func() { observe(domain.TriggerMarkReady, err) }()

	cur, err := s.loadOccupied(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.Next(cur.State(), domain.TriggerMarkReady); err != nil {
		return nil, err
	}
	now := s.clock()
	if cur.TimestampRequested.Valid && now.Before(cur.TimestampRequested.Time) {
		// đồng hồ lệch: giữ ready >= requested
		now = cur.TimestampRequested.Time
	}
	cur.Status = domain.StatusReady
	if !cur.TimestampReady.Valid {
		// mỗi chu kỳ chỉ ghi timestampReady một lần
		cur.TimestampReady = null.TimeFrom(now)
	}
	if !cur.TimestampRequested.Valid {
		cur.TimestampRequested = null.TimeFrom(now)
	}
	if err := s.write(ctx, cur); err != nil {
		return nil, err
	}
	s.log.WithField("slot_id", slotID).Info("Xe đã sẵn sàng")
	return cur, nil
}

// EndService giao xe: giải phóng chỗ đỗ, giữ status DELIVERED và timestampDelivered,
// lưu chu kỳ vào lịch sử và gửi thông báo cho khách.
func (s *ParkingService) EndService(ctx context.Context, slotID string) (rec *domain.SlotRecord, err error) {
	defer func() { observe(domain.TriggerEndService, err) }()

	cur, err := s.loadOccupied(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.Next(cur.State(), domain.TriggerEndService); err != nil {
		return nil, err
	}
	now := s.clock()
	var phone string
	if cur.Car != nil {
		phone = cur.Car.CustomerPhone
	}

	closed := *cur
	closed.Status = domain.StatusDelivered
	closed.TimestampDelivered = null.TimeFrom(now)

	next := &domain.SlotRecord{
		SlotID:             cur.SlotID,
		Status:             domain.StatusDelivered,
		ValetID:            cur.ValetID,
		ValetName:          cur.ValetName,
		TimestampDelivered: null.TimeFrom(now),
	}
	if err := s.write(ctx, next); err != nil {
		return nil, err
	}
	s.archive(ctx, closed, domain.OutcomeDelivered, now)

	if phone != "" && s.dispatcher != nil {
		s.dispatcher.Dispatch(domain.NotificationIntent{
			ID:          uuid.NewString(),
			SlotID:      slotID,
			PhoneNumber: phone,
			Message:     DeliveredMessage,
			CreatedAt:   now,
		})
	}
	s.log.WithField("slot_id", slotID).Info("Đã giao xe cho khách")
	return next, nil
}

// Clear đưa chỗ đỗ về EMPTY từ bất kỳ trạng thái nào. Gọi lặp lại cho cùng kết quả.
func (s *ParkingService) Clear(ctx context.Context, slotID string) (rec *domain.SlotRecord, err error) {
	defer func() { observe(domain.TriggerClear, err) }()

	cur, err := s.load(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if _, err := domain.Next(cur.State(), domain.TriggerClear); err != nil {
		return nil, err
	}
	now := s.clock()
	next := domain.EmptyRecord(slotID)
	if err := s.write(ctx, &next); err != nil {
		return nil, err
	}
	if cur.IsOccupied {
		s.archive(ctx, *cur, domain.OutcomeCleared, now)
	}
	s.log.WithField("slot_id", slotID).Info("Đã giải phóng chỗ đỗ")
	return &next, nil
}

func (s *ParkingService) GetSlot(ctx context.Context, slotID string) (*domain.SlotRecord, error) {
	return s.load(ctx, slotID)
}

// ListOccupied trả về các chỗ đang có xe, REQUESTED lên đầu.
func (s *ParkingService) ListOccupied(ctx context.Context) ([]domain.SlotRecord, error) {
	recs, err := s.slotRepo.Find(ctx, domain.ParkingSlotFilter{OccupiedOnly: true})
	if err != nil {
		return nil, upstream("liệt kê chỗ đỗ", err)
	}
	domain.SortForDisplay(recs)
	return recs, nil
}

// AllSlots dùng để nạp feed lúc khởi động.
func (s *ParkingService) AllSlots(ctx context.Context) ([]domain.SlotRecord, error) {
	recs, err := s.slotRepo.Find(ctx, domain.ParkingSlotFilter{})
	if err != nil {
		return nil, upstream("liệt kê chỗ đỗ", err)
	}
	return recs, nil
}

// AllCars gộp các chu kỳ đã kết thúc và các xe đang đỗ, cho endpoint tổng hợp.
func (s *ParkingService) AllCars(ctx context.Context) ([]domain.ServiceCycle, error) {
	cycles, err := s.cycleRepo.FindAll(ctx)
	if err != nil {
		return nil, upstream("đọc lịch sử", err)
	}
	occupied, err := s.slotRepo.Find(ctx, domain.ParkingSlotFilter{OccupiedOnly: true})
	if err != nil {
		return nil, upstream("liệt kê chỗ đỗ", err)
	}
	for _, r := range occupied {
		cycles = append(cycles, domain.ServiceCycle{SlotRecord: r})
	}
	return cycles, nil
}

// CarsByValet giống AllCars nhưng chỉ lấy xe do một valet nhận.
func (s *ParkingService) CarsByValet(ctx context.Context, valetID string) ([]domain.ServiceCycle, error) {
	cycles, err := s.cycleRepo.FindByValetID(ctx, valetID)
	if err != nil {
		return nil, upstream("đọc lịch sử", err)
	}
	occupied, err := s.slotRepo.Find(ctx, domain.ParkingSlotFilter{OccupiedOnly: true, ValetID: valetID})
	if err != nil {
		return nil, upstream("liệt kê chỗ đỗ", err)
	}
	for _, r := range occupied {
		cycles = append(cycles, domain.ServiceCycle{SlotRecord: r})
	}
	return cycles, nil
}

func (s *ParkingService) load(ctx context.Context, slotID string) (*domain.SlotRecord, error) {
	cur, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
		}
		return nil, upstream("đọc chỗ đỗ", err)
	}
	return cur, nil
}

func (s *ParkingService) loadOccupied(ctx context.Context, slotID string) (*domain.SlotRecord, error) {
	cur, err := s.load(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !cur.IsOccupied {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotOccupied, slotID)
	}
	return cur, nil
}

func (s *ParkingService) write(ctx context.Context, rec *domain.SlotRecord) error {
	if err := rec.CheckInvariants(); err != nil {
		return err
	}
	if err := s.slotRepo.Update(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSlotNotFound, rec.SlotID)
		}
		return upstream("ghi chỗ đỗ", err)
	}
	s.publish(*rec)
	return nil
}

func (s *ParkingService) publish(rec domain.SlotRecord) {
	if s.publisher == nil {
		return
	}
	if rec.Car != nil {
		car := *rec.Car
		rec.Car = &car
	}
	s.publisher.Publish(rec)
}

// archive lưu chu kỳ đã đóng. Lỗi chỉ được ghi log: chỗ đỗ đã được cập nhật.
func (s *ParkingService) archive(ctx context.Context, rec domain.SlotRecord, outcome domain.CycleOutcome, closedAt time.Time) {
	if s.cycleRepo == nil {
		return
	}
	cycle := &domain.ServiceCycle{
		SlotRecord: rec,
		Outcome:    outcome,
		ClosedAt:   null.TimeFrom(closedAt),
	}
	cycle.IsOccupied = false
	if err := s.cycleRepo.Create(ctx, cycle); err != nil {
		s.log.WithError(err).WithField("slot_id", rec.SlotID).Warn("Không lưu được lịch sử chu kỳ")
	}
}

func observe(t domain.Trigger, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		result = "invalid"
	case errors.Is(err, ErrSlotOccupied):
		result = "occupied"
	case errors.Is(err, ErrSlotNotFound):
		result = "not_found"
	case errors.Is(err, ErrSlotNotOccupied), errors.Is(err, domain.ErrInvalidTransition):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.SlotTransitions.WithLabelValues(string(t), result).Inc()
}
