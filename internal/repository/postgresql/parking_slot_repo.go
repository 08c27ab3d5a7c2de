package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"valet_parking/internal/domain"
	"valet_parking/internal/repository"

	"gopkg.in/guregu/null.v4"
)

const slotColumns = `slot_id, is_occupied, status, car_make, car_model, car_plate_number, customer_phone,
	valet_id, valet_name, timestamp_parked, timestamp_requested, timestamp_ready, timestamp_delivered, updated_at`

type pgParkingSlotRepository struct {
	db     *sql.DB
	notify bool
}

// NewPgParkingSlotRepository tạo repository. notify=true sẽ phát pg_notify sau mỗi lần ghi.
func NewPgParkingSlotRepository(db *sql.DB, notify bool) repository.SlotRepository {
	return &pgParkingSlotRepository{db: db, notify: notify}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*domain.SlotRecord, error) {
	slot := &domain.SlotRecord{}
	var status, make_, model, plate, phone, valetID, valetName null.String
	err := row.Scan(
		&slot.SlotID, &slot.IsOccupied, &status, &make_, &model, &plate, &phone,
		&valetID, &valetName,
		&slot.TimestampParked, &slot.TimestampRequested, &slot.TimestampReady, &slot.TimestampDelivered,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.Status = domain.SlotStatus(status.String)
	if make_.Valid {
		slot.Car = &domain.CarDetails{
			Make:          make_.String,
			Model:         model.String,
			PlateNumber:   plate.String,
			CustomerPhone: phone.String,
		}
	}
	slot.ValetID = valetID.String
	slot.ValetName = valetName.String
	normalizeTimes(slot)
	return slot, nil
}

func normalizeTimes(slot *domain.SlotRecord) {
	for _, ts := range []*null.Time{&slot.TimestampParked, &slot.TimestampRequested, &slot.TimestampReady, &slot.TimestampDelivered} {
		if ts.Valid {
			ts.Time = ts.Time.In(time.UTC)
		}
	}
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
}

// slotArgs trả về giá trị theo thứ tự cột (trừ updated_at).
func slotArgs(slot *domain.SlotRecord) []any {
	var make_, model, plate, phone null.String
	if slot.Car != nil {
		make_ = null.StringFrom(slot.Car.Make)
		model = null.StringFrom(slot.Car.Model)
		plate = null.StringFrom(slot.Car.PlateNumber)
		phone = null.StringFrom(slot.Car.CustomerPhone)
	}
	return []any{
		slot.SlotID, slot.IsOccupied, null.NewString(string(slot.Status), slot.Status != domain.StatusNone),
		make_, model, plate, phone,
		null.NewString(slot.ValetID, slot.ValetID != ""), null.NewString(slot.ValetName, slot.ValetName != ""),
		slot.TimestampParked, slot.TimestampRequested, slot.TimestampReady, slot.TimestampDelivered,
	}
}

func (r *pgParkingSlotRepository) FindByID(ctx context.Context, slotID string) (*domain.SlotRecord, error) {
	query := `SELECT ` + slotColumns + ` FROM parking_slots WHERE slot_id = $1`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSlotRepository.FindByID: %w", err)
	}
	return slot, nil
}

func (r *pgParkingSlotRepository) Find(ctx context.Context, filter domain.ParkingSlotFilter) ([]domain.SlotRecord, error) {
	var conds []string
	var args []any
	if filter.OccupiedOnly {
		conds = append(conds, "is_occupied = TRUE")
	}
	if filter.ValetID != "" {
		args = append(args, filter.ValetID)
		conds = append(conds, fmt.Sprintf("valet_id = $%d", len(args)))
	}
	query := `SELECT ` + slotColumns + ` FROM parking_slots`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY slot_id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.Find: %w", err)
	}
	defer rows.Close()

	var slots []domain.SlotRecord
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingSlotRepository.Find (scanning row): %w", err)
		}
		slots = append(slots, *slot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSlotRepository.Find (rows error): %w", err)
	}
	return slots, nil
}

// CreateIfVacant là compare-and-set: chỉ ghi đè khi bản ghi hiện tại không có xe.
func (r *pgParkingSlotRepository) CreateIfVacant(ctx context.Context, slot *domain.SlotRecord) error {
	query := `INSERT INTO parking_slots (slot_id, is_occupied, status, car_make, car_model, car_plate_number, customer_phone,
	               valet_id, valet_name, timestamp_parked, timestamp_requested, timestamp_ready, timestamp_delivered, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, CURRENT_TIMESTAMP)
	           ON CONFLICT (slot_id) DO UPDATE SET
	               is_occupied = EXCLUDED.is_occupied, status = EXCLUDED.status,
	               car_make = EXCLUDED.car_make, car_model = EXCLUDED.car_model,
	               car_plate_number = EXCLUDED.car_plate_number, customer_phone = EXCLUDED.customer_phone,
	               valet_id = EXCLUDED.valet_id, valet_name = EXCLUDED.valet_name,
	               timestamp_parked = EXCLUDED.timestamp_parked, timestamp_requested = EXCLUDED.timestamp_requested,
	               timestamp_ready = EXCLUDED.timestamp_ready, timestamp_delivered = EXCLUDED.timestamp_delivered,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE parking_slots.is_occupied = FALSE
	           RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, slotArgs(slot)...).Scan(&slot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrConflict
		}
		return fmt.Errorf("ParkingSlotRepository.CreateIfVacant: %w", err)
	}
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	r.publish(ctx, slot.SlotID)
	return nil
}

func (r *pgParkingSlotRepository) Update(ctx context.Context, slot *domain.SlotRecord) error {
	query := `UPDATE parking_slots
	           SET is_occupied = $2, status = $3, car_make = $4, car_model = $5, car_plate_number = $6,
	               customer_phone = $7, valet_id = $8, valet_name = $9,
	               timestamp_parked = $10, timestamp_requested = $11, timestamp_ready = $12,
	               timestamp_delivered = $13, updated_at = CURRENT_TIMESTAMP
	           WHERE slot_id = $1
	           RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, slotArgs(slot)...).Scan(&slot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("ParkingSlotRepository.Update: %w", err)
	}
	slot.UpdatedAt = slot.UpdatedAt.In(time.UTC)
	r.publish(ctx, slot.SlotID)
	return nil
}

// publish báo cho các instance khác qua NOTIFY. Lỗi ở đây không làm hỏng thao tác ghi.
func (r *pgParkingSlotRepository) publish(ctx context.Context, slotID string) {
	if !r.notify {
		return
	}
	if _, err := r.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, SlotChangesChannel, slotID); err != nil {
		repoLog.WithError(err).WithField("slot_id", slotID).Warn("pg_notify thất bại")
	}
}
