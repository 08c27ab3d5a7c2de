package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"valet_parking/internal/domain"
	"valet_parking/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

const cycleColumns = `cycle_id, slot_id, outcome, status, car_make, car_model, car_plate_number, customer_phone,
	valet_id, valet_name, timestamp_parked, timestamp_requested, timestamp_ready, timestamp_delivered, closed_at`

type pgServiceCycleRepository struct {
	db *sql.DB
}

func NewPgServiceCycleRepository(db *sql.DB) repository.ServiceCycleRepository {
	return &pgServiceCycleRepository{db: db}
}

func (r *pgServiceCycleRepository) Create(ctx context.Context, cycle *domain.ServiceCycle) error {
	if cycle.CycleID == "" {
		cycle.CycleID = uuid.NewString()
	}
	query := `INSERT INTO service_cycles (` + cycleColumns + `)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	// slotArgs: slot_id, is_occupied, status, car..., valet..., timestamps
	slot := slotArgs(&cycle.SlotRecord)
	args := []any{cycle.CycleID, slot[0], string(cycle.Outcome)}
	args = append(args, slot[2:]...)
	args = append(args, cycle.ClosedAt)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("ServiceCycleRepository.Create: %w", err)
	}
	return nil
}

func (r *pgServiceCycleRepository) FindAll(ctx context.Context) ([]domain.ServiceCycle, error) {
	return r.query(ctx, "FindAll", `SELECT `+cycleColumns+` FROM service_cycles ORDER BY closed_at`)
}

func (r *pgServiceCycleRepository) FindByValetID(ctx context.Context, valetID string) ([]domain.ServiceCycle, error) {
	return r.query(ctx, "FindByValetID", `SELECT `+cycleColumns+` FROM service_cycles WHERE valet_id = $1 ORDER BY closed_at`, valetID)
}

func (r *pgServiceCycleRepository) query(ctx context.Context, op string, query string, args ...any) ([]domain.ServiceCycle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ServiceCycleRepository.%s: %w", op, err)
	}
	defer rows.Close()

	var cycles []domain.ServiceCycle
	for rows.Next() {
		var c domain.ServiceCycle
		var status, make_, model, plate, phone, valetID, valetName null.String
		if err := rows.Scan(
			&c.CycleID, &c.SlotID, &c.Outcome, &status, &make_, &model, &plate, &phone,
			&valetID, &valetName,
			&c.TimestampParked, &c.TimestampRequested, &c.TimestampReady, &c.TimestampDelivered,
			&c.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("ServiceCycleRepository.%s (scanning row): %w", op, err)
		}
		c.Status = domain.SlotStatus(status.String)
		if make_.Valid {
			c.Car = &domain.CarDetails{Make: make_.String, Model: model.String, PlateNumber: plate.String, CustomerPhone: phone.String}
		}
		c.ValetID = valetID.String
		c.ValetName = valetName.String
		normalizeTimes(&c.SlotRecord)
		if c.ClosedAt.Valid {
			c.ClosedAt.Time = c.ClosedAt.Time.In(time.UTC)
			c.UpdatedAt = c.ClosedAt.Time
		}
		cycles = append(cycles, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ServiceCycleRepository.%s (rows error): %w", op, err)
	}
	return cycles, nil
}
