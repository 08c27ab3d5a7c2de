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

	"github.com/google/uuid"
)

type pgEmployeeRepository struct {
	db *sql.DB
}

func NewPgEmployeeRepository(db *sql.DB) repository.EmployeeRepository {
	return &pgEmployeeRepository{db: db}
}

func (r *pgEmployeeRepository) Create(ctx context.Context, e *domain.EmployeeProfile) (*domain.EmployeeProfile, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `INSERT INTO employees (id, email, password_hash, role, employee_name, registered_at)
	           VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
	           RETURNING registered_at`
	err := r.db.QueryRowContext(ctx, query, e.ID, strings.ToLower(e.Email), e.PasswordHash, string(e.Role), e.EmployeeName).Scan(&e.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err, "employees_email_key") {
			return nil, fmt.Errorf("%w: email '%s' đã được đăng ký", repository.ErrDuplicateEntry, e.Email)
		}
		return nil, fmt.Errorf("EmployeeRepository.Create: %w", err)
	}
	e.RegisteredAt = e.RegisteredAt.In(time.UTC)
	return e, nil
}

func (r *pgEmployeeRepository) FindByEmail(ctx context.Context, email string) (*domain.EmployeeProfile, error) {
	query := `SELECT id, email, password_hash, role, employee_name, registered_at FROM employees WHERE email = $1`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("EmployeeRepository.FindByEmail: %w", err)
	}
	return e, nil
}

func (r *pgEmployeeRepository) FindByID(ctx context.Context, id string) (*domain.EmployeeProfile, error) {
	query := `SELECT id, email, password_hash, role, employee_name, registered_at FROM employees WHERE id = $1`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("EmployeeRepository.FindByID: %w", err)
	}
	return e, nil
}

func (r *pgEmployeeRepository) FindByRole(ctx context.Context, role domain.Role) ([]domain.EmployeeProfile, error) {
	query := `SELECT id, email, password_hash, role, employee_name, registered_at
	           FROM employees WHERE role = $1 ORDER BY registered_at`
	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("EmployeeRepository.FindByRole: %w", err)
	}
	defer rows.Close()

	var out []domain.EmployeeProfile
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("EmployeeRepository.FindByRole (scanning row): %w", err)
		}
		out = append(out, *e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("EmployeeRepository.FindByRole (rows error): %w", err)
	}
	return out, nil
}

func scanEmployee(row rowScanner) (*domain.EmployeeProfile, error) {
	e := &domain.EmployeeProfile{}
	if err := row.Scan(&e.ID, &e.Email, &e.PasswordHash, &e.Role, &e.EmployeeName, &e.RegisteredAt); err != nil {
		return nil, err
	}
	e.RegisteredAt = e.RegisteredAt.In(time.UTC)
	return e, nil
}
