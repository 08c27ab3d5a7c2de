package postgresql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "employees_email_key"}
	pqErr := &pq.Error{Code: "23505", Constraint: "employees_email_key"}

	assert.True(t, isUniqueViolation(fmt.Errorf("wrap: %w", pgxErr), "employees_email_key"))
	assert.True(t, isUniqueViolation(pqErr, "employees_email_key"))
	assert.True(t, isUniqueViolation(pqErr, ""))
	assert.False(t, isUniqueViolation(pqErr, "other_key"))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
}
