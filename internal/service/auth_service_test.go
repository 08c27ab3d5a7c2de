package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valet_parking/internal/domain"
	"valet_parking/internal/repository/memory"
)

func newAuth() *AuthService {
	return NewAuthService(memory.NewEmployeeRepository(), "test-secret", time.Hour)
}

func register(t *testing.T, s *AuthService, email string, role domain.Role) *domain.EmployeeProfile {
	t.Helper()
	emp, err := s.Register(context.Background(), domain.RegisterEmployeeDTO{
		Email:        email,
		Password:     "secret123",
		EmployeeName: "Bình",
		Role:         role,
	})
	require.NoError(t, err)
	return emp
}

func TestRegister_DefaultsToValetAndRejectsDuplicate(t *testing.T) {
	s := newAuth()
	emp := register(t, s, "binh@example.com", "")
	assert.Equal(t, domain.RoleValet, emp.Role)
	assert.Empty(t, emp.PasswordHash)
	assert.NotEmpty(t, emp.ID)

	_, err := s.Register(context.Background(), domain.RegisterEmployeeDTO{
		Email: "BINH@example.com", Password: "secret123", EmployeeName: "Khác",
	})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_Validation(t *testing.T) {
	s := newAuth()
	_, err := s.Register(context.Background(), domain.RegisterEmployeeDTO{
		Email: "not-an-email", Password: "123", EmployeeName: "X", Role: "boss",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestLogin_IssuesTokenThatValidates(t *testing.T) {
	s := newAuth()
	emp := register(t, s, "admin@example.com", domain.RoleAdmin)

	resp, err := s.Login(context.Background(), domain.LoginDTO{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, emp.ID, resp.EmployeeID)
	assert.Equal(t, domain.RoleAdmin, resp.Role)

	id, exp, err := s.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, emp.ID, id.EmployeeID)
	assert.Equal(t, "Bình", id.EmployeeName)
	assert.Equal(t, domain.RoleAdmin, id.Role)
	assert.NotEmpty(t, id.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newAuth()
	register(t, s, "a@example.com", "")

	_, err := s.Login(context.Background(), domain.LoginDTO{Email: "a@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(context.Background(), domain.LoginDTO{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_RejectsForeignAndExpired(t *testing.T) {
	s := newAuth()
	register(t, s, "a@example.com", "")
	resp, err := s.Login(context.Background(), domain.LoginDTO{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	other := NewAuthService(memory.NewEmployeeRepository(), "other-secret", time.Hour)
	_, _, err = other.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, _, err = s.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = s.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLogout_RevokesToken(t *testing.T) {
	s := newAuth()
	register(t, s, "a@example.com", "")
	resp, err := s.Login(context.Background(), domain.LoginDTO{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	id, exp, err := s.ValidateToken(resp.Token)
	require.NoError(t, err)
	s.Logout(id, exp)

	_, _, err = s.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAddEmployeeAndListValets(t *testing.T) {
	s := newAuth()
	register(t, s, "admin@example.com", domain.RoleAdmin)
	emp, err := s.AddEmployee(context.Background(), domain.RegisterEmployeeDTO{
		Email: "v@example.com", Password: "secret123", EmployeeName: "Valet", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleValet, emp.Role)

	valets, err := s.ListValets(context.Background())
	require.NoError(t, err)
	require.Len(t, valets, 1)
	assert.Equal(t, "v@example.com", valets[0].Email)
	assert.Empty(t, valets[0].PasswordHash)

	prof, err := s.Profile(context.Background(), emp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Valet", prof.EmployeeName)
}
