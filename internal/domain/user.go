package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleValet Role = "valet"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleValet
}

// EmployeeProfile chỉ đọc sau khi đăng ký.
type EmployeeProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Không bao giờ trả về password hash trong JSON
	Role         Role      `json:"role"`
	EmployeeName string    `json:"employeeName"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type RegisterEmployeeDTO struct {
	Email        string `json:"email" binding:"required" validate:"required,email,max=254"`
	Password     string `json:"password" binding:"required" validate:"required,min=6,max=100"`
	EmployeeName string `json:"employeeName" binding:"required" validate:"required,max=100"`
	Role         Role   `json:"role,omitempty" validate:"omitempty,oneof=admin valet"` // mặc định "valet"
}

type LoginDTO struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token        string `json:"token"`
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	Role         Role   `json:"role"`
}

// Identity là người dùng đã xác thực, lấy từ JWT.
type Identity struct {
	EmployeeID   string
	EmployeeName string
	Role         Role
	TokenID      string
}
