package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"valet_parking/internal/api/middleware"
	"valet_parking/internal/domain"
	"valet_parking/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(as *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var dto domain.RegisterEmployeeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	emp, err := h.authService.Register(c.Request.Context(), dto)
	if err != nil {
		respondError(c, "Registration failed. Please try again.", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  fmt.Sprintf("Registration successful! Welcome, %s. You are now a %s.", emp.EmployeeName, emp.Role),
		"employee": emp,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), dto)
	if err != nil {
		respondError(c, "Lỗi đăng nhập", err)
		return
	}
	c.JSON(http.StatusOK, authResponse)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	h.authService.Logout(id, middleware.TokenExpiry(c))
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

// GET /api/v1/me
func (h *AuthHandler) Me(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	emp, err := h.authService.Profile(c.Request.Context(), id.EmployeeID)
	if err != nil {
		respondError(c, "Không thể tải hồ sơ người dùng", err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// POST /api/v1/employees (admin)
func (h *AuthHandler) AddEmployee(c *gin.Context) {
	var dto domain.RegisterEmployeeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill all fields for the new employee."})
		return
	}
	emp, err := h.authService.AddEmployee(c.Request.Context(), dto)
	if err != nil {
		respondError(c, "Failed to add employee.", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  fmt.Sprintf("Successfully added new valet employee: %s", emp.EmployeeName),
		"employee": emp,
	})
}

// GET /api/v1/employees/valets (admin)
func (h *AuthHandler) ListValets(c *gin.Context) {
	valets, err := h.authService.ListValets(c.Request.Context())
	if err != nil {
		respondError(c, "Không thể lấy danh sách valet", err)
		return
	}
	c.JSON(http.StatusOK, valets)
}
