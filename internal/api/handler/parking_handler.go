package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"valet_parking/internal/analytics"
	"valet_parking/internal/api/middleware"
	"valet_parking/internal/dashboard"
	"valet_parking/internal/domain"
	"valet_parking/internal/service"
)

// ParkingHandler phục vụ endpoint tổng hợp và các dashboard.
type ParkingHandler struct {
	parkingService *service.ParkingService
	authService    *service.AuthService
	viewModel      *dashboard.ViewModel
}

func NewParkingHandler(ps *service.ParkingService, as *service.AuthService, vm *dashboard.ViewModel) *ParkingHandler {
	return &ParkingHandler{parkingService: ps, authService: as, viewModel: vm}
}

// GET /api/cars/occupied
// Trả về mọi xe đang đỗ và đã giao. Số điện thoại khách bị ẩn.
func (h *ParkingHandler) OccupiedCars(c *gin.Context) {
	cycles, err := h.parkingService.AllCars(c.Request.Context())
	if err != nil {
		respondError(c, "Không thể lấy danh sách xe", err)
		return
	}
	out := make([]domain.ServiceCycle, 0, len(cycles))
	for _, cy := range cycles {
		out = append(out, cy.Redacted())
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/v1/dashboard/valet
func (h *ParkingHandler) ValetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.viewModel.ValetView())
}

// GET /api/v1/dashboard/admin
func (h *ParkingHandler) AdminDashboard(c *gin.Context) {
	valets, err := h.authService.ListValets(c.Request.Context())
	if err != nil {
		respondError(c, "Không thể lấy danh sách valet", err)
		return
	}
	c.JSON(http.StatusOK, h.viewModel.AdminView(valets))
}

// GET /api/v1/dashboard/valet/history
// Thẻ hiệu suất của chính valet đang đăng nhập, tính từ lịch sử của họ.
func (h *ParkingHandler) ValetHistory(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	cycles, err := h.parkingService.CarsByValet(c.Request.Context(), id.EmployeeID)
	if err != nil {
		respondError(c, "Không thể lấy lịch sử xe", err)
		return
	}
	c.JSON(http.StatusOK, analytics.Summarize(id.EmployeeID, id.EmployeeName, domain.Records(cycles)))
}
