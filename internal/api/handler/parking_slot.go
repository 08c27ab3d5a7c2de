package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"valet_parking/internal/api/middleware"
	"valet_parking/internal/domain"
	"valet_parking/internal/metrics"
	"valet_parking/internal/service"
)

type ParkingSlotHandler struct {
	parkingService *service.ParkingService
}

func NewParkingSlotHandler(ps *service.ParkingService) *ParkingSlotHandler {
	return &ParkingSlotHandler{parkingService: ps}
}

// POST /api/v1/slots/generate-id
func (h *ParkingSlotHandler) GenerateSlotID(c *gin.Context) {
	id := h.parkingService.GenerateSlotID()
	c.JSON(http.StatusOK, gin.H{
		"slotId":  id,
		"message": fmt.Sprintf("New QR ID generated: %s. Customer should scan this.", id),
	})
}

// POST /api/v1/slots
func (h *ParkingSlotHandler) Park(c *gin.Context) {
	var req domain.ParkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please ensure you are logged in as a valet and fill all car details."})
		return
	}
	valet, _ := middleware.CurrentIdentity(c)

	rec, err := h.parkingService.Park(c.Request.Context(), req, valet)
	if err != nil {
		respondError(c, "Failed to receive car. Please try again.", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("Car %s parked in %s by %s.", rec.Car.PlateNumber, rec.SlotID, rec.ValetName),
		"slot":    rec,
	})
}

// GET /api/v1/slots/:slot_id
func (h *ParkingSlotHandler) GetSlot(c *gin.Context) {
	rec, err := h.parkingService.GetSlot(c.Request.Context(), c.Param("slot_id"))
	if err != nil {
		respondError(c, "Lỗi khi lấy chỗ đỗ xe", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// POST /api/v1/slots/:slot_id/ready
func (h *ParkingSlotHandler) MarkReady(c *gin.Context) {
	slotID := c.Param("slot_id")
	rec, err := h.parkingService.MarkReady(c.Request.Context(), slotID)
	if err != nil {
		respondError(c, "Failed to mark car ready. Please try again.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Car in %s marked as ready.", slotID), "slot": rec})
}

// POST /api/v1/slots/:slot_id/deliver
func (h *ParkingSlotHandler) EndService(c *gin.Context) {
	slotID := c.Param("slot_id")
	rec, err := h.parkingService.EndService(c.Request.Context(), slotID)
	if err != nil {
		respondError(c, "Failed to end service. Please try again.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": deliveredMessage(slotID), "slot": rec})
}

// POST /api/v1/slots/:slot_id/clear
func (h *ParkingSlotHandler) Clear(c *gin.Context) {
	slotID := c.Param("slot_id")
	rec, err := h.parkingService.Clear(c.Request.Context(), slotID)
	if err != nil {
		respondError(c, "Failed to clear parking. Please try again.", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Parking space %s cleared.", slotID), "slot": rec})
}

// POST /customer/slots/:slot_id/request
func (h *ParkingSlotHandler) RequestCar(c *gin.Context) {
	slotID := c.Param("slot_id")
	_, err := h.parkingService.RequestCar(c.Request.Context(), slotID)
	if err != nil {
		metrics.CarRequests.WithLabelValues("http", "rejected").Inc()
		respondError(c, "Không thể gửi yêu cầu lấy xe", err)
		return
	}
	metrics.CarRequests.WithLabelValues("http", "ok").Inc()
	// không trả về bản ghi: endpoint công khai, bản ghi chứa số điện thoại
	c.JSON(http.StatusAccepted, gin.H{"message": fmt.Sprintf("Your car in %s has been requested.", slotID)})
}

func deliveredMessage(slotID string) string {
	return fmt.Sprintf("Service ended for car in %s. Customer notified: %s", slotID, service.DeliveredMessage)
}
