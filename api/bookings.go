package api

import (
	"net/http"
	"strconv"

	"github.com/Caolboy/LABERS-HOST/internal/apperrors"
	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type cancelBookingRequest struct {
	Type domain.ItemKind `json:"type"`
}

type bookedSlotResponse struct {
	ID   int64  `json:"id"`
	Slot string `json:"slot"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// Register mounts the booking routes on an authenticated group.
func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/bookings", h.create)
	router.GET("/bookings", h.list)
	router.POST("/bookings/:id/cancel", h.cancel)
	router.GET("/dashboard", h.dashboard)
	router.GET("/rooms/:id/booked-slots", h.bookedSlots)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.MakeBookingInput
	if !bindJSON(c, &req) {
		return
	}

	bookings, err := h.service.MakeBooking(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, bookings)
}

func (h *BookingHandler) list(c *gin.Context) {
	bookings, err := h.service.ListUserBookings(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, bookings)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.CancelBooking(c.Request.Context(), currentUserID(c), id, req.Type); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Booking cancelled.")
}

func (h *BookingHandler) dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, dashboard)
}

func (h *BookingHandler) bookedSlots(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	slots, err := h.service.BookedSlots(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]bookedSlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, bookedSlotResponse{ID: s.ID, Slot: s.Slot})
	}
	respond(c, http.StatusOK, out)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, apperrors.Validation("id", "The id must be a positive integer."))
		return 0, false
	}
	return id, true
}
