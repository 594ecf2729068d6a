package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homeclean/internal/domain"
	"homeclean/internal/middleware"
	"homeclean/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService *service.BookingService
	logger         *zap.Logger
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// AddressPayload is the service address in requests and responses.
type AddressPayload struct {
	Street     string   `json:"street" binding:"required"`
	City       string   `json:"city" binding:"required"`
	State      string   `json:"state" binding:"required"`
	PostalCode string   `json:"postal_code" binding:"required"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	ServiceID           string         `json:"service_id" binding:"required"`
	CleanerID           string         `json:"cleaner_id" binding:"required"`
	ScheduledDate       string         `json:"scheduled_date" binding:"required"` // YYYY-MM-DD
	StartTime           string         `json:"start_time" binding:"required"`     // HH:MM, 24h
	Address             AddressPayload `json:"address"`
	SpecialInstructions string         `json:"special_instructions,omitempty"`
}

// UpdateStatusRequest is the HTTP request body for a status change.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// UpdatePaymentStatusRequest is the payment collaborator's notification body.
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// BookingResponse is the HTTP representation of a booking.
type BookingResponse struct {
	ID                  string         `json:"id"`
	CustomerID          string         `json:"customer_id"`
	CleanerID           string         `json:"cleaner_id"`
	ServiceID           string         `json:"service_id"`
	ScheduledDate       string         `json:"scheduled_date"`
	StartTime           string         `json:"start_time"`
	EndTime             string         `json:"end_time"`
	DurationHours       float64        `json:"duration_hours"`
	ServicePrice        float64        `json:"service_price"`
	PlatformFee         float64        `json:"platform_fee"`
	TotalPrice          float64        `json:"total_price"`
	Status              string         `json:"status"`
	PaymentStatus       string         `json:"payment_status"`
	Address             AddressPayload `json:"address"`
	SpecialInstructions string         `json:"special_instructions,omitempty"`
	CancellationReason  string         `json:"cancellation_reason,omitempty"`
	CancelledBy         string         `json:"cancelled_by,omitempty"`
	CreatedAt           string         `json:"created_at"`
	UpdatedAt           string         `json:"updated_at"`
}

// ListBookingsResponse is one page of bookings with pagination metadata.
type ListBookingsResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
	Total    int               `json:"total"`
	HasMore  bool              `json:"has_more"`
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	date, err := domain.ParseDate(req.ScheduledDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	start, err := domain.ParseTimeOfDay(req.StartTime)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		Actor:         actor,
		ServiceID:     req.ServiceID,
		CleanerID:     req.CleanerID,
		ScheduledDate: date,
		StartTime:     start,
		Address: domain.Address{
			Street:     req.Address.Street,
			City:       req.Address.City,
			State:      req.Address.State,
			PostalCode: req.Address.PostalCode,
			Latitude:   req.Address.Latitude,
			Longitude:  req.Address.Longitude,
		},
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// ListBookings handles GET /v1/bookings?skip=&limit=&status=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	skip, err := queryInt(c, "skip")
	if err != nil {
		respondBadRequest(c, "skip must be an integer")
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondBadRequest(c, "limit must be an integer")
		return
	}

	var status *domain.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s, err := domain.ParseBookingStatus(raw)
		if err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		status = &s
	}

	page, err := h.bookingService.GetBookingsForParty(c.Request.Context(), actor, service.Pagination{Skip: skip, Limit: limit}, status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := ListBookingsResponse{
		Bookings: make([]BookingResponse, 0, len(page.Bookings)),
		Skip:     page.Skip,
		Limit:    page.Limit,
		Total:    page.Total,
		HasMore:  page.HasMore,
	}
	for _, b := range page.Bookings {
		resp.Bookings = append(resp.Bookings, toBookingResponse(b))
	}

	respondJSON(c, http.StatusOK, resp)
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// UpdateStatus handles PATCH /v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	target, err := domain.ParseBookingStatus(req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	booking, err := h.bookingService.UpdateStatus(c.Request.Context(), service.UpdateStatusRequest{
		BookingID: c.Param("id"),
		Actor:     actor,
		Status:    target,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// UpdatePaymentStatus handles PATCH /v1/internal/bookings/:id/payment-status
func (h *BookingHandler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	status, err := domain.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	booking, err := h.bookingService.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

func (h *BookingHandler) actor(c *gin.Context) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Code: codeUnauthorized})
		return domain.Actor{}, false
	}
	return actor, true
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		CustomerID:    b.CustomerID,
		CleanerID:     b.CleanerID,
		ServiceID:     b.ServiceID,
		ScheduledDate: b.ScheduledDate.String(),
		StartTime:     b.StartTime.String(),
		EndTime:       b.EndTime().String(),
		DurationHours: b.DurationHours,
		ServicePrice:  b.ServicePrice,
		PlatformFee:   b.PlatformFee,
		TotalPrice:    b.TotalPrice,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Address: AddressPayload{
			Street:     b.Address.Street,
			City:       b.Address.City,
			State:      b.Address.State,
			PostalCode: b.Address.PostalCode,
			Latitude:   b.Address.Latitude,
			Longitude:  b.Address.Longitude,
		},
		SpecialInstructions: b.SpecialInstructions,
		CancellationReason:  b.CancellationReason,
		CancelledBy:         b.CancelledBy,
		CreatedAt:           b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           b.UpdatedAt.Format(time.RFC3339),
	}
}
