package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homeservices/internal/domain"
	"homeservices/internal/middleware"
	"homeservices/internal/service"
)

// BookingHandler handles HTTP requests for the booking lifecycle.
type BookingHandler struct {
	bookingService *service.BookingService
	paymentService *service.PaymentService
	jobService     *service.JobService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, paymentService *service.PaymentService, jobService *service.JobService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		paymentService: paymentService,
		jobService:     jobService,
	}
}

// CreateBookingRequest is the HTTP request body for creating a booking.
type CreateBookingRequest struct {
	ClientID    string         `json:"client_id"`
	ProviderID  string         `json:"provider_id"`
	Category    string         `json:"category"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Destination *LocationInput `json:"destination"`
	Description string         `json:"description"`
}

// ReasonRequest is the optional body of reject and cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// CompleteBookingRequest is the optional body of complete.
type CompleteBookingRequest struct {
	Notes   string   `json:"notes"`
	Score   *float64 `json:"score"`
	Comment string   `json:"comment"`
}

// RateBookingRequest is the HTTP request body for rating a booking.
type RateBookingRequest struct {
	Score   *float64 `json:"score"`
	Comment string   `json:"comment"`
}

// AttachPaymentRequest is the HTTP request body sent by the payment collaborator.
type AttachPaymentRequest struct {
	Status    string  `json:"status"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
}

// PaymentResponse is the payment sub-record of a booking or job.
type PaymentResponse struct {
	Status    string  `json:"status"`
	Reference string  `json:"reference,omitempty"`
	Amount    float64 `json:"amount"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// BookingResponse is the HTTP response for booking data.
type BookingResponse struct {
	ID           string           `json:"id"`
	ClientID     string           `json:"client_id"`
	ProviderID   string           `json:"provider_id"`
	Category     string           `json:"category"`
	ScheduledAt  string           `json:"scheduled_at"`
	Destination  LocationDTO      `json:"destination"`
	Description  string           `json:"description,omitempty"`
	Amount       float64          `json:"amount"`
	Status       string           `json:"status"`
	StatusReason string           `json:"status_reason,omitempty"`
	UpdatedBy    string           `json:"updated_by,omitempty"`
	Payment      *PaymentResponse `json:"payment,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
}

// AcceptBookingResponse is the HTTP response for accepting a booking.
type AcceptBookingResponse struct {
	Booking BookingResponse `json:"booking"`
	Job     JobResponse     `json:"job"`
}

// CompleteBookingResponse is the HTTP response for completing a booking.
type CompleteBookingResponse struct {
	Booking        BookingResponse `json:"booking"`
	Job            JobResponse     `json:"job"`
	Rated          bool            `json:"rated"`
	ProviderRating float64         `json:"provider_rating,omitempty"`
}

// RateBookingResponse is the HTTP response for rating a booking.
type RateBookingResponse struct {
	BookingID      string  `json:"booking_id"`
	Score          float64 `json:"score"`
	ProviderRating float64 `json:"provider_rating"`
	RatingCount    int     `json:"rating_count"`
}

// CreateBooking handles POST /v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	svcReq := service.CreateBookingRequest{
		ClientID:    req.ClientID,
		ProviderID:  req.ProviderID,
		Category:    domain.ServiceCategory(req.Category),
		ScheduledAt: req.ScheduledAt,
		Description: req.Description,
	}
	if req.Destination != nil {
		point, ok := req.Destination.point()
		if !ok {
			respondBadRequest(c, "destination requires lat and lng")
			return
		}
		svcReq.Destination = &point
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), middleware.ActorFrom(c), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking))
}

// GetAll handles GET /v1/bookings
func (h *BookingHandler) GetAll(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	bookings, err := h.bookingService.ListBookings(c.Request.Context(), middleware.ActorFrom(c), domain.BookingStatus(c.Query("status")), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, toBookingResponse(b))
	}
	respondJSON(c, http.StatusOK, response)
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Accept handles POST /v1/bookings/:id/accept
func (h *BookingHandler) Accept(c *gin.Context) {
	res, err := h.bookingService.AcceptBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, AcceptBookingResponse{
		Booking: toBookingResponse(res.Booking),
		Job:     toJobResponse(res.Job),
	})
}

// Reject handles POST /v1/bookings/:id/reject
func (h *BookingHandler) Reject(c *gin.Context) {
	var req ReasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	booking, err := h.bookingService.RejectBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Cancel handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Start handles POST /v1/bookings/:id/start
func (h *BookingHandler) Start(c *gin.Context) {
	booking, err := h.bookingService.StartBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Complete handles POST /v1/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	var req CompleteBookingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	res, err := h.bookingService.CompleteBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), service.CompleteBookingRequest{
		Notes:   req.Notes,
		Score:   req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := CompleteBookingResponse{
		Booking: toBookingResponse(res.Booking),
		Job:     toJobResponse(res.Job),
		Rated:   res.Rated,
	}
	if res.Rated {
		resp.ProviderRating = res.ProviderStats.Average()
	}
	respondJSON(c, http.StatusOK, resp)
}

// Rate handles POST /v1/bookings/:id/rate
func (h *BookingHandler) Rate(c *gin.Context) {
	var req RateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Score == nil {
		respondBadRequest(c, "score is required")
		return
	}

	res, err := h.bookingService.RateBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), *req.Score, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RateBookingResponse{
		BookingID:      res.Booking.ID,
		Score:          res.Score,
		ProviderRating: res.ProviderStats.Average(),
		RatingCount:    res.ProviderStats.Count,
	})
}

// AttachPayment handles POST /v1/bookings/:id/payment
func (h *BookingHandler) AttachPayment(c *gin.Context) {
	var req AttachPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	booking, err := h.paymentService.AttachPayment(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), service.AttachPaymentRequest{
		Status:    domain.PaymentStatus(req.Status),
		Reference: req.Reference,
		Amount:    req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CreateJob handles POST /v1/bookings/:id/job
func (h *BookingHandler) CreateJob(c *gin.Context) {
	job, err := h.jobService.CreateFromBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toJobResponse(job))
}

func toBookingResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:           b.ID,
		ClientID:     b.ClientID,
		ProviderID:   b.ProviderID,
		Category:     string(b.Category),
		ScheduledAt:  formatTime(b.ScheduledAt),
		Destination:  toLocationDTO(b.Destination),
		Description:  b.Description,
		Amount:       b.Amount,
		Status:       string(b.Status),
		StatusReason: b.StatusReason,
		UpdatedBy:    b.UpdatedBy,
		Payment:      toPaymentResponse(b.Payment),
		CreatedAt:    formatTime(b.CreatedAt),
		UpdatedAt:    formatTime(b.UpdatedAt),
	}
}

func toPaymentResponse(p *domain.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		Status:    string(p.Status),
		Reference: p.Reference,
		Amount:    p.Amount,
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}
