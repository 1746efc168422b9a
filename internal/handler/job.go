package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homeservices/internal/domain"
	"homeservices/internal/middleware"
	"homeservices/internal/service"
)

// JobHandler handles HTTP requests for jobs.
type JobHandler struct {
	jobService *service.JobService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService *service.JobService) *JobHandler {
	return &JobHandler{jobService: jobService}
}

// JobRatingResponse is the rating a job received.
type JobRatingResponse struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
	RatedAt string  `json:"rated_at"`
}

// JobResponse is the HTTP response for job data.
type JobResponse struct {
	ID              string             `json:"id"`
	BookingID       string             `json:"booking_id"`
	ProviderID      string             `json:"provider_id"`
	ClientID        string             `json:"client_id"`
	Category        string             `json:"category"`
	Destination     LocationDTO        `json:"destination"`
	ScheduledAt     string             `json:"scheduled_at"`
	Status          string             `json:"status"`
	StartedAt       string             `json:"started_at,omitempty"`
	CompletedAt     string             `json:"completed_at,omitempty"`
	CompletionNotes string             `json:"completion_notes,omitempty"`
	DistanceMeters  float64            `json:"distance_meters"`
	DurationSeconds int64              `json:"duration_seconds"`
	Rating          *JobRatingResponse `json:"rating,omitempty"`
	Payment         *PaymentResponse   `json:"payment,omitempty"`
	CreatedAt       string             `json:"created_at"`
}

// GetAll handles GET /v1/jobs
func (h *JobHandler) GetAll(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	jobs, err := h.jobService.ListJobs(c.Request.Context(), middleware.ActorFrom(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		response = append(response, toJobResponse(j))
	}
	respondJSON(c, http.StatusOK, response)
}

// GetJob handles GET /v1/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobService.GetJob(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toJobResponse(job))
}

// GetBookingJob handles GET /v1/bookings/:id/job
func (h *JobHandler) GetBookingJob(c *gin.Context) {
	job, err := h.jobService.GetJobByBooking(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toJobResponse(job))
}

func toJobResponse(j *domain.Job) JobResponse {
	resp := JobResponse{
		ID:              j.ID,
		BookingID:       j.BookingID,
		ProviderID:      j.ProviderID,
		ClientID:        j.ClientID,
		Category:        string(j.Category),
		Destination:     toLocationDTO(j.Destination),
		ScheduledAt:     formatTime(j.ScheduledAt),
		Status:          string(j.Status),
		StartedAt:       formatTime(j.StartedAt),
		CompletedAt:     formatTime(j.CompletedAt),
		CompletionNotes: j.CompletionNotes,
		DistanceMeters:  j.DistanceMeters,
		DurationSeconds: j.DurationSeconds,
		Payment:         toPaymentResponse(j.Payment),
		CreatedAt:       formatTime(j.CreatedAt),
	}
	if j.Rating != nil {
		resp.Rating = &JobRatingResponse{
			Score:   j.Rating.Score,
			Comment: j.Rating.Comment,
			RatedAt: formatTime(j.Rating.RatedAt),
		}
	}
	return resp
}
