package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
	"homeservices/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z07:00"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Unmapped errors are attached to the context for the access log and reported as "internal error".
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondBadRequest sends a 400 with msg.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidQuery),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidBooking),
		errors.Is(err, service.ErrInvalidSchedule),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidProvider),
		errors.Is(err, service.ErrInvalidClient),
		errors.Is(err, service.ErrInvalidPaymentStatus):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidRating):
		return http.StatusUnprocessableEntity

	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyMaterialized),
		errors.Is(err, service.ErrAlreadyRated),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrBookingNotAccepted),
		errors.Is(err, service.ErrProviderNotEligible),
		errors.Is(err, service.ErrProviderSuspended),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// LocationDTO is a coordinate pair on the wire.
type LocationDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationInput is a coordinate pair in a request body. Both fields are required.
type LocationInput struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (l *LocationInput) point() (domain.Point, bool) {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return domain.Point{}, false
	}
	return domain.Point{Lng: *l.Lng, Lat: *l.Lat}, true
}

func toLocationDTO(p domain.Point) LocationDTO {
	return LocationDTO{Lat: p.Lat, Lng: p.Lng}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeFormat)
}
