package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homeservices/internal/domain"
	"homeservices/internal/middleware"
	"homeservices/internal/service"
)

// ProviderHandler handles HTTP requests for providers and provider search.
type ProviderHandler struct {
	providerService *service.ProviderService
	matchingService service.MatchingServiceInterface
	clientService   *service.ClientService
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(
	providerService *service.ProviderService,
	matchingService service.MatchingServiceInterface,
	clientService *service.ClientService,
) *ProviderHandler {
	return &ProviderHandler{
		providerService: providerService,
		matchingService: matchingService,
		clientService:   clientService,
	}
}

// RegisterProviderRequest is the HTTP request body for provider registration.
type RegisterProviderRequest struct {
	BusinessName string         `json:"business_name"`
	Phone        string         `json:"phone"`
	Categories   []string       `json:"categories"`
	Location     *LocationInput `json:"location"`
	BasePrice    float64        `json:"base_price"`
	PerKmRate    float64        `json:"per_km_rate"`
	Available    bool           `json:"available"`
}

// AvailabilityRequest is the HTTP request body for toggling availability.
type AvailabilityRequest struct {
	Available *bool `json:"available"`
}

// ProviderResponse is the HTTP response for provider data.
type ProviderResponse struct {
	ID           string       `json:"id"`
	BusinessName string       `json:"business_name"`
	Phone        string       `json:"phone"`
	Categories   []string     `json:"categories"`
	Location     *LocationDTO `json:"location,omitempty"`
	Available    bool         `json:"available"`
	Verified     bool         `json:"verified"`
	Suspended    bool         `json:"suspended"`
	Rating       float64      `json:"rating"`
	RatingCount  int          `json:"rating_count"`
	BasePrice    float64      `json:"base_price"`
	PerKmRate    float64      `json:"per_km_rate"`
	CreatedAt    string       `json:"created_at,omitempty"`
}

// CandidateResponse is one search result.
type CandidateResponse struct {
	Provider       ProviderResponse `json:"provider"`
	DistanceMeters float64          `json:"distance_meters"`
	Price          float64          `json:"price"`
}

// SearchResponse is the HTTP response for provider search.
type SearchResponse struct {
	Results []CandidateResponse `json:"results"`
	Count   int                 `json:"count"`
}

// Register handles POST /v1/providers/register
func (h *ProviderHandler) Register(c *gin.Context) {
	var req RegisterProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	location, ok := req.Location.point()
	if !ok {
		respondBadRequest(c, "location with lat and lng is required")
		return
	}

	categories := make([]domain.ServiceCategory, 0, len(req.Categories))
	for _, cat := range req.Categories {
		categories = append(categories, domain.ServiceCategory(cat))
	}

	provider, err := h.providerService.Register(c.Request.Context(), service.RegisterProviderRequest{
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
		Categories:   categories,
		Location:     location,
		BasePrice:    req.BasePrice,
		PerKmRate:    req.PerKmRate,
		Available:    req.Available,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toProviderResponse(provider))
}

// GetAll handles GET /v1/providers
func (h *ProviderHandler) GetAll(c *gin.Context) {
	providers, err := h.providerService.ListProviders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ProviderResponse, 0, len(providers))
	for _, p := range providers {
		response = append(response, toProviderResponse(p))
	}
	respondJSON(c, http.StatusOK, response)
}

// GetProvider handles GET /v1/providers/:id
func (h *ProviderHandler) GetProvider(c *gin.Context) {
	provider, err := h.providerService.GetProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toProviderResponse(provider))
}

// Search handles GET /v1/providers/search
func (h *ProviderHandler) Search(c *gin.Context) {
	q, originClientID, msg := parseSearchQuery(c)
	if msg != "" {
		respondBadRequest(c, msg)
		return
	}

	if originClientID != "" {
		client, err := h.clientService.GetClient(c.Request.Context(), middleware.ActorFrom(c), originClientID)
		if err != nil {
			respondError(c, err)
			return
		}
		q.Origin = client.Home
	}

	candidates, err := h.matchingService.Search(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}

	response := SearchResponse{Results: make([]CandidateResponse, 0, len(candidates)), Count: len(candidates)}
	for _, cand := range candidates {
		response.Results = append(response.Results, CandidateResponse{
			Provider:       toProviderResponse(cand.Provider),
			DistanceMeters: cand.DistanceMeters,
			Price:          cand.Price,
		})
	}
	respondJSON(c, http.StatusOK, response)
}

// parseSearchQuery converts query parameters into a search query. When the origin must come from a
// client's home, originClientID names that client. msg is non-empty when the parameters are malformed.
func parseSearchQuery(c *gin.Context) (q service.SearchQuery, originClientID string, msg string) {
	q = service.SearchQuery{
		Category: domain.ServiceCategory(c.Query("category")),
		Sort:     service.SortKey(c.Query("sort")),
	}
	fail := func(err error) (service.SearchQuery, string, string) {
		return q, "", err.Error()
	}

	lat, hasLat, err := queryFloat(c, "lat")
	if err != nil {
		return fail(err)
	}
	lng, hasLng, err := queryFloat(c, "lng")
	if err != nil {
		return fail(err)
	}
	switch {
	case hasLat && hasLng:
		q.Origin = domain.Point{Lng: lng, Lat: lat}
	case hasLat || hasLng:
		return q, "", "lat and lng must be given together"
	case c.Query("client_id") != "":
		originClientID = c.Query("client_id")
	default:
		return q, "", "lat and lng or client_id are required"
	}

	if q.Category == "" {
		return q, "", "category is required"
	}

	radius, hasRadius, err := queryFloat(c, "radius")
	if err != nil {
		return fail(err)
	}
	if hasRadius && radius <= 0 {
		return q, "", "radius must be positive"
	}
	q.RadiusMeters = radius

	if q.Filters.MinRating, _, err = queryFloat(c, "min_rating"); err != nil {
		return fail(err)
	}
	if v, ok, err := queryFloat(c, "min_price"); err != nil {
		return fail(err)
	} else if ok {
		q.Filters.MinPrice = &v
	}
	if v, ok, err := queryFloat(c, "max_price"); err != nil {
		return fail(err)
	} else if ok {
		q.Filters.MaxPrice = &v
	}
	if q.Filters.AvailableNow, err = queryBool(c, "available_now"); err != nil {
		return fail(err)
	}
	if q.Filters.VerifiedOnly, err = queryBool(c, "verified_only"); err != nil {
		return fail(err)
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return fail(err)
	}
	return q, originClientID, ""
}

// UpdateLocation handles POST /v1/providers/:id/location
func (h *ProviderHandler) UpdateLocation(c *gin.Context) {
	var req LocationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	point, ok := req.point()
	if !ok {
		respondBadRequest(c, "lat and lng are required")
		return
	}

	err := h.providerService.UpdateLocation(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), point)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetAvailability handles POST /v1/providers/:id/availability
func (h *ProviderHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		respondBadRequest(c, "available is required")
		return
	}

	provider, err := h.providerService.SetAvailability(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), *req.Available)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toProviderResponse(provider))
}

// Verify handles POST /v1/providers/:id/verify
func (h *ProviderHandler) Verify(c *gin.Context) {
	provider, err := h.providerService.Verify(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toProviderResponse(provider))
}

// Suspend handles POST /v1/providers/:id/suspend
func (h *ProviderHandler) Suspend(c *gin.Context) {
	h.setSuspended(c, true)
}

// Unsuspend handles POST /v1/providers/:id/unsuspend
func (h *ProviderHandler) Unsuspend(c *gin.Context) {
	h.setSuspended(c, false)
}

func (h *ProviderHandler) setSuspended(c *gin.Context, suspended bool) {
	provider, err := h.providerService.SetSuspended(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), suspended)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toProviderResponse(provider))
}

func toProviderResponse(p *domain.Provider) ProviderResponse {
	categories := make([]string, 0, len(p.Categories))
	for _, cat := range p.Categories {
		categories = append(categories, string(cat))
	}

	resp := ProviderResponse{
		ID:           p.ID,
		BusinessName: p.BusinessName,
		Phone:        p.Phone,
		Categories:   categories,
		Available:    p.Available,
		Verified:     p.Verified,
		Suspended:    p.Suspended,
		Rating:       p.Rating.Average(),
		RatingCount:  p.Rating.Count,
		BasePrice:    p.Pricing.BasePrice,
		PerKmRate:    p.Pricing.PerKmRate,
		CreatedAt:    formatTime(p.CreatedAt),
	}
	if p.Location != (domain.Point{}) {
		loc := toLocationDTO(p.Location)
		resp.Location = &loc
	}
	return resp
}
