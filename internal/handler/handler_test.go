package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"homeservices/internal/domain"
	"homeservices/internal/middleware"
	"homeservices/internal/repository"
	"homeservices/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMatching struct {
	mu      sync.Mutex
	queries []service.SearchQuery
	result  []service.Candidate
	err     error
}

func (f *fakeMatching) Search(ctx context.Context, q service.SearchQuery) ([]service.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.result, f.err
}

func (f *fakeMatching) CheckEligibility(ctx context.Context, req service.EligibilityRequest) (*service.Candidate, error) {
	return nil, errors.New("not used")
}

func (f *fakeMatching) calls() []service.SearchQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.SearchQuery(nil), f.queries...)
}

func newSearchRouter(m service.MatchingServiceInterface) *gin.Engine {
	h := NewProviderHandler(nil, m, nil)
	r := gin.New()
	r.GET("/v1/providers/search", middleware.Authenticate(), h.Search)
	return r
}

func doSearch(r *gin.Engine, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/providers/search?"+query, nil)
	req.Header.Set(middleware.ActorIDHeader, "client-1")
	req.Header.Set(middleware.ActorRoleHeader, "client")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidQuery, http.StatusBadRequest},
		{service.ErrInvalidLocation, http.StatusBadRequest},
		{service.ErrInvalidBooking, http.StatusBadRequest},
		{service.ErrInvalidSchedule, http.StatusBadRequest},
		{service.ErrInvalidCategory, http.StatusBadRequest},
		{service.ErrInvalidProvider, http.StatusBadRequest},
		{service.ErrInvalidClient, http.StatusBadRequest},
		{service.ErrInvalidPaymentStatus, http.StatusBadRequest},
		{service.ErrInvalidRating, http.StatusUnprocessableEntity},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrAlreadyMaterialized, http.StatusConflict},
		{service.ErrAlreadyRated, http.StatusConflict},
		{service.ErrConflict, http.StatusConflict},
		{service.ErrBookingNotAccepted, http.StatusConflict},
		{service.ErrProviderNotEligible, http.StatusConflict},
		{service.ErrProviderSuspended, http.StatusConflict},
		{repository.ErrDuplicate, http.StatusConflict},
		{fmt.Errorf("%w: cannot accept a rejected booking", service.ErrInvalidTransition), http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestRespondError_HidesInternalErrors(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("pq: password authentication failed"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "internal error" {
		t.Errorf("expected generic message, got %q", body.Error)
	}
	if len(c.Errors) != 1 {
		t.Errorf("expected error attached to context, got %d", len(c.Errors))
	}
}

func TestSearch_StrictParsing(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		query string
		want  int
	}{
		{"valid", "lat=-1.2921&lng=36.8219&category=plumbing", http.StatusOK},
		{"lat NaN", "lat=NaN&lng=36.8219&category=plumbing", http.StatusBadRequest},
		{"lng Inf", "lat=-1.2921&lng=Inf&category=plumbing", http.StatusBadRequest},
		{"lat malformed", "lat=abc&lng=36.8219&category=plumbing", http.StatusBadRequest},
		{"lat without lng", "lat=-1.2921&category=plumbing", http.StatusBadRequest},
		{"no origin", "category=plumbing", http.StatusBadRequest},
		{"no category", "lat=-1.2921&lng=36.8219", http.StatusBadRequest},
		{"radius zero", "lat=-1.2921&lng=36.8219&category=plumbing&radius=0", http.StatusBadRequest},
		{"radius negative", "lat=-1.2921&lng=36.8219&category=plumbing&radius=-5", http.StatusBadRequest},
		{"radius NaN", "lat=-1.2921&lng=36.8219&category=plumbing&radius=NaN", http.StatusBadRequest},
		{"min rating NaN", "lat=-1.2921&lng=36.8219&category=plumbing&min_rating=NaN", http.StatusBadRequest},
		{"max price malformed", "lat=-1.2921&lng=36.8219&category=plumbing&max_price=cheap", http.StatusBadRequest},
		{"available_now malformed", "lat=-1.2921&lng=36.8219&category=plumbing&available_now=maybe", http.StatusBadRequest},
		{"limit malformed", "lat=-1.2921&lng=36.8219&category=plumbing&limit=ten", http.StatusBadRequest},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := &fakeMatching{}
			w := doSearch(newSearchRouter(m), tc.query)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
			if tc.want == http.StatusBadRequest && len(m.calls()) != 0 {
				t.Error("expected the engine not to run for a malformed query")
			}
		})
	}
}

func TestSearch_PassesTypedQuery(t *testing.T) {
	t.Parallel()

	m := &fakeMatching{result: []service.Candidate{{
		Provider: &domain.Provider{
			ID:         "p-1",
			Categories: []domain.ServiceCategory{domain.CategoryPlumbing},
			Location:   domain.Point{Lng: 36.8222, Lat: -1.2923},
			Rating:     domain.RatingStat{Sum: 9, Count: 2},
		},
		DistanceMeters: 40,
		Price:          502,
	}}}

	w := doSearch(newSearchRouter(m),
		"lat=-1.2921&lng=36.8219&category=plumbing&radius=2500&min_rating=4&min_price=100&max_price=900&available_now=true&verified_only=1&sort=rating&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	calls := m.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one search, got %d", len(calls))
	}
	q := calls[0]
	if q.Origin != (domain.Point{Lng: 36.8219, Lat: -1.2921}) || q.Category != domain.CategoryPlumbing || q.RadiusMeters != 2500 {
		t.Errorf("unexpected query core: %+v", q)
	}
	f := q.Filters
	if f.MinRating != 4 || f.MinPrice == nil || *f.MinPrice != 100 || f.MaxPrice == nil || *f.MaxPrice != 900 || !f.AvailableNow || !f.VerifiedOnly {
		t.Errorf("unexpected filters: %+v", f)
	}
	if q.Sort != service.SortByRating || q.Limit != 5 {
		t.Errorf("unexpected sort or limit: %s %d", q.Sort, q.Limit)
	}

	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Results[0].Provider.Rating != 4.5 || resp.Results[0].Provider.Location == nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSearch_EngineErrorsMapped(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: radius exceeds 100000m", service.ErrInvalidQuery), http.StatusBadRequest},
		{errors.New("redis: connection pool timeout"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		w := doSearch(newSearchRouter(&fakeMatching{err: tc.err}), "lat=-1.2921&lng=36.8219&category=plumbing")
		if w.Code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, w.Code)
		}
	}
}

func TestSearch_RequiresActor(t *testing.T) {
	t.Parallel()

	r := newSearchRouter(&fakeMatching{})
	req := httptest.NewRequest(http.MethodGet, "/v1/providers/search?lat=0&lng=0&category=plumbing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
