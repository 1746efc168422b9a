package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"homeservices/internal/domain"
	"homeservices/internal/notify"
	"homeservices/internal/redis"
	"homeservices/internal/repository"
	"homeservices/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// ──────────────────────────────────────────────
// MOCK PROVIDER REPOSITORY
// ──────────────────────────────────────────────

type MockProviderRepository struct {
	mu        sync.RWMutex
	providers map[string]*domain.Provider

	AddRatingCallCount int32
	GetByIDsCallCount  int32

	CreateError error
}

func NewMockProviderRepository() *MockProviderRepository {
	return &MockProviderRepository{providers: make(map[string]*domain.Provider)}
}

func (m *MockProviderRepository) AddProvider(p *domain.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID] = copyProvider(p)
}

func (m *MockProviderRepository) GetProvider(id string) *domain.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[id]
	if !ok {
		return nil
	}
	return copyProvider(p)
}

func (m *MockProviderRepository) Create(ctx context.Context, p *domain.Provider) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[p.ID]; ok {
		return repository.ErrDuplicate
	}
	m.providers[p.ID] = copyProvider(p)
	return nil
}

func (m *MockProviderRepository) GetByID(ctx context.Context, id string) (*domain.Provider, error) {
	if p := m.GetProvider(id); p != nil {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockProviderRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Provider, error) {
	atomic.AddInt32(&m.GetByIDsCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Provider, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.providers[id]; ok {
			result = append(result, copyProvider(p))
		}
	}
	return result, nil
}

func (m *MockProviderRepository) GetAll(ctx context.Context) ([]*domain.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Provider, 0, len(m.providers))
	for _, p := range m.providers {
		result = append(result, copyProvider(p))
	}
	return result, nil
}

func (m *MockProviderRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	return m.update(id, func(p *domain.Provider) error {
		if available && p.Suspended {
			return repository.ErrProviderSuspended
		}
		p.Available = available
		return nil
	})
}

func (m *MockProviderRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return m.update(id, func(p *domain.Provider) error {
		p.Verified = verified
		return nil
	})
}

func (m *MockProviderRepository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	return m.update(id, func(p *domain.Provider) error {
		p.Suspended = suspended
		if suspended {
			p.Available = false
		}
		return nil
	})
}

func (m *MockProviderRepository) AddRating(ctx context.Context, id string, score float64) (domain.RatingStat, error) {
	atomic.AddInt32(&m.AddRatingCallCount, 1)
	var stat domain.RatingStat
	err := m.update(id, func(p *domain.Provider) error {
		p.Rating.Sum += score
		p.Rating.Count++
		stat = p.Rating
		return nil
	})
	return stat, err
}

func (m *MockProviderRepository) update(id string, fn func(p *domain.Provider) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.providers[id]
	if !ok {
		return repository.ErrNotFound
	}
	return fn(p)
}

func copyProvider(p *domain.Provider) *domain.Provider {
	c := *p
	c.Categories = append([]domain.ServiceCategory(nil), p.Categories...)
	return &c
}

// ──────────────────────────────────────────────
// MOCK CLIENT REPOSITORY
// ──────────────────────────────────────────────

type MockClientRepository struct {
	mu      sync.RWMutex
	clients map[string]*domain.Client
}

func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{clients: make(map[string]*domain.Client)}
}

func (m *MockClientRepository) AddClient(c *domain.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *c
	m.clients[c.ID] = &copy
}

func (m *MockClientRepository) Create(ctx context.Context, c *domain.Client) error {
	m.AddClient(c)
	return nil
}

func (m *MockClientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *c
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK BOOKING REPOSITORY
// ──────────────────────────────────────────────

type MockBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking

	TransitionCallCount int32

	// BeforeTransition runs once, unlocked, before the next compare-and-swap.
	// Tests use it to simulate a writer racing in between read and swap.
	BeforeTransition func()
}

func NewMockBookingRepository() *MockBookingRepository {
	return &MockBookingRepository{bookings: make(map[string]*domain.Booking)}
}

func (m *MockBookingRepository) AddBooking(b *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *b
	m.bookings[b.ID] = &copy
}

func (m *MockBookingRepository) GetBooking(id string) *domain.Booking {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil
	}
	copy := *b
	return &copy
}

// ForceStatus sets a status without any checks.
func (m *MockBookingRepository) ForceStatus(id string, status domain.BookingStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[id].Status = status
}

func (m *MockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	m.AddBooking(b)
	return nil
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if b := m.GetBooking(id); b != nil {
		return b, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockBookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Booking, 0)
	for _, b := range m.bookings {
		if filter.ClientID != "" && b.ClientID != filter.ClientID {
			continue
		}
		if filter.ProviderID != "" && b.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		copy := *b
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockBookingRepository) Transition(ctx context.Context, t domain.BookingTransition) (*domain.Booking, error) {
	atomic.AddInt32(&m.TransitionCallCount, 1)

	m.mu.Lock()
	hook := m.BeforeTransition
	m.BeforeTransition = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[t.BookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if b.Status != t.From {
		return nil, repository.ErrStaleStatus
	}
	b.Status = t.To
	b.StatusReason = t.Reason
	b.UpdatedBy = t.ActorID
	b.UpdatedAt = t.At
	copy := *b
	return &copy, nil
}

func (m *MockBookingRepository) SetPayment(ctx context.Context, id string, payment domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Payment = &payment
	return nil
}

// ──────────────────────────────────────────────
// MOCK JOB REPOSITORY
// ──────────────────────────────────────────────

// MockJobRepository derives job status from the booking repository.
type MockJobRepository struct {
	mu       sync.RWMutex
	jobs     map[string]*domain.Job // by booking id
	bookings *MockBookingRepository

	CreateCallCount int32

	CreateError error
}

func NewMockJobRepository(bookings *MockBookingRepository) *MockJobRepository {
	return &MockJobRepository{
		jobs:     make(map[string]*domain.Job),
		bookings: bookings,
	}
}

func (m *MockJobRepository) JobCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.BookingID]; ok {
		return repository.ErrDuplicate
	}
	copy := *job
	m.jobs[job.BookingID] = &copy
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	m.mu.RLock()
	var found *domain.Job
	for _, j := range m.jobs {
		if j.ID == id {
			found = j
			break
		}
	}
	m.mu.RUnlock()
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return m.GetByBookingID(ctx, found.BookingID)
}

func (m *MockJobRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Job, error) {
	m.mu.RLock()
	j, ok := m.jobs[bookingID]
	var copy domain.Job
	if ok {
		copy = *j
	}
	m.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	if b := m.bookings.GetBooking(bookingID); b != nil {
		copy.Status = b.Status
		copy.Payment = b.Payment
	}
	return &copy, nil
}

func (m *MockJobRepository) List(ctx context.Context, filter repository.JobFilter) ([]*domain.Job, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.jobs))
	for bookingID, j := range m.jobs {
		if filter.ClientID != "" && j.ClientID != filter.ClientID {
			continue
		}
		if filter.ProviderID != "" && j.ProviderID != filter.ProviderID {
			continue
		}
		ids = append(ids, bookingID)
	}
	m.mu.RUnlock()

	result := make([]*domain.Job, 0, len(ids))
	for _, id := range ids {
		j, err := m.GetByBookingID(ctx, id)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	return result, nil
}

func (m *MockJobRepository) MarkStarted(ctx context.Context, start domain.JobStart) error {
	return m.update(start.BookingID, func(j *domain.Job) error {
		j.StartedAt = start.StartedAt
		j.DistanceMeters = start.DistanceMeters
		return nil
	})
}

func (m *MockJobRepository) MarkCompleted(ctx context.Context, c domain.JobCompletion) error {
	return m.update(c.BookingID, func(j *domain.Job) error {
		j.CompletedAt = c.CompletedAt
		j.CompletionNotes = c.Notes
		if !j.StartedAt.IsZero() {
			j.DurationSeconds = int64(c.CompletedAt.Sub(j.StartedAt).Seconds())
		}
		return nil
	})
}

func (m *MockJobRepository) RecordRating(ctx context.Context, bookingID string, rating domain.JobRating) error {
	return m.update(bookingID, func(j *domain.Job) error {
		if j.Rating != nil {
			return repository.ErrAlreadyRated
		}
		r := rating
		j.Rating = &r
		return nil
	})
}

func (m *MockJobRepository) update(bookingID string, fn func(j *domain.Job) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	return fn(j)
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor hands the same repositories to every transaction. It does not roll back.
type MockTransactor struct {
	repos repository.Repositories

	CallCount int32
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	atomic.AddInt32(&m.CallCount, 1)
	return fn(ctx, m.repos)
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]domain.Point

	UpdateLocationCallCount int32

	UpdateLocationError error
	FindNearbyError     error
}

func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string]domain.Point)}
}

func (m *MockLocationStore) SetLocation(providerID string, p domain.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[providerID] = p
}

func (m *MockLocationStore) HasLocation(providerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locations[providerID]
	return ok
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, providerID string, p domain.Point) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.SetLocation(providerID, p)
	return nil
}

func (m *MockLocationStore) FindNearby(ctx context.Context, origin domain.Point, radiusMeters float64) ([]redis.ProviderLocation, error) {
	if m.FindNearbyError != nil {
		return nil, m.FindNearbyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]redis.ProviderLocation, 0)
	for id, p := range m.locations {
		if domain.DistanceMeters(origin, p) <= radiusMeters {
			result = append(result, redis.ProviderLocation{ProviderID: id, Point: p})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return domain.DistanceMeters(origin, result[i].Point) < domain.DistanceMeters(origin, result[j].Point)
	})
	return result, nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, providerID string) (domain.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.locations[providerID]
	if !ok {
		return domain.Point{}, redis.ErrLocationNotFound
	}
	return p, nil
}

func (m *MockLocationStore) GetLocations(ctx context.Context, providerIDs []string) (map[string]domain.Point, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]domain.Point, len(providerIDs))
	for _, id := range providerIDs {
		if p, ok := m.locations[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, providerID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK PROVIDER CACHE
// ──────────────────────────────────────────────

type MockProviderCache struct {
	mu        sync.RWMutex
	providers map[string]*redis.CachedProvider

	InvalidateCallCount int32
}

func NewMockProviderCache() *MockProviderCache {
	return &MockProviderCache{providers: make(map[string]*redis.CachedProvider)}
}

func (m *MockProviderCache) Has(providerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.providers[providerID]
	return ok
}

func (m *MockProviderCache) GetProvidersBatch(ctx context.Context, ids []string) (map[string]*redis.CachedProvider, []string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := make(map[string]*redis.CachedProvider)
	var missing []string
	for _, id := range ids {
		if c, ok := m.providers[id]; ok {
			copy := *c
			found[id] = &copy
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

func (m *MockProviderCache) SetProvidersBatch(ctx context.Context, providers []*redis.CachedProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range providers {
		copy := *c
		m.providers[c.ID] = &copy
	}
	return nil
}

func (m *MockProviderCache) InvalidateProvider(ctx context.Context, providerID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.providers, providerID)
	return nil
}

// ──────────────────────────────────────────────
// RECORDING NOTIFIER
// ──────────────────────────────────────────────

type RecordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *RecordingNotifier) Notify(ctx context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *RecordingNotifier) Kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(r.sent))
	for _, n := range r.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (r *RecordingNotifier) Sent(kind notify.Kind) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

// Nairobi CBD and a few nearby points.
var (
	nairobi     = domain.Point{Lng: 36.8219, Lat: -1.2921}
	nairobiNear = domain.Point{Lng: 36.8222, Lat: -1.2923} // ~40m
	westlands   = domain.Point{Lng: 36.8065, Lat: -1.2676} // ~3.2km
	karen       = domain.Point{Lng: 36.7073, Lat: -1.3197} // ~13km
	clientActor = domain.Actor{ID: "client-1", Role: domain.RoleClient}
	otherClient = domain.Actor{ID: "client-2", Role: domain.RoleClient}
	adminActor  = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	errInjected = errors.New("injected failure")
	tomorrow    = time.Now().Add(24 * time.Hour)
)

func providerActor(id string) domain.Actor {
	return domain.Actor{ID: id, Role: domain.RoleProvider}
}

type fixture struct {
	providers *MockProviderRepository
	clients   *MockClientRepository
	bookings  *MockBookingRepository
	jobs      *MockJobRepository
	locations *MockLocationStore
	cache     *MockProviderCache
	notifier  *RecordingNotifier
	tx        *MockTransactor

	matching    *service.MatchingService
	providerSvc *service.ProviderService
	clientSvc   *service.ClientService
	jobSvc      *service.JobService
	ratingSvc   *service.RatingService
	bookingSvc  *service.BookingService
	paymentSvc  *service.PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		providers: NewMockProviderRepository(),
		clients:   NewMockClientRepository(),
		bookings:  NewMockBookingRepository(),
		locations: NewMockLocationStore(),
		cache:     NewMockProviderCache(),
		notifier:  &RecordingNotifier{},
	}
	f.jobs = NewMockJobRepository(f.bookings)
	f.tx = &MockTransactor{repos: repository.Repositories{
		Providers: f.providers,
		Clients:   f.clients,
		Bookings:  f.bookings,
		Jobs:      f.jobs,
	}}

	logger := testLogger()
	notifications := service.NewNotificationService(f.notifier)
	f.matching = service.NewMatchingService(f.locations, f.cache, f.providers, service.DefaultMatchingOptions(), logger)
	f.providerSvc = service.NewProviderService(f.locations, f.cache, f.providers, logger)
	f.clientSvc = service.NewClientService(f.clients)
	f.jobSvc = service.NewJobService(f.tx, f.jobs, notifications, logger)
	f.ratingSvc = service.NewRatingService(f.providers, f.cache, logger)
	f.bookingSvc = service.NewBookingService(f.tx, f.bookings, f.clients, f.matching, f.jobSvc, f.ratingSvc, f.locations, notifications, logger)
	f.paymentSvc = service.NewPaymentService(f.bookings, notifications, logger)

	f.addClient(clientActor.ID, nairobi)
	f.addClient(otherClient.ID, westlands)
	return f
}

// addProvider registers a bookable plumber at loc with base price 500 and 50 per km.
func (f *fixture) addProvider(id string, loc domain.Point, mutate ...func(p *domain.Provider)) *domain.Provider {
	p := &domain.Provider{
		ID:           id,
		BusinessName: "Provider " + strings.ToUpper(id),
		Phone:        "0700000000",
		Categories:   []domain.ServiceCategory{domain.CategoryPlumbing},
		Available:    true,
		Verified:     true,
		Pricing:      domain.Pricing{BasePrice: 500, PerKmRate: 50},
		CreatedAt:    time.Now(),
	}
	for _, fn := range mutate {
		fn(p)
	}
	f.providers.AddProvider(p)
	f.locations.SetLocation(id, loc)
	return p
}

func (f *fixture) addClient(id string, home domain.Point) {
	f.clients.AddClient(&domain.Client{ID: id, Name: "Client " + id, Phone: "0711111111", Home: home})
}

// addBooking stores a booking directly in the given status.
func (f *fixture) addBooking(id, clientID, providerID string, status domain.BookingStatus) *domain.Booking {
	b := &domain.Booking{
		ID:          id,
		ClientID:    clientID,
		ProviderID:  providerID,
		Category:    domain.CategoryPlumbing,
		ScheduledAt: tomorrow,
		Destination: nairobi,
		Amount:      500,
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.bookings.AddBooking(b)
	return b
}

// bookAccepted creates a booking through the service and accepts it.
func (f *fixture) bookAccepted(t *testing.T, providerID string) *domain.Booking {
	t.Helper()
	b, err := f.bookingSvc.CreateBooking(context.Background(), clientActor, service.CreateBookingRequest{
		ProviderID:  providerID,
		Category:    domain.CategoryPlumbing,
		ScheduledAt: tomorrow,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if _, err := f.bookingSvc.AcceptBooking(context.Background(), providerActor(providerID), b.ID); err != nil {
		t.Fatalf("accept booking: %v", err)
	}
	return b
}

// bookInProgress creates, accepts and starts a booking.
func (f *fixture) bookInProgress(t *testing.T, providerID string) *domain.Booking {
	t.Helper()
	b := f.bookAccepted(t, providerID)
	if _, err := f.bookingSvc.StartBooking(context.Background(), providerActor(providerID), b.ID); err != nil {
		t.Fatalf("start booking: %v", err)
	}
	return b
}

func ptr[T any](v T) *T { return &v }
