package service_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"drivio/internal/domain"
	"drivio/internal/payment"
	"drivio/internal/redis"
	"drivio/internal/repository"
	"drivio/internal/service"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE
// ──────────────────────────────────────────────

// memStore backs every mock repository. Transactions are serialized by txMu
// and roll back by restoring a snapshot, which is enough to model the
// guarantees the PostgreSQL schema gives (partial unique indexes, revision
// guarded updates).
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	rides       map[string]domain.Ride
	events      []domain.RideEvent
	seq         int64
	promos      map[string]domain.PromoCode
	redemptions map[string]domain.PromoRedemption
	payments    map[string]domain.Payment

	// Error injection
	CreateRideError error
}

func newMemStore() *memStore {
	return &memStore{
		rides:       make(map[string]domain.Ride),
		promos:      make(map[string]domain.PromoCode),
		redemptions: make(map[string]domain.PromoRedemption),
		payments:    make(map[string]domain.Payment),
	}
}

type memSnapshot struct {
	rides       map[string]domain.Ride
	events      []domain.RideEvent
	seq         int64
	promos      map[string]domain.PromoCode
	redemptions map[string]domain.PromoRedemption
	payments    map[string]domain.Payment
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		rides:       make(map[string]domain.Ride, len(s.rides)),
		events:      append([]domain.RideEvent(nil), s.events...),
		seq:         s.seq,
		promos:      make(map[string]domain.PromoCode, len(s.promos)),
		redemptions: make(map[string]domain.PromoRedemption, len(s.redemptions)),
		payments:    make(map[string]domain.Payment, len(s.payments)),
	}
	for k, v := range s.rides {
		snap.rides[k] = v
	}
	for k, v := range s.promos {
		snap.promos[k] = v
	}
	for k, v := range s.redemptions {
		snap.redemptions[k] = v
	}
	for k, v := range s.payments {
		snap.payments[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides = snap.rides
	s.events = snap.events
	s.seq = snap.seq
	s.promos = snap.promos
	s.redemptions = snap.redemptions
	s.payments = snap.payments
}

func (s *memStore) repositories() repository.Repositories {
	return repository.Repositories{
		Rides:    &MockRideRepository{store: s},
		Events:   &MockRideEventRepository{store: s},
		Promos:   &MockPromoRepository{store: s},
		Payments: &MockPaymentRepository{store: s},
	}
}

// AddPromo seeds a promo code.
func (s *memStore) AddPromo(promo domain.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	promo.Code = domain.NormalizePromoCode(promo.Code)
	s.promos[promo.ID] = promo
}

// Ride returns the stored ride for assertions.
func (s *memStore) Ride(id string) domain.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rides[id]
}

// PaymentCount returns the number of stored payments.
func (s *memStore) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// Redemptions returns the stored redemptions of a rider.
func (s *memStore) Redemptions(riderID string) []domain.PromoRedemption {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PromoRedemption
	for _, r := range s.redemptions {
		if r.RiderID == riderID {
			out = append(out, r)
		}
	}
	return out
}

// Promo returns the stored promo by code.
func (s *memStore) Promo(code string) domain.PromoCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.promos {
		if p.Code == domain.NormalizePromoCode(code) {
			return p
		}
	}
	return domain.PromoCode{}
}

// MockTransactor runs fn against the shared store, rolling back on error.
type MockTransactor struct {
	store *memStore
}

func (t *MockTransactor) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(t.store.repositories()); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository.
type MockRideRepository struct {
	store *memStore
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	if m.store.CreateRideError != nil {
		return m.store.CreateRideError
	}
	for _, r := range m.store.rides {
		if r.RiderID == ride.RiderID && r.Status.IsActive() {
			return repository.ErrRiderActiveRideExists
		}
	}
	m.store.rides[ride.ID] = *ride
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *MockRideRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.store.rides {
		if r.RiderID == riderID && r.Status.IsActive() {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRideRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Ride, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.store.rides {
		if r.DriverID == driverID && holdsDriver(r.Status) {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRideRepository) CompareAndSwap(ctx context.Context, ride *domain.Ride, expectedRevision int) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	stored, ok := m.store.rides[ride.ID]
	if !ok || stored.Revision != expectedRevision {
		return false, nil
	}
	if ride.DriverID != "" && holdsDriver(ride.Status) {
		for id, r := range m.store.rides {
			if id != ride.ID && r.DriverID == ride.DriverID && holdsDriver(r.Status) {
				return false, repository.ErrDriverActiveRideExists
			}
		}
	}

	ride.Revision = expectedRevision + 1
	m.store.rides[ride.ID] = *ride
	return true, nil
}

func (m *MockRideRepository) ListRequestedSince(ctx context.Context, since time.Time, limit int) ([]*domain.Ride, error) {
	return m.list(limit, func(r domain.Ride) bool {
		return r.Status == domain.RideStatusRequested && r.RequestedAt.After(since)
	}), nil
}

func (m *MockRideRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error) {
	return m.list(limit, func(r domain.Ride) bool { return r.RiderID == riderID }), nil
}

func (m *MockRideRepository) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	return m.list(limit, func(r domain.Ride) bool {
		return r.DriverID == driverID || r.CancelledDriverID == driverID
	}), nil
}

func (m *MockRideRepository) ListAwaitingPayment(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	m.store.mu.Lock()
	paid := make(map[string]bool)
	for _, p := range m.store.payments {
		if p.Status == domain.PaymentStatusSucceeded {
			paid[p.RideID] = true
		}
	}
	m.store.mu.Unlock()

	return m.list(0, func(r domain.Ride) bool {
		return r.RiderID == riderID && r.Status == domain.RideStatusCompleted && !paid[r.ID]
	}), nil
}

func (m *MockRideRepository) list(limit int, keep func(domain.Ride) bool) []*domain.Ride {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	out := make([]*domain.Ride, 0)
	for _, r := range m.store.rides {
		if keep(r) {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.After(out[j].RequestedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func holdsDriver(s domain.RideStatus) bool {
	return s == domain.RideStatusAccepted || s == domain.RideStatusInProgress
}

// MockRideEventRepository is a mock implementation of RideEventRepository.
type MockRideEventRepository struct {
	store *memStore
}

func (m *MockRideEventRepository) Append(ctx context.Context, event *domain.RideEvent) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.seq++
	event.Seq = m.store.seq
	m.store.events = append(m.store.events, *event)
	return nil
}

func (m *MockRideEventRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.RideEvent, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make([]*domain.RideEvent, 0)
	for _, e := range m.store.events {
		if e.RideID == rideID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────
// MOCK PROMO REPOSITORY
// ──────────────────────────────────────────────

// MockPromoRepository is a mock implementation of PromoRepository.
type MockPromoRepository struct {
	store *memStore
}

func (m *MockPromoRepository) GetByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, p := range m.store.promos {
		if strings.EqualFold(p.Code, code) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPromoRepository) IncrementUsage(ctx context.Context, promoID string) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.promos[promoID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit {
		return false, nil
	}
	p.UsedCount++
	m.store.promos[promoID] = p
	return true, nil
}

func (m *MockPromoRepository) HasRedemption(ctx context.Context, promoID, riderID string) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, r := range m.store.redemptions {
		if r.PromoID == promoID && r.RiderID == riderID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPromoRepository) CreateRedemption(ctx context.Context, redemption *domain.PromoRedemption) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if redemption.SingleUse {
		for _, r := range m.store.redemptions {
			if r.SingleUse && r.PromoID == redemption.PromoID && r.RiderID == redemption.RiderID {
				return repository.ErrDuplicateRedemption
			}
		}
	}
	m.store.redemptions[redemption.ID] = *redemption
	return nil
}

func (m *MockPromoRepository) ClaimRedemption(ctx context.Context, code, riderID string) (*domain.PromoRedemption, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	var found *domain.PromoRedemption
	for _, r := range m.store.redemptions {
		if r.RideID != "" || r.RiderID != riderID || !strings.EqualFold(r.Code, code) {
			continue
		}
		if found == nil || r.CreatedAt.Before(found.CreatedAt) {
			r := r
			found = &r
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (m *MockPromoRepository) AttachRedemption(ctx context.Context, redemptionID, rideID string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	r, ok := m.store.redemptions[redemptionID]
	if !ok || r.RideID != "" {
		return repository.ErrNotFound
	}
	r.RideID = rideID
	m.store.redemptions[redemptionID] = r
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	store *memStore
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, existing := range m.store.payments {
		if existing.RideID == p.RideID {
			return repository.ErrPaymentExists
		}
	}
	stored := *p
	stored.ClientSecret = ""
	m.store.payments[p.ID] = stored
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *MockPaymentRepository) GetByRideID(ctx context.Context, rideID string) (*domain.Payment, error) {
	return m.find(func(p domain.Payment) bool { return p.RideID == rideID })
}

func (m *MockPaymentRepository) GetByExternalRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return m.find(func(p domain.Payment) bool { return p.ExternalRef != "" && p.ExternalRef == ref })
}

func (m *MockPaymentRepository) ListByRider(ctx context.Context, riderID string) ([]*domain.Payment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := make([]*domain.Payment, 0)
	for _, p := range m.store.payments {
		if p.RiderID == riderID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.payments[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status == domain.PaymentStatusSucceeded {
		return repository.ErrPaymentAlreadySucceeded
	}
	updated := *p
	updated.ClientSecret = ""
	m.store.payments[p.ID] = updated
	return nil
}

func (m *MockPaymentRepository) find(match func(domain.Payment) bool) (*domain.Payment, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, p := range m.store.payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu        sync.Mutex
	locations map[string]redis.DriverLocation

	UpdateLocationCallCount int
	UpdateLocationError     error
}

func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[string]redis.DriverLocation)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateLocationCallCount++
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, driverID string) (*redis.DriverLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.locations[driverID]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []redis.DriverLocation
	for _, loc := range m.locations {
		d := testHaversineKm(lat, lng, loc.Lat, loc.Lng)
		if d <= radiusKm {
			loc.DistanceKm = d
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// MockPresenceStore is a mock implementation of PresenceStoreInterface.
type MockPresenceStore struct {
	mu         sync.Mutex
	heartbeats map[string]time.Time
}

func NewMockPresenceStore() *MockPresenceStore {
	return &MockPresenceStore{heartbeats: make(map[string]time.Time)}
}

func (m *MockPresenceStore) Heartbeat(ctx context.Context, driverID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats[driverID] = at
	return nil
}

func (m *MockPresenceStore) LastHeartbeat(ctx context.Context, driverID string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.heartbeats[driverID]
	return at, ok, nil
}

func (m *MockPresenceStore) GoOffline(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.heartbeats, driverID)
	return nil
}

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	AcquireCallCount int
	ReleaseCallCount int
}

func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AcquireCallCount++
	if _, held := m.locks[rideID]; held {
		return "", false, nil
	}
	token := uuid.New().String()
	m.locks[rideID] = token
	return token, true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCallCount++
	if m.locks[rideID] == token {
		delete(m.locks, rideID)
	}
	return nil
}

// Hold takes the ride lock on behalf of another settlement.
func (m *MockLockStore) Hold(rideID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[rideID] = "held-elsewhere"
}

// ──────────────────────────────────────────────
// OTHER COLLABORATORS
// ──────────────────────────────────────────────

// recordingPublisher captures published notifications.
type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{messages: make(map[string][][]byte)}
}

func (p *recordingPublisher) Publish(userID string, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[userID] = append(p.messages[userID], payload)
}

func (p *recordingPublisher) Received(userID, notificationType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.messages[userID] {
		if strings.Contains(string(m), `"type":"`+notificationType+`"`) {
			return true
		}
	}
	return false
}

// stubDistance answers routing queries with a fixed result.
type stubDistance struct {
	km    float64
	err   error
	block bool
	calls int
}

func (s *stubDistance) DrivingDistanceKm(ctx context.Context, from, to domain.Location) (float64, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return s.km, s.err
}

// slowProcessor never answers before the caller's deadline.
type slowProcessor struct {
	*payment.MockProcessor
}

func (p *slowProcessor) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// stuckCancelProcessor refuses to cancel intents.
type stuckCancelProcessor struct {
	*payment.MockProcessor
}

func (p *stuckCancelProcessor) CancelIntent(ctx context.Context, id string) error {
	return errors.New("processor rejected cancellation")
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testHaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const r = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat, dLng := rad(lat2-lat1), rad(lng2-lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * r * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

type fixture struct {
	store     *memStore
	repos     repository.Repositories
	locations *MockLocationStore
	presence  *MockPresenceStore
	locks     *MockLockStore
	processor payment.Processor
	publisher *recordingPublisher
	clock     *fakeClock
	distance  *stubDistance

	drivers  *service.DriverService
	promos   *service.PromoService
	rides    *service.RideService
	payments *service.PaymentService
	receipts *service.ReceiptService
}

type fixtureOption func(*fixture)

func withProcessor(p payment.Processor) fixtureOption {
	return func(f *fixture) { f.processor = p }
}

func withDistance(d *stubDistance) fixtureOption {
	return func(f *fixture) { f.distance = d }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	store := newMemStore()
	locations := NewMockLocationStore()
	f := &fixture{
		store:     store,
		repos:     store.repositories(),
		locations: locations,
		presence:  NewMockPresenceStore(),
		locks:     NewMockLockStore(),
		processor: payment.NewMockProcessor(),
		publisher: newRecordingPublisher(),
		clock:     &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, opt := range opts {
		opt(f)
	}

	transactor := &MockTransactor{store: store}
	notifications := service.NewNotificationService(f.publisher)

	f.drivers = service.NewDriverService(f.locations, f.presence, f.repos.Rides, service.AvailabilityConfig{
		StaleAfter:     10 * time.Minute,
		HeartbeatTTL:   time.Minute,
		FeedRadiusKm:   10,
		FeedLimit:      50,
		NearbyNotifyKm: 5,
		Clock:          f.clock.Now,
	})
	f.promos = service.NewPromoService(f.repos.Promos, transactor)

	var distance service.DistanceEstimator
	if f.distance != nil {
		distance = f.distance
	}
	f.rides = service.NewRideService(
		f.repos.Rides,
		f.repos.Events,
		transactor,
		f.drivers,
		f.promos,
		distance,
		notifications,
		service.RideConfig{UpstreamTimeout: 50 * time.Millisecond, Clock: f.clock.Now},
	)
	f.payments = service.NewPaymentService(f.repos.Payments, f.repos.Rides, f.locks, f.processor, notifications, service.PaymentConfig{
		Currency:        "INR",
		LockTTL:         time.Second,
		UpstreamTimeout: 50 * time.Millisecond,
		Clock:           f.clock.Now,
	})
	f.receipts = service.NewReceiptService(f.rides, f.repos.Payments, "INR")
	return f
}

func ptr[T any](v T) *T { return &v }

var (
	bangalorePickup  = domain.Location{Address: "MG Road", Lat: 12.9756, Lng: 77.6050}
	bangaloreDropoff = domain.Location{Address: "Indiranagar", Lat: 12.9784, Lng: 77.6408}
)

// goOnline heartbeats the driver at the given position.
func (f *fixture) goOnline(t *testing.T, driverID string, lat, lng float64) {
	t.Helper()
	_, err := f.drivers.Heartbeat(context.Background(), service.HeartbeatRequest{
		DriverID: driverID,
		Online:   true,
		Lat:      &lat,
		Lng:      &lng,
	})
	if err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
}

// requestRide creates a ride with an explicit distance.
func (f *fixture) requestRide(t *testing.T, riderID string, distanceKm float64) *domain.Ride {
	t.Helper()
	ride, err := f.rides.CreateRide(context.Background(), service.CreateRideRequest{
		RiderID:    riderID,
		Pickup:     bangalorePickup,
		Dropoff:    bangaloreDropoff,
		DistanceKm: &distanceKm,
	})
	if err != nil {
		t.Fatalf("CreateRide failed: %v", err)
	}
	return ride
}

// completedRide drives a ride through the whole lifecycle.
func (f *fixture) completedRide(t *testing.T, riderID, driverID string, distanceKm float64) *domain.Ride {
	t.Helper()
	ctx := context.Background()

	f.goOnline(t, driverID, bangalorePickup.Lat, bangalorePickup.Lng)
	ride := f.requestRide(t, riderID, distanceKm)

	if _, err := f.rides.AcceptRide(ctx, ride.ID, driverID); err != nil {
		t.Fatalf("AcceptRide failed: %v", err)
	}
	if _, err := f.rides.StartRide(ctx, ride.ID, driverID); err != nil {
		t.Fatalf("StartRide failed: %v", err)
	}
	completed, err := f.rides.CompleteRide(ctx, ride.ID, driverID)
	if err != nil {
		t.Fatalf("CompleteRide failed: %v", err)
	}
	return completed
}
