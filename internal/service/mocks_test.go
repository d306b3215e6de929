package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onemedi/onemedi-api/internal/cache"
	"github.com/onemedi/onemedi-api/internal/domain"
	"github.com/onemedi/onemedi-api/internal/payment"
	"github.com/onemedi/onemedi-api/internal/repository"
)

// mockCartRepo implements repository.CartRepository for testing
type mockCartRepo struct {
	Cart    *domain.Cart
	Err     error
	Cleared bool

	AddedItem   *domain.RegularItem
	UpdatedQty  int
	RemovedID   string
	SavedID     string
	MovedID     string
	RemovedSave string
}

func (m *mockCartRepo) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Cart == nil {
		return nil, repository.ErrCartNotFound
	}
	return m.Cart, nil
}

func (m *mockCartRepo) UpsertCart(_ context.Context, cart *domain.Cart) error {
	m.Cart = cart
	return m.Err
}

func (m *mockCartRepo) AddItem(_ context.Context, _ string, item domain.RegularItem) error {
	m.AddedItem = &item
	return m.Err
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, _, _ string, quantity int) error {
	m.UpdatedQty = quantity
	return m.Err
}

func (m *mockCartRepo) RemoveItem(_ context.Context, _, itemID string) error {
	m.RemovedID = itemID
	return m.Err
}

func (m *mockCartRepo) SaveForLater(_ context.Context, _, itemID string) error {
	m.SavedID = itemID
	return m.Err
}

func (m *mockCartRepo) MoveToCart(_ context.Context, _, itemID string) error {
	m.MovedID = itemID
	return m.Err
}

func (m *mockCartRepo) RemoveSavedItem(_ context.Context, _, itemID string) error {
	m.RemovedSave = itemID
	return m.Err
}

func (m *mockCartRepo) ClearActiveItems(_ context.Context, _ string) error {
	m.Cleared = true
	return m.Err
}

func (m *mockCartRepo) DeleteCart(_ context.Context, _ string) error {
	return m.Err
}

// mockCartCache implements cache.CartCache for testing
type mockCartCache struct {
	mu      sync.Mutex
	data    map[string]*domain.Cart
	Sets    int
	Deletes int
}

func newMockCartCache() *mockCartCache {
	return &mockCartCache{data: make(map[string]*domain.Cart)}
}

func (m *mockCartCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cart, ok := m.data[userID]; ok {
		return cart, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *mockCartCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = cart
	m.Sets++
	return nil
}

func (m *mockCartCache) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	m.Deletes++
	return nil
}

// mockPrescriptionRepo implements repository.PrescriptionRepository for testing
type mockPrescriptionRepo struct {
	Items         []domain.PrescriptionItem
	Prescriptions []domain.Prescription
	Err           error
	Cleared       bool

	AddedItems []domain.PrescriptionItem
}

func (m *mockPrescriptionRepo) AddItems(_ context.Context, _, _ string, items []domain.PrescriptionItem) error {
	if m.Err != nil {
		return m.Err
	}
	m.AddedItems = items
	m.Items = append(m.Items, items...)
	return nil
}

func (m *mockPrescriptionRepo) UserItems(_ context.Context, _ string) ([]domain.PrescriptionItem, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Items, nil
}

func (m *mockPrescriptionRepo) UpdateItemQuantity(_ context.Context, _, _ string, _ int, _ int64) error {
	return m.Err
}

func (m *mockPrescriptionRepo) RemoveItem(_ context.Context, _, _ string, _ int64) error {
	return m.Err
}

func (m *mockPrescriptionRepo) ClearUserItems(_ context.Context, _ string) error {
	m.Cleared = true
	return m.Err
}

func (m *mockPrescriptionRepo) PrescriptionsByIDs(_ context.Context, ids []string) ([]domain.Prescription, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Prescription
	for _, p := range m.Prescriptions {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

// mockCatalogRepo implements repository.CatalogRepository for testing
type mockCatalogRepo struct {
	Meds map[string]domain.Medicine
	Err  error
}

func (m *mockCatalogRepo) Medicine(_ context.Context, id string) (*domain.Medicine, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	med, ok := m.Meds[id]
	if !ok {
		return nil, repository.ErrMedicineNotFound
	}
	return &med, nil
}

func (m *mockCatalogRepo) Medicines(_ context.Context, ids []string) (map[string]domain.Medicine, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]domain.Medicine)
	for _, id := range ids {
		if med, ok := m.Meds[id]; ok {
			out[id] = med
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) SearchMedicines(_ context.Context, _ string, _ int) ([]domain.Medicine, error) {
	return nil, m.Err
}

// mockCheckoutRepo is a stateful in-memory repository.CheckoutRepository. It
// honors the same status guards as the Postgres implementation so the state
// machine paths are exercised for real.
type mockCheckoutRepo struct {
	mu       sync.Mutex
	sessions map[string]*repository.CheckoutSession
	byKey    map[string]string
	Events   []repository.OutboxEvent
	nextID   int
}

func newMockCheckoutRepo() *mockCheckoutRepo {
	return &mockCheckoutRepo{
		sessions: make(map[string]*repository.CheckoutSession),
		byKey:    make(map[string]string),
	}
}

func (m *mockCheckoutRepo) GetSessionByIdempotencyKey(_ context.Context, key string) (*string, *domain.CheckoutStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok {
		return nil, nil, repository.ErrIdempotencyKeyNotFound
	}
	status := m.sessions[id].Status
	return &id, &status, nil
}

func (m *mockCheckoutRepo) CreateSession(_ context.Context, session *repository.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	m.byKey[session.IdempotencyKey] = session.ID
	return nil
}

func (m *mockCheckoutRepo) GetSession(_ context.Context, id string) (*repository.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *mockCheckoutRepo) UpdateSessionStatus(_ context.Context, id string, from, to domain.CheckoutStatus, lastError *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if session.Status != from {
		return repository.ErrStaleStatus
	}
	session.Status = to
	session.LastError = lastError
	return nil
}

func (m *mockCheckoutRepo) SetAddress(_ context.Context, id, addressID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if session.Status != domain.CheckoutStatusAwaitingSelection {
		return repository.ErrStaleStatus
	}
	session.AddressID = &addressID
	return nil
}

func (m *mockCheckoutRepo) SetPaymentMethod(_ context.Context, id string, method domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if session.Status != domain.CheckoutStatusAwaitingSelection {
		return repository.ErrStaleStatus
	}
	s := string(method)
	session.PaymentMethod = &s
	return nil
}

func (m *mockCheckoutRepo) ConfirmSession(_ context.Context, id string, eventPayload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if session.Status != domain.CheckoutStatusPlacing {
		return repository.ErrStaleStatus
	}
	session.Status = domain.CheckoutStatusConfirmed
	m.nextID++
	m.Events = append(m.Events, repository.OutboxEvent{
		ID:          m.nextID,
		AggregateID: id,
		EventType:   "order.confirmed",
		Payload:     eventPayload,
	})
	return nil
}

func (m *mockCheckoutRepo) ExpireStaleSessions(_ context.Context, now time.Time) ([]repository.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []repository.CheckoutSession
	for _, session := range m.sessions {
		if !session.Status.IsTerminal() && session.ExpiresAt.Before(now) {
			session.Status = domain.CheckoutStatusExpired
			m.nextID++
			m.Events = append(m.Events, repository.OutboxEvent{
				ID:          m.nextID,
				AggregateID: session.ID,
				EventType:   "checkout.expired",
			})
			expired = append(expired, *session)
		}
	}
	return expired, nil
}

func (m *mockCheckoutRepo) GetUnprocessedEvents(_ context.Context, limit int) ([]*repository.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*repository.OutboxEvent
	for i := range m.Events {
		if len(out) == limit {
			break
		}
		ev := m.Events[i]
		out = append(out, &ev)
	}
	return out, nil
}

func (m *mockCheckoutRepo) MarkEventAsProcessed(_ context.Context, _ int) error {
	return nil
}

// mockOrderRepo implements repository.OrderRepository for testing
type mockOrderRepo struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*domain.Order
	byCheckout map[uuid.UUID]uuid.UUID
	CreateErr  error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:     make(map[uuid.UUID]*domain.Order),
		byCheckout: make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockOrderRepo) CreateOrder(_ context.Context, order *domain.Order) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byCheckout[order.CheckoutID]; exists {
		return repository.ErrDuplicateCheckout
	}
	copied := *order
	m.orders[order.ID] = &copied
	m.byCheckout[order.CheckoutID] = order.ID
	return nil
}

func (m *mockOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrderRepo) GetOrderByCheckoutID(_ context.Context, checkoutID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCheckout[checkoutID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *m.orders[id]
	return &copied, nil
}

func (m *mockOrderRepo) UpdateOrderStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (m *mockOrderRepo) ListOrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			copied := *order
			out = append(out, &copied)
		}
	}
	return out, nil
}

// mockAddressRepo implements repository.AddressRepository for testing
type mockAddressRepo struct {
	Addrs map[string]domain.Address
}

func (m *mockAddressRepo) GetAddress(_ context.Context, userID, addressID string) (*domain.Address, error) {
	addr, ok := m.Addrs[addressID]
	if !ok || addr.UserID != userID {
		return nil, repository.ErrAddressNotFound
	}
	return &addr, nil
}

func (m *mockAddressRepo) ListAddresses(_ context.Context, userID string) ([]domain.Address, error) {
	var out []domain.Address
	for _, addr := range m.Addrs {
		if addr.UserID == userID {
			out = append(out, addr)
		}
	}
	return out, nil
}

// mockProcessor implements payment.Processor for testing
type mockProcessor struct {
	Result  *payment.Result
	Err     error
	Charges []payment.ChargeRequest
}

func (m *mockProcessor) Charge(_ context.Context, req payment.ChargeRequest) (*payment.Result, error) {
	m.Charges = append(m.Charges, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}
