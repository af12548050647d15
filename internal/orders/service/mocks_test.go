package service

import (
	"context"
	"sort"
	"sync"
	"time"

	catalog "github.com/fjod/storefront/internal/catalog/domain"
	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memoryRepository mirrors the Postgres repository: CAS on status, unique
// idempotency keys and one event per change.
type memoryRepository struct {
	mu             sync.Mutex
	orders         map[uuid.UUID]*domain.Order
	byKey          map[string]uuid.UUID
	methods        map[string]*domain.PaymentMethod
	events         []string
	createCalls    int
	spuriousMisses int // AdvanceStatus reports a mismatch this many times before applying
	hiddenKeys     int // GetOrderByIdempotencyKey reports not found this many times
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		orders: make(map[uuid.UUID]*domain.Order),
		byKey:  make(map[string]uuid.UUID),
		methods: map[string]*domain.PaymentMethod{
			"card":          {ID: "card", Title: "Card", Fee: decimal.Zero, IsActive: true},
			"cod":           {ID: "cod", Title: "Cash on delivery", Fee: decimal.RequireFromString("2.50"), IsActive: true},
			"bank_transfer": {ID: "bank_transfer", Title: "Bank transfer", Fee: decimal.Zero, IsActive: false},
		},
	}
}

func copyOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &c
}

func (m *memoryRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++

	if order.IdempotencyKey != "" {
		if _, ok := m.byKey[order.IdempotencyKey]; ok {
			return repository.ErrDuplicateIdempotencyKey
		}
		m.byKey[order.IdempotencyKey] = order.ID
	}
	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	m.orders[order.ID] = copyOrder(order)
	m.events = append(m.events, repository.EventOrderPlaced)
	return nil
}

func (m *memoryRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *memoryRepository) GetOrderByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[key]
	if !ok || m.hiddenKeys > 0 {
		if m.hiddenKeys > 0 {
			m.hiddenKeys--
		}
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(m.orders[id]), nil
}

func (m *memoryRepository) AdvanceStatus(_ context.Context, id uuid.UUID, expected, next domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if m.spuriousMisses > 0 {
		m.spuriousMisses--
		return nil, repository.ErrStatusMismatch
	}
	if o.Status != expected {
		return nil, repository.ErrStatusMismatch
	}
	o.Status = next
	m.events = append(m.events, repository.EventOrderStatusAdvanced)
	return copyOrder(o), nil
}

func (m *memoryRepository) ListOrdersByCustomer(_ context.Context, customerID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRepository) ListOrdersByStatus(_ context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepository) GetPaymentMethod(_ context.Context, id string) (*domain.PaymentMethod, error) {
	pm, ok := m.methods[id]
	if !ok {
		return nil, repository.ErrPaymentMethodNotFound
	}
	return pm, nil
}

func (m *memoryRepository) ListPaymentMethods(_ context.Context, activeOnly bool) ([]*domain.PaymentMethod, error) {
	var out []*domain.PaymentMethod
	for _, pm := range m.methods {
		if pm.IsActive || !activeOnly {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepository) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type fakeCatalog map[int64]*catalog.Product

func (f fakeCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		1: {ID: 1, Name: "Sweater", Price: decimal.NewFromInt(100), DiscountPercent: decimal.NewFromInt(20),
			ImageURL: "img/1.jpg", Colors: []string{"grey", "navy"}, Sizes: []string{"S", "M"}},
		2: {ID: 2, Name: "Tote", Price: decimal.NewFromInt(50), DiscountPercent: decimal.Zero},
		3: {ID: 3, Name: "Broken", Price: decimal.NewFromInt(10), DiscountPercent: decimal.NewFromInt(-5)},
	}
}

func validSubmission() domain.Submission {
	return domain.Submission{
		Lines: []domain.OrderLine{
			{ProductID: 1, Quantity: 2, SelectedColor: "navy", SelectedSize: "M"},
			{ProductID: 2, Quantity: 1},
		},
		Total:    decimal.NewFromInt(210),
		Discount: decimal.NewFromInt(40),
		ShippingAddress: domain.ShippingAddress{
			Country: "PT", City: "Porto", Postcode: "4000-322", Street: "Rua de Santa Catarina 10",
		},
		PaymentMethodID: "cod",
	}
}
