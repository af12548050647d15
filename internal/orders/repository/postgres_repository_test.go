package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *Repository {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))

	t.Cleanup(func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	return repo
}

func newTestOrder(customerID string) *domain.Order {
	order := &domain.Order{
		ID: uuid.New(),
		Lines: []domain.OrderLine{
			{ProductID: 1, DisplayName: "Sweater", UnitListPrice: decimal.RequireFromString("100.00"),
				UnitFinalPrice: decimal.RequireFromString("80.00"), Quantity: 2, SelectedColor: "navy", SelectedSize: "M"},
			{ProductID: 2, DisplayName: "Tote", UnitListPrice: decimal.RequireFromString("50.00"),
				UnitFinalPrice: decimal.RequireFromString("50.00"), Quantity: 1},
		},
		Subtotal:      decimal.RequireFromString("210.00"),
		DiscountTotal: decimal.RequireFromString("40.00"),
		ShippingAddress: domain.ShippingAddress{
			Country: "PT", City: "Lisbon", Postcode: "1100-148", Street: "Rua Augusta 1",
		},
		PaymentMethodID: "card",
		Status:          domain.StatusPending,
		PromoCode:       "SPRING",
	}
	if customerID != "" {
		order.CustomerID = &customerID
	}
	return order
}

func TestCreateOrder_RoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("customer-1")
	require.NoError(t, repo.CreateOrder(ctx, order))
	assert.False(t, order.CreatedAt.IsZero())

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, order.ID, fetched.ID)
	assert.Equal(t, domain.StatusPending, fetched.Status)
	assert.True(t, order.Subtotal.Equal(fetched.Subtotal))
	assert.True(t, order.DiscountTotal.Equal(fetched.DiscountTotal))
	assert.Equal(t, order.ShippingAddress, fetched.ShippingAddress)
	assert.Equal(t, "card", fetched.PaymentMethodID)
	require.NotNil(t, fetched.CustomerID)
	assert.Equal(t, "customer-1", *fetched.CustomerID)
	assert.Equal(t, "SPRING", fetched.PromoCode)

	require.Len(t, fetched.Lines, 2)
	assert.True(t, fetched.Lines[0].UnitFinalPrice.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "navy", fetched.Lines[0].SelectedColor)
}

func TestCreateOrder_GuestHasNoCustomer(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("")
	require.NoError(t, repo.CreateOrder(ctx, order))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.CustomerID)
}

func TestCreateOrder_DuplicateIdempotencyKey(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := newTestOrder("customer-1")
	first.IdempotencyKey = "key-1"
	require.NoError(t, repo.CreateOrder(ctx, first))

	second := newTestOrder("customer-1")
	second.IdempotencyKey = "key-1"
	assert.ErrorIs(t, repo.CreateOrder(ctx, second), ErrDuplicateIdempotencyKey)

	_, err := repo.GetOrderByID(ctx, second.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	byKey, err := repo.GetOrderByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byKey.ID)

	// orders without a key never collide
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("")))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("")))
}

func TestCreateOrder_WritesOutboxEvent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("customer-1")
	require.NoError(t, repo.CreateOrder(ctx, order))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID.String(), events[0].AggregateID)
	assert.Equal(t, EventOrderPlaced, events[0].EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "pending", payload["status"])

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestAdvanceStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("customer-1")
	require.NoError(t, repo.CreateOrder(ctx, order))

	updated, err := repo.AdvanceStatus(ctx, order.ID, domain.StatusPending, domain.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, updated.Status)

	// a second writer still expecting pending loses
	_, err = repo.AdvanceStatus(ctx, order.ID, domain.StatusPending, domain.StatusAccepted)
	assert.ErrorIs(t, err, ErrStatusMismatch)

	_, err = repo.AdvanceStatus(ctx, uuid.New(), domain.StatusPending, domain.StatusAccepted)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, fetched.Status)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventOrderStatusAdvanced, events[1].EventType)
}

func TestListOrders(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := newTestOrder("customer-list")
	require.NoError(t, repo.CreateOrder(ctx, first))

	// distinct created_at timestamps
	time.Sleep(10 * time.Millisecond)

	second := newTestOrder("customer-list")
	require.NoError(t, repo.CreateOrder(ctx, second))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("someone-else")))

	_, err := repo.AdvanceStatus(ctx, second.ID, domain.StatusPending, domain.StatusAccepted)
	require.NoError(t, err)

	mine, err := repo.ListOrdersByCustomer(ctx, "customer-list")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	pending, err := repo.ListOrdersByStatus(ctx, domain.StatusPending, 50)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	accepted, err := repo.ListOrdersByStatus(ctx, domain.StatusAccepted, 50)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, second.ID, accepted[0].ID)
}

func TestPaymentMethods(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	cod, err := repo.GetPaymentMethod(ctx, "cod")
	require.NoError(t, err)
	assert.True(t, cod.Fee.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, cod.IsActive)

	_, err = repo.GetPaymentMethod(ctx, "crypto")
	assert.ErrorIs(t, err, ErrPaymentMethodNotFound)

	active, err := repo.ListPaymentMethods(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := repo.ListPaymentMethods(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
