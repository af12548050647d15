package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) execTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

type orderEvent struct {
	OrderID        uuid.UUID          `json:"order_id"`
	Status         domain.OrderStatus `json:"status"`
	PreviousStatus domain.OrderStatus `json:"previous_status,omitempty"`
	CustomerID     *string            `json:"customer_id,omitempty"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

func insertEvent(ctx context.Context, tx *sql.Tx, eventType string, ev orderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload) VALUES ($1, $2, $3)`,
		ev.OrderID.String(), eventType, payload)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", eventType, err)
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order lines: %w", err)
	}

	var idempotencyKey sql.NullString
	if order.IdempotencyKey != "" {
		idempotencyKey = sql.NullString{String: order.IdempotencyKey, Valid: true}
	}

	return r.execTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO orders (id, lines, subtotal, discount_total,
		              shipping_country, shipping_city, shipping_postcode, shipping_street,
		              payment_method_id, status, customer_id, promo_code, idempotency_key,
		              created_at, updated_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		          RETURNING created_at, updated_at`

		insertErr := tx.QueryRowContext(ctx, query,
			order.ID,
			linesJSON,
			order.Subtotal,
			order.DiscountTotal,
			order.ShippingAddress.Country,
			order.ShippingAddress.City,
			order.ShippingAddress.Postcode,
			order.ShippingAddress.Street,
			order.PaymentMethodID,
			order.Status,
			order.CustomerID,
			order.PromoCode,
			idempotencyKey,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if insertErr != nil {
			var pqErr *pq.Error
			if errors.As(insertErr, &pqErr) && pqErr.Code == uniqueViolation {
				return ErrDuplicateIdempotencyKey
			}
			return fmt.Errorf("insert order: %w", insertErr)
		}

		return insertEvent(ctx, tx, EventOrderPlaced, orderEvent{
			OrderID:    order.ID,
			Status:     order.Status,
			CustomerID: order.CustomerID,
			Subtotal:   order.Subtotal,
			OccurredAt: order.CreatedAt,
		})
	})
}

const orderColumns = `id, lines, subtotal, discount_total,
	shipping_country, shipping_city, shipping_postcode, shipping_street,
	payment_method_id, status, customer_id, promo_code, idempotency_key,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order          domain.Order
		linesJSON      []byte
		status         string
		customerID     sql.NullString
		idempotencyKey sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&linesJSON,
		&order.Subtotal,
		&order.DiscountTotal,
		&order.ShippingAddress.Country,
		&order.ShippingAddress.City,
		&order.ShippingAddress.Postcode,
		&order.ShippingAddress.Street,
		&order.PaymentMethodID,
		&status,
		&customerID,
		&order.PromoCode,
		&idempotencyKey,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if order.Status, err = domain.ParseOrderStatus(status); err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}
	if customerID.Valid {
		order.CustomerID = &customerID.String
	}
	order.IdempotencyKey = idempotencyKey.String

	if err := json.Unmarshal(linesJSON, &order.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	return &order, nil
}

func (r *Repository) getOrder(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, `id = $1`, id)
}

func (r *Repository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.getOrder(ctx, `idempotency_key = $1`, key)
}

func (r *Repository) AdvanceStatus(ctx context.Context, id uuid.UUID, expected, next domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order

	err := r.execTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`UPDATE orders SET status = $3, updated_at = NOW()
			 WHERE id = $1 AND status = $2
			 RETURNING `+orderColumns,
			id, expected, next)

		updated, err := scanOrder(row)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("check order exists: %w", err)
			}
			if !exists {
				return ErrOrderNotFound
			}
			return ErrStatusMismatch
		}
		if err != nil {
			return fmt.Errorf("advance order status: %w", err)
		}

		order = updated
		return insertEvent(ctx, tx, EventOrderStatusAdvanced, orderEvent{
			OrderID:        updated.ID,
			Status:         updated.Status,
			PreviousStatus: expected,
			CustomerID:     updated.CustomerID,
			Subtotal:       updated.Subtotal,
			OccurredAt:     updated.UpdatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *Repository) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID)
}

// ListOrdersByStatus returns the oldest orders first, which is the order staff
// work through them.
func (r *Repository) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		status, limit)
}

func (r *Repository) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, icon, fee, is_active FROM payment_methods WHERE id = $1`, id,
	).Scan(&pm.ID, &pm.Title, &pm.Icon, &pm.Fee, &pm.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentMethodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment method: %w", err)
	}
	return &pm, nil
}

func (r *Repository) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]*domain.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, icon, fee, is_active FROM payment_methods
		 WHERE is_active OR NOT $1
		 ORDER BY id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("query payment methods: %w", err)
	}
	defer rows.Close()

	methods := make([]*domain.PaymentMethod, 0)
	for rows.Next() {
		var pm domain.PaymentMethod
		if err := rows.Scan(&pm.ID, &pm.Title, &pm.Icon, &pm.Fee, &pm.IsActive); err != nil {
			return nil, fmt.Errorf("scan payment method: %w", err)
		}
		methods = append(methods, &pm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return methods, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed_at IS NULL
		 ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var (
			e       OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Payload = payload
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d processed: %w", id, err)
	}
	return nil
}
