package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository define as operações de persistência de pedidos
type OrderRepository interface {
	// CreateOrder persiste o pedido e suas linhas em uma transação
	CreateOrder(ctx context.Context, order *Order) error

	// GetOrder busca um pedido com suas linhas
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// TransitionStatus aplica a transição from -> to condicionalmente;
	// retorna false quando o pedido não estava mais em `from` (outro
	// chamador venceu a transição)
	TransitionStatus(ctx context.Context, orderID, from, to string) (bool, error)

	// ListExpiredPending lista pedidos PENDING_PAYMENT vencidos
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Order, error)
}

// PostgresOrderRepository implementa OrderRepository usando PostgreSQL
type PostgresOrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository cria uma nova instância de PostgresOrderRepository
func NewOrderRepository(pool *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{pool: pool}
}

// CreateOrder persiste o pedido e suas linhas em uma transação
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_cents, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, order.ID, order.UserID, order.TotalCents, order.Status, order.ExpiresAt, order.CreatedAt, order.UpdatedAt); err != nil {
		return fmt.Errorf("falha ao criar pedido: %w", err)
	}

	// position preserva a ordem das linhas informada pelo chamador
	for pos, item := range order.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, color, size, quantity, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New().String(), order.ID, pos, item.ProductID, item.Color, string(item.Size), item.Quantity, item.PriceCents); err != nil {
			return fmt.Errorf("falha ao criar linha do pedido: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao comitar pedido: %w", err)
	}
	return nil
}

// GetOrder busca um pedido pelo ID, com suas linhas
func (r *PostgresOrderRepository) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, total_cents, status, expires_at, created_at, updated_at
		FROM orders WHERE id = $1
	`, orderID).Scan(&order.ID, &order.UserID, &order.TotalCents, &order.Status,
		&order.ExpiresAt, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("falha ao buscar pedido: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// TransitionStatus aplica uma transição condicional de status. O
// status anterior no WHERE garante que apenas um chamador concorrente
// vence a transição (webhook de pagamento vs. reaper de expiração).
func (r *PostgresOrderRepository) TransitionStatus(ctx context.Context, orderID, from, to string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, orderID, from, to)
	if err != nil {
		return false, fmt.Errorf("falha ao atualizar status do pedido: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// ListExpiredPending lista pedidos pendentes cujo prazo de pagamento venceu
func (r *PostgresOrderRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, total_cents, status, expires_at, created_at, updated_at
		FROM orders
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3
	`, OrderStatusPendingPayment, now, limit)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar pedidos vencidos: %w", err)
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.TotalCents, &order.Status,
			&order.ExpiresAt, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("falha ao ler pedido vencido: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("falha ao iterar pedidos vencidos: %w", err)
	}

	for _, order := range orders {
		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, color, size, quantity, price_cents
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("falha ao buscar linhas do pedido: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		var size string
		if err := rows.Scan(&item.ProductID, &item.Color, &size, &item.Quantity, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("falha ao ler linha do pedido: %w", err)
		}
		item.Size = Size(size)
		items = append(items, item)
	}
	return items, rows.Err()
}
