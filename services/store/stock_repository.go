package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockRepository define as operações de persistência do ledger de
// estoque. Nenhum outro caminho de código escreve available/reserved.
type StockRepository interface {
	// Reserve move qty de available para reserved (available >= qty)
	Reserve(ctx context.Context, ref VariantRef, qty int, orderID string) error

	// Release devolve qty de reserved para available (reserved >= qty)
	Release(ctx context.Context, ref VariantRef, qty int, orderID string) error

	// Finalize remove qty de reserved permanentemente (reserved >= qty)
	Finalize(ctx context.Context, ref VariantRef, qty int, orderID string) error

	// Restock adiciona qty a available, sem pré-condição de estoque
	Restock(ctx context.Context, ref VariantRef, qty int) error

	// GetVariant resolve a tripla para leitura de preço e contadores
	GetVariant(ctx context.Context, ref VariantRef) (*Variant, error)
}

// PostgresStockRepository implementa StockRepository usando PostgreSQL
type PostgresStockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository cria uma nova instância de PostgresStockRepository
func NewStockRepository(pool *pgxpool.Pool) *PostgresStockRepository {
	return &PostgresStockRepository{pool: pool}
}

// Cada mutação é UM update condicional: a pré-condição vive no WHERE
// e rowsAffected == 0 é o único sinal de falha. Nunca ler-verificar-
// escrever em passos separados: duas reservas concorrentes passariam
// ambas na verificação e venderiam além do estoque.
const (
	reserveQuery = `
		UPDATE product_variants
		SET available = available - $4,
			reserved = reserved + $4,
			updated_at = NOW()
		WHERE product_id = $1 AND color = $2 AND size = $3
			AND available >= $4
	`

	releaseQuery = `
		UPDATE product_variants
		SET reserved = reserved - $4,
			available = available + $4,
			updated_at = NOW()
		WHERE product_id = $1 AND color = $2 AND size = $3
			AND reserved >= $4
	`

	finalizeQuery = `
		UPDATE product_variants
		SET reserved = reserved - $4,
			updated_at = NOW()
		WHERE product_id = $1 AND color = $2 AND size = $3
			AND reserved >= $4
	`

	restockQuery = `
		UPDATE product_variants
		SET available = available + $4,
			updated_at = NOW()
		WHERE product_id = $1 AND color = $2 AND size = $3
	`
)

// Reserve move qty unidades de available para reserved
func (r *PostgresStockRepository) Reserve(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	return r.mutate(ctx, ref, qty, orderID, "reserve", reserveQuery, ErrInsufficientStock)
}

// Release devolve qty unidades de reserved para available
func (r *PostgresStockRepository) Release(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	return r.mutate(ctx, ref, qty, orderID, "release", releaseQuery, ErrReservationNotFound)
}

// Finalize remove qty unidades reservadas (a mercadoria saiu do armazém)
func (r *PostgresStockRepository) Finalize(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	return r.mutate(ctx, ref, qty, orderID, "finalize", finalizeQuery, ErrReservationNotFound)
}

// Restock adiciona qty unidades a available; falha apenas se a
// variante não existir
func (r *PostgresStockRepository) Restock(ctx context.Context, ref VariantRef, qty int) error {
	return r.mutate(ctx, ref, qty, "", "restock", restockQuery, ErrVariantNotFound)
}

// mutate executa o update condicional e, na mesma transação, registra
// a movimentação e incrementa o contador de versão do produto pai.
// preconditionErr é o erro retornado quando a variante existe mas a
// pré-condição não foi satisfeita no momento do update.
func (r *PostgresStockRepository) mutate(
	ctx context.Context,
	ref VariantRef,
	qty int,
	orderID string,
	movementType string,
	query string,
	preconditionErr error,
) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Update condicional (pré-condição + mutação em um passo atômico)
	ct, err := tx.Exec(ctx, query, ref.ProductID, ref.Color, string(ref.Size), qty)
	if err != nil {
		return fmt.Errorf("falha ao atualizar estoque (%s): %w", movementType, err)
	}

	// 2. Zero linhas afetadas: desambiguar relendo a existência da variante
	if ct.RowsAffected() == 0 {
		exists, err := r.variantExists(ctx, tx, ref)
		if err != nil {
			return err
		}
		if !exists {
			return ErrVariantNotFound
		}
		return preconditionErr
	}

	// 3. Contador de versão do produto pai (diagnóstico de concorrência)
	if _, err := tx.Exec(ctx, `
		UPDATE products SET version = version + 1, updated_at = NOW()
		WHERE id = $1
	`, ref.ProductID); err != nil {
		return fmt.Errorf("falha ao incrementar versão do produto: %w", err)
	}

	// 4. Journal de movimentação
	var orderRef any
	if orderID != "" {
		orderRef = orderID
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, color, size, order_id, quantity, movement_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, uuid.New().String(), ref.ProductID, ref.Color, string(ref.Size), orderRef, qty, movementType); err != nil {
		return fmt.Errorf("falha ao registrar movimentação: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao comitar %s: %w", movementType, err)
	}
	return nil
}

func (r *PostgresStockRepository) variantExists(ctx context.Context, tx pgx.Tx, ref VariantRef) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM product_variants
			WHERE product_id = $1 AND color = $2 AND size = $3
		)
	`, ref.ProductID, ref.Color, string(ref.Size)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("falha ao verificar variante: %w", err)
	}
	return exists, nil
}

// GetVariant resolve a tripla (produto, cor, tamanho) com preço e contadores
func (r *PostgresStockRepository) GetVariant(ctx context.Context, ref VariantRef) (*Variant, error) {
	variant := Variant{VariantRef: ref}
	err := r.pool.QueryRow(ctx, `
		SELECT price_cents, available, reserved
		FROM product_variants
		WHERE product_id = $1 AND color = $2 AND size = $3
	`, ref.ProductID, ref.Color, string(ref.Size)).Scan(
		&variant.PriceCents,
		&variant.Stock.Available,
		&variant.Stock.Reserved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("falha ao buscar variante: %w", err)
	}
	return &variant, nil
}
