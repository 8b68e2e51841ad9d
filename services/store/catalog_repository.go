package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE de violação de unicidade
const pgUniqueViolation = "23505"

func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// SearchParams são os filtros de busca de produtos: nome parcial
// case-insensitive, categoria e faixa de preço em centavos
type SearchParams struct {
	Name          string
	Category      string
	MinPriceCents int
	MaxPriceCents int
}

// CatalogRepository define as operações de persistência do catálogo.
// O catálogo cria entradas de variante com estoque {0,0} e nunca
// escreve os contadores depois disso; a escrita deles é papel
// exclusivo do ledger.
type CatalogRepository interface {
	CreateProduct(ctx context.Context, product *Product) error
	GetProduct(ctx context.Context, productID string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	SearchProducts(ctx context.Context, params SearchParams) ([]*Product, error)
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, productID string) error

	CreateCategory(ctx context.Context, category *Category) error
	GetCategory(ctx context.Context, categoryID string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, categoryID string) error
}

// PostgresCatalogRepository implementa CatalogRepository usando PostgreSQL
type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository cria uma nova instância de PostgresCatalogRepository
func NewCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

// CreateProduct persiste o produto, suas variantes (estoque inicial
// {available:0, reserved:0}) e as mídias por cor
func (r *PostgresCatalogRepository) CreateProduct(ctx context.Context, product *Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	var category any
	if product.CategoryID != "" {
		category = product.CategoryID
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO products (id, name, description, category_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
	`, product.ID, product.Name, product.Description, category); err != nil {
		return fmt.Errorf("falha ao criar produto: %w", err)
	}

	if err := r.insertVariants(ctx, tx, product); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao comitar produto: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepository) insertVariants(ctx context.Context, tx pgx.Tx, product *Product) error {
	for _, cv := range product.ColorVariants {
		for _, entry := range cv.Sizes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO product_variants (id, product_id, color, size, price_cents, available, reserved, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 0, 0, NOW(), NOW())
			`, uuid.New().String(), product.ID, cv.Color, string(entry.Size), entry.PriceCents); err != nil {
				return fmt.Errorf("falha ao criar variante %s/%s: %w", cv.Color, entry.Size, err)
			}
		}
		for pos, url := range cv.Media {
			if _, err := tx.Exec(ctx, `
				INSERT INTO product_color_media (id, product_id, color, url, position)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New().String(), product.ID, cv.Color, url, pos); err != nil {
				return fmt.Errorf("falha ao registrar mídia de %s: %w", cv.Color, err)
			}
		}
	}
	return nil
}

// GetProduct busca um produto e reconstrói a hierarquia de variantes
func (r *PostgresCatalogRepository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	var category *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, category_id, version, created_at, updated_at
		FROM products WHERE id = $1
	`, productID).Scan(&product.ID, &product.Name, &product.Description, &category,
		&product.Version, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("falha ao buscar produto: %w", err)
	}
	if category != nil {
		product.CategoryID = *category
	}

	if err := r.loadVariants(ctx, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// loadVariants remonta ColorVariants a partir das linhas de variante
// e das mídias por cor
func (r *PostgresCatalogRepository) loadVariants(ctx context.Context, product *Product) error {
	rows, err := r.pool.Query(ctx, `
		SELECT color, size, price_cents, available, reserved
		FROM product_variants
		WHERE product_id = $1
		ORDER BY color, size
	`, product.ID)
	if err != nil {
		return fmt.Errorf("falha ao buscar variantes: %w", err)
	}
	defer rows.Close()

	byColor := map[string]int{}
	product.ColorVariants = nil
	for rows.Next() {
		var color, size string
		var entry SizeEntry
		if err := rows.Scan(&color, &size, &entry.PriceCents, &entry.Stock.Available, &entry.Stock.Reserved); err != nil {
			return fmt.Errorf("falha ao ler variante: %w", err)
		}
		entry.Size = Size(size)

		idx, ok := byColor[color]
		if !ok {
			idx = len(product.ColorVariants)
			byColor[color] = idx
			product.ColorVariants = append(product.ColorVariants, ColorVariant{Color: color})
		}
		product.ColorVariants[idx].Sizes = append(product.ColorVariants[idx].Sizes, entry)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("falha ao iterar variantes: %w", err)
	}

	mediaRows, err := r.pool.Query(ctx, `
		SELECT color, url FROM product_color_media
		WHERE product_id = $1
		ORDER BY color, position
	`, product.ID)
	if err != nil {
		return fmt.Errorf("falha ao buscar mídias: %w", err)
	}
	defer mediaRows.Close()

	for mediaRows.Next() {
		var color, url string
		if err := mediaRows.Scan(&color, &url); err != nil {
			return fmt.Errorf("falha ao ler mídia: %w", err)
		}
		if idx, ok := byColor[color]; ok {
			product.ColorVariants[idx].Media = append(product.ColorVariants[idx].Media, url)
		}
	}
	return mediaRows.Err()
}

// ListProducts lista todos os produtos do catálogo
func (r *PostgresCatalogRepository) ListProducts(ctx context.Context) ([]*Product, error) {
	return r.queryProducts(ctx, `
		SELECT id, name, description, category_id, version, created_at, updated_at
		FROM products ORDER BY name
	`)
}

// SearchProducts aplica os filtros de busca compostos dinamicamente
func (r *PostgresCatalogRepository) SearchProducts(ctx context.Context, params SearchParams) ([]*Product, error) {
	query := `
		SELECT DISTINCT p.id, p.name, p.description, p.category_id, p.version, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		JOIN product_variants v ON v.product_id = p.id
	`
	var conditions []string
	var args []any

	if params.Name != "" {
		args = append(args, "%"+params.Name+"%")
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	if params.Category != "" {
		args = append(args, "%"+params.Category+"%")
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)))
	}
	if params.MinPriceCents > 0 {
		args = append(args, params.MinPriceCents)
		conditions = append(conditions, fmt.Sprintf("v.price_cents >= $%d", len(args)))
	}
	if params.MaxPriceCents > 0 {
		args = append(args, params.MaxPriceCents)
		conditions = append(conditions, fmt.Sprintf("v.price_cents <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.name"

	return r.queryProducts(ctx, query, args...)
}

func (r *PostgresCatalogRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar produtos: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		var product Product
		var category *string
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &category,
			&product.Version, &product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, fmt.Errorf("falha ao ler produto: %w", err)
		}
		if category != nil {
			product.CategoryID = *category
		}
		products = append(products, &product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("falha ao iterar produtos: %w", err)
	}

	for _, product := range products {
		if err := r.loadVariants(ctx, product); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// UpdateProduct atualiza os campos do produto e reconcilia as
// variantes: entradas novas nascem com estoque {0,0}, entradas
// existentes só têm o preço atualizado (os contadores pertencem ao
// ledger) e entradas removidas da hierarquia são destruídas
func (r *PostgresCatalogRepository) UpdateProduct(ctx context.Context, product *Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	var category any
	if product.CategoryID != "" {
		category = product.CategoryID
	}
	ct, err := tx.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, category_id = $4, updated_at = NOW()
		WHERE id = $1
	`, product.ID, product.Name, product.Description, category)
	if err != nil {
		return fmt.Errorf("falha ao atualizar produto: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	// Remove variantes que saíram da hierarquia
	keep := make([]string, 0, len(product.ColorVariants)*4)
	for _, cv := range product.ColorVariants {
		for _, entry := range cv.Sizes {
			keep = append(keep, cv.Color+"/"+string(entry.Size))
		}
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM product_variants
		WHERE product_id = $1 AND color || '/' || size != ALL($2)
	`, product.ID, keep); err != nil {
		return fmt.Errorf("falha ao remover variantes: %w", err)
	}

	// Upsert: entrada nova nasce com {0,0}; existente mantém contadores
	for _, cv := range product.ColorVariants {
		for _, entry := range cv.Sizes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO product_variants (id, product_id, color, size, price_cents, available, reserved, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, 0, 0, NOW(), NOW())
				ON CONFLICT (product_id, color, size)
				DO UPDATE SET price_cents = EXCLUDED.price_cents, updated_at = NOW()
			`, uuid.New().String(), product.ID, cv.Color, string(entry.Size), entry.PriceCents); err != nil {
				return fmt.Errorf("falha ao atualizar variante %s/%s: %w", cv.Color, entry.Size, err)
			}
		}
	}

	// Mídias são substituídas por inteiro
	if _, err := tx.Exec(ctx, `DELETE FROM product_color_media WHERE product_id = $1`, product.ID); err != nil {
		return fmt.Errorf("falha ao limpar mídias: %w", err)
	}
	for _, cv := range product.ColorVariants {
		for pos, url := range cv.Media {
			if _, err := tx.Exec(ctx, `
				INSERT INTO product_color_media (id, product_id, color, url, position)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New().String(), product.ID, cv.Color, url, pos); err != nil {
				return fmt.Errorf("falha ao registrar mídia de %s: %w", cv.Color, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao comitar atualização do produto: %w", err)
	}
	return nil
}

// DeleteProduct remove o produto; variantes e mídias caem em cascata
func (r *PostgresCatalogRepository) DeleteProduct(ctx context.Context, productID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("falha ao remover produto: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// CreateCategory cria uma categoria
func (r *PostgresCatalogRepository) CreateCategory(ctx context.Context, category *Category) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`, category.ID, category.Name, category.Description)
	if err != nil {
		if uniqueViolation(err) {
			return invalidInput("categoria já existe: %s", category.Name)
		}
		return fmt.Errorf("falha ao criar categoria: %w", err)
	}
	return nil
}

// GetCategory busca uma categoria pelo ID
func (r *PostgresCatalogRepository) GetCategory(ctx context.Context, categoryID string) (*Category, error) {
	var category Category
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories WHERE id = $1
	`, categoryID).Scan(&category.ID, &category.Name, &category.Description,
		&category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("falha ao buscar categoria: %w", err)
	}
	return &category, nil
}

// ListCategories lista todas as categorias
func (r *PostgresCatalogRepository) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar categorias: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description,
			&category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, fmt.Errorf("falha ao ler categoria: %w", err)
		}
		categories = append(categories, &category)
	}
	return categories, rows.Err()
}

// UpdateCategory atualiza uma categoria
func (r *PostgresCatalogRepository) UpdateCategory(ctx context.Context, category *Category) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE categories
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
	`, category.ID, category.Name, category.Description)
	if err != nil {
		if uniqueViolation(err) {
			return invalidInput("categoria já existe: %s", category.Name)
		}
		return fmt.Errorf("falha ao atualizar categoria: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory remove uma categoria
func (r *PostgresCatalogRepository) DeleteCategory(ctx context.Context, categoryID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("falha ao remover categoria: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
