package main

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
)

// CatalogUseCase contém a lógica de negócio do catálogo de produtos
// e categorias. O catálogo é o único dono da criação de variantes;
// os contadores de estoque, uma vez criados, pertencem ao ledger.
type CatalogUseCase struct {
	repository CatalogRepository
}

// NewCatalogUseCase cria uma nova instância de CatalogUseCase
func NewCatalogUseCase(repository CatalogRepository) *CatalogUseCase {
	return &CatalogUseCase{repository: repository}
}

// validateProduct garante a unicidade da hierarquia: cor única por
// produto e tamanho único por cor, com tamanhos e preços válidos
func validateProduct(product *Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return invalidInput("nome do produto é obrigatório")
	}
	if len(product.ColorVariants) == 0 {
		return invalidInput("produto precisa de ao menos uma variante de cor")
	}

	colors := map[string]bool{}
	for _, cv := range product.ColorVariants {
		if strings.TrimSpace(cv.Color) == "" {
			return invalidInput("cor é obrigatória")
		}
		if colors[cv.Color] {
			return invalidInput("cor duplicada no produto: %s", cv.Color)
		}
		colors[cv.Color] = true

		if len(cv.Sizes) == 0 {
			return invalidInput("cor %s precisa de ao menos um tamanho", cv.Color)
		}
		sizes := map[Size]bool{}
		for _, entry := range cv.Sizes {
			if !entry.Size.Valid() {
				return invalidInput("tamanho inválido em %s: %s", cv.Color, entry.Size)
			}
			if sizes[entry.Size] {
				return invalidInput("tamanho duplicado em %s: %s", cv.Color, entry.Size)
			}
			sizes[entry.Size] = true
			if entry.PriceCents <= 0 {
				return invalidInput("preço deve ser positivo em %s/%s", cv.Color, entry.Size)
			}
		}
	}
	return nil
}

// CreateProduct cria um produto com suas variantes zeradas de estoque
func (uc *CatalogUseCase) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.CategoryID != "" {
		if _, err := uc.repository.GetCategory(ctx, product.CategoryID); err != nil {
			return nil, err
		}
	}

	if err := uc.repository.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	log.Printf("🆕 [CATALOG] Produto criado ID=%s Nome=%s", product.ID, product.Name)
	return uc.repository.GetProduct(ctx, product.ID)
}

// GetProduct busca um produto pelo ID
func (uc *CatalogUseCase) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if err := uuid.Validate(productID); err != nil {
		return nil, invalidInput("ID de produto inválido: %s", productID)
	}
	return uc.repository.GetProduct(ctx, productID)
}

// ListProducts lista o catálogo completo
func (uc *CatalogUseCase) ListProducts(ctx context.Context) ([]*Product, error) {
	return uc.repository.ListProducts(ctx)
}

// SearchProducts busca produtos pelos filtros informados
func (uc *CatalogUseCase) SearchProducts(ctx context.Context, params SearchParams) ([]*Product, error) {
	if params.MinPriceCents < 0 || params.MaxPriceCents < 0 {
		return nil, invalidInput("faixa de preço não pode ser negativa")
	}
	if params.MinPriceCents > 0 && params.MaxPriceCents > 0 && params.MinPriceCents > params.MaxPriceCents {
		return nil, invalidInput("preço mínimo maior que o máximo")
	}
	return uc.repository.SearchProducts(ctx, params)
}

// UpdateProduct atualiza o produto e reconcilia a hierarquia de variantes
func (uc *CatalogUseCase) UpdateProduct(ctx context.Context, product *Product) (*Product, error) {
	if err := uuid.Validate(product.ID); err != nil {
		return nil, invalidInput("ID de produto inválido: %s", product.ID)
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if product.CategoryID != "" {
		if _, err := uc.repository.GetCategory(ctx, product.CategoryID); err != nil {
			return nil, err
		}
	}

	if err := uc.repository.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	log.Printf("✏️ [CATALOG] Produto atualizado ID=%s", product.ID)
	return uc.repository.GetProduct(ctx, product.ID)
}

// DeleteProduct remove um produto e destrói suas variantes
func (uc *CatalogUseCase) DeleteProduct(ctx context.Context, productID string) error {
	if err := uuid.Validate(productID); err != nil {
		return invalidInput("ID de produto inválido: %s", productID)
	}
	if err := uc.repository.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	log.Printf("🗑️ [CATALOG] Produto removido ID=%s", productID)
	return nil
}

// CreateCategory cria uma categoria com nome normalizado
func (uc *CatalogUseCase) CreateCategory(ctx context.Context, category *Category) (*Category, error) {
	category.Name = strings.ToLower(strings.TrimSpace(category.Name))
	if category.Name == "" {
		return nil, invalidInput("nome da categoria é obrigatório")
	}
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	if err := uc.repository.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return uc.repository.GetCategory(ctx, category.ID)
}

// GetCategory busca uma categoria pelo ID
func (uc *CatalogUseCase) GetCategory(ctx context.Context, categoryID string) (*Category, error) {
	if err := uuid.Validate(categoryID); err != nil {
		return nil, invalidInput("ID de categoria inválido: %s", categoryID)
	}
	return uc.repository.GetCategory(ctx, categoryID)
}

// ListCategories lista todas as categorias
func (uc *CatalogUseCase) ListCategories(ctx context.Context) ([]*Category, error) {
	return uc.repository.ListCategories(ctx)
}

// UpdateCategory atualiza uma categoria com nome normalizado
func (uc *CatalogUseCase) UpdateCategory(ctx context.Context, category *Category) (*Category, error) {
	if err := uuid.Validate(category.ID); err != nil {
		return nil, invalidInput("ID de categoria inválido: %s", category.ID)
	}
	category.Name = strings.ToLower(strings.TrimSpace(category.Name))
	if category.Name == "" {
		return nil, invalidInput("nome da categoria é obrigatório")
	}
	if err := uc.repository.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	return uc.repository.GetCategory(ctx, category.ID)
}

// DeleteCategory remove uma categoria
func (uc *CatalogUseCase) DeleteCategory(ctx context.Context, categoryID string) error {
	if err := uuid.Validate(categoryID); err != nil {
		return invalidInput("ID de categoria inválido: %s", categoryID)
	}
	return uc.repository.DeleteCategory(ctx, categoryID)
}
