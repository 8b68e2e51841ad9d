package main

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// CartUseCase contém a lógica de negócio do carrinho. O carrinho não
// mexe em estoque nem em preço: ele só descreve a intenção de compra
// que o checkout converte em reservas.
type CartUseCase struct {
	repository CartRepository
}

// NewCartUseCase cria uma nova instância de CartUseCase
func NewCartUseCase(repository CartRepository) *CartUseCase {
	return &CartUseCase{repository: repository}
}

// GetCart retorna o carrinho do usuário (vazio quando não existe)
func (uc *CartUseCase) GetCart(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, invalidInput("usuário é obrigatório")
	}
	return uc.repository.GetCart(ctx, userID)
}

// UpsertItem adiciona/atualiza a linha (produto, cor, tamanho) do
// carrinho; quantidade <= 0 remove a linha
func (uc *CartUseCase) UpsertItem(ctx context.Context, userID string, item CartItem) (*Cart, error) {
	if userID == "" {
		return nil, invalidInput("usuário é obrigatório")
	}
	if err := uuid.Validate(item.ProductID); err != nil {
		return nil, invalidInput("ID de produto inválido: %s", item.ProductID)
	}
	if item.Color == "" {
		return nil, invalidInput("cor é obrigatória")
	}
	if !item.Size.Valid() {
		return nil, invalidInput("tamanho inválido: %s", item.Size)
	}

	cart, err := uc.repository.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Upsert(item)
	if err := uc.repository.SaveCart(ctx, cart); err != nil {
		return nil, err
	}

	log.Printf("🛒 [CART] Carrinho atualizado UserID=%s Itens=%d", userID, len(cart.Items))
	return cart, nil
}

// Clear descarta o carrinho do usuário (após checkout bem-sucedido)
func (uc *CartUseCase) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return invalidInput("usuário é obrigatório")
	}
	return uc.repository.DeleteCart(ctx, userID)
}
