package main

import (
	"errors"
	"fmt"
)

// Erros de negócio do ledger de estoque e do pedido. Condições
// esperadas nunca viram panic: o chamador distingue o tipo com
// errors.Is e o handler mapeia para o status HTTP adequado.
var (
	// ErrInvalidInput: entrada rejeitada antes de tocar o banco
	ErrInvalidInput = errors.New("entrada inválida")

	// ErrVariantNotFound: a tripla (produto, cor, tamanho) não existe
	ErrVariantNotFound = errors.New("variante de produto não encontrada")

	// ErrInsufficientStock: estoque disponível insuficiente para reserva
	ErrInsufficientStock = errors.New("estoque indisponível para reserva")

	// ErrReservationNotFound: nada reservado para liberar/finalizar
	ErrReservationNotFound = errors.New("reserva de estoque não encontrada")

	// ErrOrderNotFound: pedido inexistente
	ErrOrderNotFound = errors.New("pedido não encontrado")

	// ErrInvalidOrderState: transição de status não permitida
	ErrInvalidOrderState = errors.New("estado do pedido não permite a operação")

	// ErrProductNotFound e ErrCategoryNotFound: entidades do catálogo
	ErrProductNotFound  = errors.New("produto não encontrado")
	ErrCategoryNotFound = errors.New("categoria não encontrada")

	// ErrEmptyCart: checkout sem itens no carrinho
	ErrEmptyCart = errors.New("carrinho vazio")
)

// invalidInput embrulha ErrInvalidInput com o detalhe da validação
func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
