package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tentativas para operações idempotentes (restock e leituras) diante
// de falha de infraestrutura. Reserve/release/finalize nunca são
// repetidos às cegas: uma repetição após falha ambígua poderia
// aplicar o decremento condicional duas vezes.
const maxIdempotentRetries = 3

// StockLedger contém a lógica de negócio do ledger de estoque:
// valida a entrada, delega a mutação atômica ao repositório e
// traduz o resultado em erros de negócio estáveis.
type StockLedger struct {
	repository StockRepository
	tracer     trace.Tracer
}

// NewStockLedger cria uma nova instância de StockLedger
func NewStockLedger(repository StockRepository, tracer trace.Tracer) *StockLedger {
	return &StockLedger{
		repository: repository,
		tracer:     tracer,
	}
}

// validateRef rejeita entrada malformada antes de tocar o banco:
// sempre culpa do chamador, nunca repetida automaticamente
func validateRef(ref VariantRef, qty int) error {
	if qty <= 0 {
		return invalidInput("quantidade deve ser um número positivo")
	}
	if err := uuid.Validate(ref.ProductID); err != nil {
		return invalidInput("ID de produto inválido: %s", ref.ProductID)
	}
	if ref.Color == "" {
		return invalidInput("cor é obrigatória")
	}
	if !ref.Size.Valid() {
		return invalidInput("tamanho inválido: %s", ref.Size)
	}
	return nil
}

// Reserve reserva qty unidades da variante (available -> reserved)
func (uc *StockLedger) Reserve(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	ctx, span := uc.startSpan(ctx, "stock.reserve", ref, qty)
	defer span.End()

	if err := validateRef(ref, qty); err != nil {
		span.RecordError(err)
		return err
	}

	log.Printf("📦 [RESERVE] ProductID=%s Color=%s Size=%s Qty=%d OrderID=%s",
		ref.ProductID, ref.Color, ref.Size, qty, orderID)

	if err := uc.repository.Reserve(ctx, ref, qty, orderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserva de estoque falhou")
		log.Printf("❌ [RESERVE] ProductID=%s Color=%s Size=%s: %v", ref.ProductID, ref.Color, ref.Size, err)
		return err
	}

	span.AddEvent("estoque reservado")
	return nil
}

// Release devolve qty unidades reservadas para available
func (uc *StockLedger) Release(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	ctx, span := uc.startSpan(ctx, "stock.release", ref, qty)
	defer span.End()

	if err := validateRef(ref, qty); err != nil {
		span.RecordError(err)
		return err
	}

	log.Printf("↩️ [RELEASE] ProductID=%s Color=%s Size=%s Qty=%d OrderID=%s",
		ref.ProductID, ref.Color, ref.Size, qty, orderID)

	if err := uc.repository.Release(ctx, ref, qty, orderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "liberação de reserva falhou")
		log.Printf("❌ [RELEASE] ProductID=%s Color=%s Size=%s: %v", ref.ProductID, ref.Color, ref.Size, err)
		return err
	}

	span.AddEvent("reserva liberada")
	return nil
}

// Finalize consome qty unidades reservadas: a venda foi concluída e
// as unidades deixam o ledger permanentemente
func (uc *StockLedger) Finalize(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	ctx, span := uc.startSpan(ctx, "stock.finalize", ref, qty)
	defer span.End()

	if err := validateRef(ref, qty); err != nil {
		span.RecordError(err)
		return err
	}

	log.Printf("✅ [FINALIZE] ProductID=%s Color=%s Size=%s Qty=%d OrderID=%s",
		ref.ProductID, ref.Color, ref.Size, qty, orderID)

	if err := uc.repository.Finalize(ctx, ref, qty, orderID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalização de compra falhou")
		log.Printf("❌ [FINALIZE] ProductID=%s Color=%s Size=%s: %v", ref.ProductID, ref.Color, ref.Size, err)
		return err
	}

	span.AddEvent("compra finalizada")
	return nil
}

// Restock repõe qty unidades no estoque disponível. Sem pré-condição
// de estoque: repor sobre available=0 é o caso normal.
func (uc *StockLedger) Restock(ctx context.Context, ref VariantRef, qty int) error {
	ctx, span := uc.startSpan(ctx, "stock.restock", ref, qty)
	defer span.End()

	if err := validateRef(ref, qty); err != nil {
		span.RecordError(err)
		return err
	}

	log.Printf("🔄 [RESTOCK] ProductID=%s Color=%s Size=%s Qty=%d", ref.ProductID, ref.Color, ref.Size, qty)

	err := uc.withRetry(ctx, func() error {
		return uc.repository.Restock(ctx, ref, qty)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reposição de estoque falhou")
		log.Printf("❌ [RESTOCK] ProductID=%s Color=%s Size=%s: %v", ref.ProductID, ref.Color, ref.Size, err)
		return err
	}

	span.AddEvent("estoque reposto")
	return nil
}

// GetVariant resolve a tripla para consulta de preço e contadores
func (uc *StockLedger) GetVariant(ctx context.Context, ref VariantRef) (*Variant, error) {
	if err := validateRef(ref, 1); err != nil {
		return nil, err
	}

	var variant *Variant
	err := uc.withRetry(ctx, func() error {
		var err error
		variant, err = uc.repository.GetVariant(ctx, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

// withRetry repete a operação diante de falha de infraestrutura.
// Erros de negócio interrompem imediatamente.
func (uc *StockLedger) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxIdempotentRetries; attempt++ {
		err = fn()
		if err == nil || isBusinessError(err) {
			return err
		}
		log.Printf("⏳ [RETRY] tentativa %d/%d falhou: %v", attempt, maxIdempotentRetries, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}

func isBusinessError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrVariantNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrReservationNotFound)
}

func (uc *StockLedger) startSpan(ctx context.Context, name string, ref VariantRef, qty int) (context.Context, trace.Span) {
	ctx, span := uc.tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("product_id", ref.ProductID),
		attribute.String("color", ref.Color),
		attribute.String("size", string(ref.Size)),
		attribute.Int("quantity", qty),
	)
	return ctx, span
}
