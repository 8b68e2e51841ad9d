package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StockOperations é o subconjunto do ledger consumido pelo
// orquestrador de pedidos
type StockOperations interface {
	Reserve(ctx context.Context, ref VariantRef, qty int, orderID string) error
	Release(ctx context.Context, ref VariantRef, qty int, orderID string) error
	Finalize(ctx context.Context, ref VariantRef, qty int, orderID string) error
	GetVariant(ctx context.Context, ref VariantRef) (*Variant, error)
}

// OrderUseCase orquestra a criação de pedidos como uma SAGA em
// processo: reserva linha a linha e, em qualquer falha, libera as
// reservas já aplicadas antes de retornar. A lista de compensações é
// explícita: não há transação de banco englobando variantes
// independentes.
type OrderUseCase struct {
	ledger     StockOperations
	repository OrderRepository
	publisher  EventPublisher
	notifier   OpsNotifier
	tracer     trace.Tracer
	orderTTL   time.Duration
}

// NewOrderUseCase cria uma nova instância de OrderUseCase
func NewOrderUseCase(
	ledger StockOperations,
	repository OrderRepository,
	publisher EventPublisher,
	notifier OpsNotifier,
	tracer trace.Tracer,
	orderTTL time.Duration,
) *OrderUseCase {
	return &OrderUseCase{
		ledger:     ledger,
		repository: repository,
		publisher:  publisher,
		notifier:   notifier,
		tracer:     tracer,
		orderTTL:   orderTTL,
	}
}

// CreateOrder tenta reservar todas as linhas na ordem recebida e
// persiste o pedido em PENDING_PAYMENT. Garantia: ou todas as linhas
// ficam reservadas e o pedido existe, ou nenhuma reserva sobrevive.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, userID string, lines []CartItem) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "order.create_saga")
	defer span.End()

	if userID == "" {
		return nil, invalidInput("usuário é obrigatório")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	orderID := uuid.New().String()
	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("user_id", userID),
		attribute.Int("lines", len(lines)),
	)

	log.Printf("🚀 [SAGA] Iniciando pedido OrderID=%s UserID=%s Linhas=%d", orderID, userID, len(lines))

	// Guarda as linhas já reservadas, na ordem de aplicação: é a
	// lista de compensações a executar em caso de falha
	var reserved []OrderItem

	items := make([]OrderItem, 0, len(lines))
	for i, line := range lines {
		ref := VariantRef{ProductID: line.ProductID, Color: line.Color, Size: line.Size}

		// 1. Resolve a variante e captura o preço vigente (leitura);
		// o carrinho nunca é fonte de preço
		variant, err := uc.ledger.GetVariant(ctx, ref)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "linha inválida")
			log.Printf("❌ [SAGA] OrderID=%s linha %d inválida: %v", orderID, i+1, err)
			uc.rollbackReservations(ctx, orderID, reserved)
			return nil, err
		}

		// 2. Reserva a linha (update condicional no ledger)
		if err := uc.ledger.Reserve(ctx, ref, line.Quantity, orderID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reserva de linha falhou")
			log.Printf("❌ [SAGA] OrderID=%s reserva da linha %d falhou: %v", orderID, i+1, err)
			uc.rollbackReservations(ctx, orderID, reserved)
			return nil, err
		}

		item := OrderItem{
			ProductID:  line.ProductID,
			Color:      line.Color,
			Size:       line.Size,
			Quantity:   line.Quantity,
			PriceCents: variant.PriceCents,
		}
		reserved = append(reserved, item)
		items = append(items, item)
	}

	// 3. Persiste o pedido; falha aqui recebe o mesmo tratamento de
	// uma reserva falhada, e todas as linhas são liberadas
	order := NewOrder(orderID, userID, items, uc.orderTTL)
	if err := uc.repository.CreateOrder(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistência do pedido falhou")
		log.Printf("❌ [SAGA] OrderID=%s falha ao persistir: %v", orderID, err)
		uc.rollbackReservations(ctx, orderID, reserved)
		return nil, fmt.Errorf("falha ao criar pedido: %w", err)
	}

	span.AddEvent("pedido criado")
	log.Printf("✅ [SAGA] Pedido criado OrderID=%s Total=%d centavos", orderID, order.TotalCents)

	uc.publishEvent(ctx, TopicOrderCreated, order)
	uc.notifier.NotifyOrderStatus(ctx, order)
	return order, nil
}

// rollbackReservations libera concorrentemente todas as linhas já
// reservadas desta tentativa. Falha de compensação é fatal-mas-
// reportada: fica estoque reservado órfão de pedido, exigindo
// reconciliação manual. Loga em nível crítico e alerta a operação,
// nunca re-propaga.
func (uc *OrderUseCase) rollbackReservations(ctx context.Context, orderID string, reserved []OrderItem) {
	if len(reserved) == 0 {
		return
	}

	// O cancelamento da requisição não pode abortar a compensação
	ctx = context.WithoutCancel(ctx)

	log.Printf("↩️ [SAGA] Iniciando rollback de %d linhas do OrderID=%s", len(reserved), orderID)

	var wg sync.WaitGroup
	for _, item := range reserved {
		wg.Add(1)
		go func(item OrderItem) {
			defer wg.Done()
			ref := VariantRef{ProductID: item.ProductID, Color: item.Color, Size: item.Size}
			if err := uc.ledger.Release(ctx, ref, item.Quantity, orderID); err != nil {
				log.Printf("🚨 [SAGA] FALHA CRÍTICA NO ROLLBACK OrderID=%s ProductID=%s Color=%s Size=%s Qty=%d: %v",
					orderID, item.ProductID, item.Color, item.Size, item.Quantity, err)
				uc.notifier.AlertCompensationFailure(ctx, orderID, item, err)
			}
		}(item)
	}
	wg.Wait()

	log.Printf("↩️ [SAGA] Rollback concluído OrderID=%s", orderID)
}

// ConfirmPayment transiciona o pedido para PAID e finaliza a reserva
// de cada linha. A transição condicional garante que apenas um
// chamador (webhook vs. reaper) aplica o desfecho do pedido.
func (uc *OrderUseCase) ConfirmPayment(ctx context.Context, orderID string) error {
	ctx, span := uc.tracer.Start(ctx, "order.confirm_payment")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	if err := uuid.Validate(orderID); err != nil {
		return invalidInput("ID de pedido inválido: %s", orderID)
	}

	order, err := uc.repository.GetOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ok, err := uc.repository.TransitionStatus(ctx, orderID, OrderStatusPendingPayment, OrderStatusPaid)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		span.AddEvent("pedido não estava mais pendente")
		return fmt.Errorf("%w: pedido %s não está pendente de pagamento", ErrInvalidOrderState, orderID)
	}

	log.Printf("💰 [PAYMENT] Pagamento confirmado OrderID=%s", orderID)

	err = uc.settleLines(ctx, order, uc.ledger.Finalize)

	if markErr := order.MarkPaid(); markErr != nil {
		// a transição condicional foi vencida; a cópia em memória
		// estava atrasada em relação ao banco
		log.Printf("⚠️ [PAYMENT] OrderID=%s: %v", orderID, markErr)
		order.Status = OrderStatusPaid
	}
	uc.publishEvent(ctx, TopicOrderPaid, order)
	uc.notifier.NotifyOrderStatus(ctx, order)
	return err
}

// CancelOrder transiciona o pedido para CANCELED (falha/cancelamento
// de pagamento) e devolve as reservas de cada linha ao disponível
func (uc *OrderUseCase) CancelOrder(ctx context.Context, orderID string) error {
	ctx, span := uc.tracer.Start(ctx, "order.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	if err := uuid.Validate(orderID); err != nil {
		return invalidInput("ID de pedido inválido: %s", orderID)
	}

	order, err := uc.repository.GetOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	ok, err := uc.repository.TransitionStatus(ctx, orderID, OrderStatusPendingPayment, OrderStatusCanceled)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ok {
		span.AddEvent("pedido não estava mais pendente")
		return fmt.Errorf("%w: pedido %s não está pendente de pagamento", ErrInvalidOrderState, orderID)
	}

	log.Printf("🛑 [PAYMENT] Pedido cancelado OrderID=%s", orderID)

	err = uc.settleLines(ctx, order, uc.ledger.Release)

	if markErr := order.MarkCanceled(); markErr != nil {
		log.Printf("⚠️ [PAYMENT] OrderID=%s: %v", orderID, markErr)
		order.Status = OrderStatusCanceled
	}
	uc.publishEvent(ctx, TopicOrderCanceled, order)
	uc.notifier.NotifyOrderStatus(ctx, order)
	return err
}

// ExpireOverdueOrders varre pedidos pendentes vencidos, marca como
// EXPIRED e libera as reservas. Retorna quantos pedidos expiraram.
func (uc *OrderUseCase) ExpireOverdueOrders(ctx context.Context) (int, error) {
	ctx, span := uc.tracer.Start(ctx, "order.expire_overdue")
	defer span.End()

	overdue, err := uc.repository.ListExpiredPending(ctx, time.Now(), 100)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	expired := 0
	for _, order := range overdue {
		ok, err := uc.repository.TransitionStatus(ctx, order.ID, OrderStatusPendingPayment, OrderStatusExpired)
		if err != nil {
			log.Printf("❌ [REAPER] falha ao expirar OrderID=%s: %v", order.ID, err)
			continue
		}
		if !ok {
			// alguém pagou ou cancelou entre a listagem e a transição
			continue
		}

		log.Printf("⌛ [REAPER] Pedido expirado OrderID=%s", order.ID)
		_ = uc.settleLines(ctx, order, uc.ledger.Release)

		if markErr := order.MarkExpired(); markErr != nil {
			log.Printf("⚠️ [REAPER] OrderID=%s: %v", order.ID, markErr)
			order.Status = OrderStatusExpired
		}
		uc.publishEvent(ctx, TopicOrderExpired, order)
		uc.notifier.NotifyOrderStatus(ctx, order)
		expired++
	}

	span.SetAttributes(attribute.Int("expired", expired))
	return expired, nil
}

// settleLines aplica a operação de desfecho (finalize ou release) a
// cada linha do pedido. A transição de status já foi vencida: uma
// linha que falhe aqui é inconsistência reportada à operação, e as
// demais linhas continuam sendo processadas.
func (uc *OrderUseCase) settleLines(
	ctx context.Context,
	order *Order,
	settle func(ctx context.Context, ref VariantRef, qty int, orderID string) error,
) error {
	var firstErr error
	for _, item := range order.Items {
		ref := VariantRef{ProductID: item.ProductID, Color: item.Color, Size: item.Size}
		if err := settle(ctx, ref, item.Quantity, order.ID); err != nil {
			log.Printf("🚨 [ORDER] FALHA CRÍTICA no desfecho da linha OrderID=%s ProductID=%s Color=%s Size=%s: %v",
				order.ID, item.ProductID, item.Color, item.Size, err)
			uc.notifier.AlertCompensationFailure(ctx, order.ID, item, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// GetOrder busca um pedido pelo ID
func (uc *OrderUseCase) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := uuid.Validate(orderID); err != nil {
		return nil, invalidInput("ID de pedido inválido: %s", orderID)
	}
	return uc.repository.GetOrder(ctx, orderID)
}

func (uc *OrderUseCase) publishEvent(ctx context.Context, topic string, order *Order) {
	if err := uc.publisher.PublishOrderEvent(ctx, topic, order); err != nil {
		log.Printf("⚠️ [EVENT] falha ao publicar %s para OrderID=%s: %v", topic, order.ID, err)
	}
}

var _ StockOperations = (*StockLedger)(nil)

// errors.Is helper usado pelos handlers para mapear status HTTP
func isNotFound(err error) bool {
	return errors.Is(err, ErrVariantNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}
