package main

import (
	"context"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpsNotifier é a borda de saída para integrações externas
// (monitoramento operacional e notificação de status). O núcleo
// depende apenas desta interface; nenhum cliente HTTP é chamado
// diretamente pelo ledger ou pelo orquestrador.
type OpsNotifier interface {
	// NotifyOrderStatus informa mudanças de status de pedido (best-effort)
	NotifyOrderStatus(ctx context.Context, order *Order)

	// AlertCompensationFailure sinaliza estoque reservado órfão após
	// falha de rollback: exige reconciliação manual
	AlertCompensationFailure(ctx context.Context, orderID string, item OrderItem, cause error)
}

// WebhookNotifier implementa OpsNotifier enviando webhooks HTTP
type WebhookNotifier struct {
	client  *resty.Client
	baseURL string
}

// NewWebhookNotifier cria uma nova instância de WebhookNotifier
func NewWebhookNotifier(baseURL string) *WebhookNotifier {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &WebhookNotifier{client: client, baseURL: baseURL}
}

// NotifyOrderStatus envia a mudança de status para o webhook configurado
func (n *WebhookNotifier) NotifyOrderStatus(ctx context.Context, order *Order) {
	_, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"order_id":    order.ID,
			"user_id":     order.UserID,
			"status":      order.Status,
			"total_cents": order.TotalCents,
		}).
		Post(n.baseURL + "/notifications/order-status")
	if err != nil {
		log.Printf("⚠️ [NOTIFY] falha ao notificar status do pedido %s: %v", order.ID, err)
	}
}

// AlertCompensationFailure envia o alerta de reconciliação com o
// contexto completo da linha órfã
func (n *WebhookNotifier) AlertCompensationFailure(ctx context.Context, orderID string, item OrderItem, cause error) {
	_, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"order_id":   orderID,
			"product_id": item.ProductID,
			"color":      item.Color,
			"size":       item.Size,
			"quantity":   item.Quantity,
			"cause":      cause.Error(),
		}).
		Post(n.baseURL + "/alerts/compensation-failure")
	if err != nil {
		log.Printf("⚠️ [ALERT] falha ao enviar alerta de compensação do pedido %s: %v", orderID, err)
	}
}

// NoopNotifier descarta notificações; usado em testes e quando não
// há webhook configurado
type NoopNotifier struct{}

func (NoopNotifier) NotifyOrderStatus(ctx context.Context, order *Order) {}

func (NoopNotifier) AlertCompensationFailure(ctx context.Context, orderID string, item OrderItem, cause error) {
}
