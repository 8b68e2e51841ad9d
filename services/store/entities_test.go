package main

import (
	"testing"
	"time"
)

func TestNewOrder(t *testing.T) {
	// Arrange
	id := "order-123"
	userID := "user-456"
	items := []OrderItem{
		{ProductID: "prod-1", Color: "azul", Size: SizeM, Quantity: 2, PriceCents: 4990},
		{ProductID: "prod-2", Color: "preto", Size: SizeG, Quantity: 1, PriceCents: 12900},
	}

	// Act
	order := NewOrder(id, userID, items, 15*time.Minute)

	// Assert
	if order.ID != id {
		t.Errorf("Expected ID %s, got %s", id, order.ID)
	}
	if order.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, order.UserID)
	}
	if order.Status != OrderStatusPendingPayment {
		t.Errorf("Expected Status %s, got %s", OrderStatusPendingPayment, order.Status)
	}
	// 2 * 4990 + 1 * 12900
	if order.TotalCents != 22880 {
		t.Errorf("Expected TotalCents 22880, got %d", order.TotalCents)
	}
	if len(order.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(order.Items))
	}
	if order.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}

	// ExpiresAt deve refletir o TTL a partir da criação
	wantExpiry := order.CreatedAt.Add(15 * time.Minute)
	if !order.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("Expected ExpiresAt %v, got %v", wantExpiry, order.ExpiresAt)
	}
}

func TestOrderTransitions(t *testing.T) {
	items := []OrderItem{{ProductID: "prod-1", Color: "azul", Size: SizeM, Quantity: 1, PriceCents: 100}}

	t.Run("pagamento de pedido pendente", func(t *testing.T) {
		order := NewOrder("o-1", "u-1", items, time.Minute)
		if err := order.MarkPaid(); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if order.Status != OrderStatusPaid {
			t.Errorf("Expected Status %s, got %s", OrderStatusPaid, order.Status)
		}
	})

	t.Run("pedido pago não pode ser pago de novo", func(t *testing.T) {
		order := NewOrder("o-1", "u-1", items, time.Minute)
		_ = order.MarkPaid()
		if err := order.MarkPaid(); err == nil {
			t.Error("Expected error paying an already paid order")
		}
	})

	t.Run("pedido pago não pode ser cancelado", func(t *testing.T) {
		order := NewOrder("o-1", "u-1", items, time.Minute)
		_ = order.MarkPaid()
		if err := order.MarkCanceled(); err == nil {
			t.Error("Expected error canceling a paid order")
		}
	})

	t.Run("pedido cancelado não pode expirar", func(t *testing.T) {
		order := NewOrder("o-1", "u-1", items, time.Minute)
		_ = order.MarkCanceled()
		if err := order.MarkExpired(); err == nil {
			t.Error("Expected error expiring a canceled order")
		}
	})
}

func TestOrderStatus(t *testing.T) {
	// Test that constants are defined correctly
	if OrderStatusPendingPayment != "PENDING_PAYMENT" {
		t.Errorf("Expected OrderStatusPendingPayment to be 'PENDING_PAYMENT', got %s", OrderStatusPendingPayment)
	}
	if OrderStatusPaid != "PAID" {
		t.Errorf("Expected OrderStatusPaid to be 'PAID', got %s", OrderStatusPaid)
	}
	if OrderStatusCanceled != "CANCELED" {
		t.Errorf("Expected OrderStatusCanceled to be 'CANCELED', got %s", OrderStatusCanceled)
	}
	if OrderStatusExpired != "EXPIRED" {
		t.Errorf("Expected OrderStatusExpired to be 'EXPIRED', got %s", OrderStatusExpired)
	}
}

func TestSizeValid(t *testing.T) {
	for _, size := range []Size{SizeP, SizeM, SizeG, SizeGG} {
		if !size.Valid() {
			t.Errorf("Expected size %s to be valid", size)
		}
	}
	for _, size := range []Size{"", "XG", "p", "XL"} {
		if size.Valid() {
			t.Errorf("Expected size %q to be invalid", size)
		}
	}
}

func TestCartUpsert(t *testing.T) {
	item := CartItem{ProductID: "prod-1", Color: "azul", Size: SizeM, Quantity: 2}

	t.Run("adiciona linha nova", func(t *testing.T) {
		cart := &Cart{UserID: "u-1"}
		cart.Upsert(item)
		if len(cart.Items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(cart.Items))
		}
		if cart.Items[0].Quantity != 2 {
			t.Errorf("Expected Quantity 2, got %d", cart.Items[0].Quantity)
		}
	})

	t.Run("substitui a quantidade da linha existente", func(t *testing.T) {
		cart := &Cart{UserID: "u-1"}
		cart.Upsert(item)
		updated := item
		updated.Quantity = 5
		cart.Upsert(updated)
		if len(cart.Items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(cart.Items))
		}
		if cart.Items[0].Quantity != 5 {
			t.Errorf("Expected Quantity 5, got %d", cart.Items[0].Quantity)
		}
	})

	t.Run("tamanhos diferentes são linhas diferentes", func(t *testing.T) {
		cart := &Cart{UserID: "u-1"}
		cart.Upsert(item)
		other := item
		other.Size = SizeG
		cart.Upsert(other)
		if len(cart.Items) != 2 {
			t.Errorf("Expected 2 items, got %d", len(cart.Items))
		}
	})

	t.Run("quantidade zero remove a linha", func(t *testing.T) {
		cart := &Cart{UserID: "u-1"}
		cart.Upsert(item)
		removed := item
		removed.Quantity = 0
		cart.Upsert(removed)
		if len(cart.Items) != 0 {
			t.Errorf("Expected empty cart, got %d items", len(cart.Items))
		}
	})

	t.Run("remover linha inexistente não adiciona nada", func(t *testing.T) {
		cart := &Cart{UserID: "u-1"}
		removed := item
		removed.Quantity = -1
		cart.Upsert(removed)
		if len(cart.Items) != 0 {
			t.Errorf("Expected empty cart, got %d items", len(cart.Items))
		}
	})
}

func TestFindVariant(t *testing.T) {
	product := &Product{
		ID: "prod-1",
		ColorVariants: []ColorVariant{
			{Color: "azul", Sizes: []SizeEntry{
				{Size: SizeP, PriceCents: 4990},
				{Size: SizeM, PriceCents: 4990},
			}},
			{Color: "preto", Sizes: []SizeEntry{
				{Size: SizeG, PriceCents: 5990},
			}},
		},
	}

	entry := product.FindVariant("preto", SizeG)
	if entry == nil {
		t.Fatal("Expected to find variant preto/G")
	}
	if entry.PriceCents != 5990 {
		t.Errorf("Expected PriceCents 5990, got %d", entry.PriceCents)
	}

	if product.FindVariant("azul", SizeGG) != nil {
		t.Error("Expected not to find variant azul/GG")
	}
	if product.FindVariant("verde", SizeP) != nil {
		t.Error("Expected not to find variant verde/P")
	}
}
