package main

import (
	"errors"
	"time"
)

// Size representa os tamanhos de peça suportados pela loja
type Size string

const (
	SizeP  Size = "P"
	SizeM  Size = "M"
	SizeG  Size = "G"
	SizeGG Size = "GG"
)

// Valid verifica se o tamanho é um dos valores do catálogo
func (s Size) Valid() bool {
	switch s {
	case SizeP, SizeM, SizeG, SizeGG:
		return true
	}
	return false
}

// Stock representa os contadores de estoque de uma variante.
// A soma available+reserved é o estoque físico real; os quatro
// movimentos do ledger apenas deslocam unidades entre os contadores
// (finalize remove unidades reservadas que saíram do armazém).
type Stock struct {
	Available int `json:"available" db:"available"`
	Reserved  int `json:"reserved" db:"reserved"`
}

// SizeEntry representa um tamanho dentro de uma variante de cor,
// com preço em centavos para evitar erro de ponto flutuante
type SizeEntry struct {
	Size       Size  `json:"size" db:"size"`
	PriceCents int   `json:"price_cents" db:"price_cents"`
	Stock      Stock `json:"stock"`
}

// ColorVariant representa uma cor de um produto e seus tamanhos
type ColorVariant struct {
	Color string      `json:"color" db:"color"`
	Sizes []SizeEntry `json:"sizes"`
	Media []string    `json:"media,omitempty"`
}

// Product representa um produto do catálogo. Version é um contador
// monotônico incrementado a cada mutação de estoque (diagnóstico,
// não mecanismo de correção).
type Product struct {
	ID            string         `json:"id" db:"id"`
	Name          string         `json:"name" db:"name"`
	Description   string         `json:"description" db:"description"`
	CategoryID    string         `json:"category_id,omitempty" db:"category_id"`
	ColorVariants []ColorVariant `json:"color_variants"`
	Version       int            `json:"version" db:"version"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// FindVariant localiza a entrada (cor, tamanho) dentro do produto
func (p *Product) FindVariant(color string, size Size) *SizeEntry {
	for ci := range p.ColorVariants {
		if p.ColorVariants[ci].Color != color {
			continue
		}
		for si := range p.ColorVariants[ci].Sizes {
			if p.ColorVariants[ci].Sizes[si].Size == size {
				return &p.ColorVariants[ci].Sizes[si]
			}
		}
	}
	return nil
}

// Category representa uma categoria de produtos
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// VariantRef identifica a tripla (produto, cor, tamanho), a menor
// unidade que carrega estoque e preço independentes
type VariantRef struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      Size   `json:"size"`
}

// Variant é o registro de estoque resolvido de uma VariantRef
type Variant struct {
	VariantRef
	PriceCents int   `json:"price_cents"`
	Stock      Stock `json:"stock"`
}

// CartItem representa uma linha do carrinho de um usuário.
// O carrinho não guarda preço: o preço é capturado na reserva.
type CartItem struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      Size   `json:"size"`
	Quantity  int    `json:"quantity"`
}

// Cart representa o carrinho de compras de um usuário
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Upsert adiciona ou atualiza a linha (produto, cor, tamanho);
// quantidade <= 0 remove a linha do carrinho
func (c *Cart) Upsert(item CartItem) {
	for i := range c.Items {
		existing := &c.Items[i]
		if existing.ProductID == item.ProductID &&
			existing.Color == item.Color &&
			existing.Size == item.Size {
			if item.Quantity > 0 {
				existing.Quantity = item.Quantity
			} else {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
			}
			return
		}
	}
	if item.Quantity > 0 {
		c.Items = append(c.Items, item)
	}
}

// OrderStatus representa os possíveis status de um pedido
const (
	OrderStatusPendingPayment = "PENDING_PAYMENT"
	OrderStatusPaid           = "PAID"
	OrderStatusCanceled       = "CANCELED"
	OrderStatusExpired        = "EXPIRED"
)

// OrderItem representa uma linha de pedido com o preço capturado
// no momento da reserva, imutável depois disso
type OrderItem struct {
	ProductID  string `json:"product_id" db:"product_id"`
	Color      string `json:"color" db:"color"`
	Size       Size   `json:"size" db:"size"`
	Quantity   int    `json:"quantity" db:"quantity"`
	PriceCents int    `json:"price_cents" db:"price_cents"`
}

// Order representa um pedido no sistema
type Order struct {
	ID         string      `json:"id" db:"id"`
	UserID     string      `json:"user_id" db:"user_id"`
	Items      []OrderItem `json:"items"`
	TotalCents int         `json:"total_cents" db:"total_cents"`
	Status     string      `json:"status" db:"status"`
	ExpiresAt  time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// NewOrder cria uma nova instância de Order em PENDING_PAYMENT,
// calculando o total a partir dos preços capturados por linha
func NewOrder(id, userID string, items []OrderItem, ttl time.Duration) *Order {
	total := 0
	for _, item := range items {
		total += item.PriceCents * item.Quantity
	}
	now := time.Now()
	return &Order{
		ID:         id,
		UserID:     userID,
		Items:      items,
		TotalCents: total,
		Status:     OrderStatusPendingPayment,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkPaid transiciona o pedido para PAID
func (o *Order) MarkPaid() error {
	if o.Status != OrderStatusPendingPayment {
		return errors.New("somente pedidos pendentes podem ser pagos")
	}
	o.Status = OrderStatusPaid
	return nil
}

// MarkCanceled transiciona o pedido para CANCELED
func (o *Order) MarkCanceled() error {
	if o.Status != OrderStatusPendingPayment {
		return errors.New("somente pedidos pendentes podem ser cancelados")
	}
	o.Status = OrderStatusCanceled
	return nil
}

// MarkExpired transiciona o pedido para EXPIRED
func (o *Order) MarkExpired() error {
	if o.Status != OrderStatusPendingPayment {
		return errors.New("somente pedidos pendentes podem expirar")
	}
	o.Status = OrderStatusExpired
	return nil
}
