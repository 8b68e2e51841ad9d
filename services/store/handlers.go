package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StockLedgerInterface define a interface do ledger para os handlers
type StockLedgerInterface interface {
	Reserve(ctx context.Context, ref VariantRef, qty int, orderID string) error
	Release(ctx context.Context, ref VariantRef, qty int, orderID string) error
	Finalize(ctx context.Context, ref VariantRef, qty int, orderID string) error
	Restock(ctx context.Context, ref VariantRef, qty int) error
	GetVariant(ctx context.Context, ref VariantRef) (*Variant, error)
}

// OrderUseCaseInterface define a interface de pedidos para os handlers
type OrderUseCaseInterface interface {
	CreateOrder(ctx context.Context, userID string, lines []CartItem) (*Order, error)
	ConfirmPayment(ctx context.Context, orderID string) error
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// CartUseCaseInterface define a interface de carrinho para os handlers
type CartUseCaseInterface interface {
	GetCart(ctx context.Context, userID string) (*Cart, error)
	UpsertItem(ctx context.Context, userID string, item CartItem) (*Cart, error)
	Clear(ctx context.Context, userID string) error
}

// CatalogUseCaseInterface define a interface de catálogo para os handlers
type CatalogUseCaseInterface interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProduct(ctx context.Context, productID string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	SearchProducts(ctx context.Context, params SearchParams) ([]*Product, error)
	UpdateProduct(ctx context.Context, product *Product) (*Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	CreateCategory(ctx context.Context, category *Category) (*Category, error)
	GetCategory(ctx context.Context, categoryID string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, category *Category) (*Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error
}

// StoreHandler contém os handlers HTTP do serviço
type StoreHandler struct {
	ledger  StockLedgerInterface
	orders  OrderUseCaseInterface
	cart    CartUseCaseInterface
	catalog CatalogUseCaseInterface
	tracer  trace.Tracer
}

// NewStoreHandler cria uma nova instância de StoreHandler
func NewStoreHandler(
	ledger StockLedgerInterface,
	orders OrderUseCaseInterface,
	cart CartUseCaseInterface,
	catalog CatalogUseCaseInterface,
	tracer trace.Tracer,
) *StoreHandler {
	return &StoreHandler{
		ledger:  ledger,
		orders:  orders,
		cart:    cart,
		catalog: catalog,
		tracer:  tracer,
	}
}

// StockActionRequest representa a requisição das operações de estoque
type StockActionRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Color     string `json:"color" binding:"required"`
	Size      Size   `json:"size" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	OrderID   string `json:"order_id,omitempty"`
}

// CheckoutRequest representa a requisição de checkout do carrinho
type CheckoutRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// PaymentWebhookRequest representa o callback do provedor de pagamento
type PaymentWebhookRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Status  string `json:"status" binding:"required,oneof=APPROVED FAILED"`
}

// respondError traduz o erro de negócio para o status HTTP. Erros
// inesperados viram 500 com corpo genérico; o detalhe fica no log do
// servidor, nunca ecoado ao chamador.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case isNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrReservationNotFound),
		errors.Is(err, ErrInvalidOrderState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("💥 [HTTP] erro interno: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "erro interno"})
	}
}

// ---- Estoque ----

func (h *StoreHandler) stockAction(c *gin.Context, name string, action func(ctx context.Context, ref VariantRef, qty int, orderID string) error) {
	ctx, span := h.tracer.Start(c.Request.Context(), name)
	defer span.End()

	var req StockActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("product_id", req.ProductID),
		attribute.String("color", req.Color),
		attribute.String("size", string(req.Size)),
		attribute.Int("quantity", req.Quantity),
	)

	ref := VariantRef{ProductID: req.ProductID, Color: req.Color, Size: req.Size}
	if err := action(ctx, ref, req.Quantity, req.OrderID); err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// ReserveStock reserva estoque de uma variante
func (h *StoreHandler) ReserveStock(c *gin.Context) {
	h.stockAction(c, "http.stock.reserve", h.ledger.Reserve)
}

// ReleaseStock devolve estoque reservado para disponível
func (h *StoreHandler) ReleaseStock(c *gin.Context) {
	h.stockAction(c, "http.stock.release", h.ledger.Release)
}

// FinalizePurchase consome estoque reservado (compra concluída)
func (h *StoreHandler) FinalizePurchase(c *gin.Context) {
	h.stockAction(c, "http.stock.finalize", h.ledger.Finalize)
}

// Restock repõe estoque disponível
func (h *StoreHandler) Restock(c *gin.Context) {
	h.stockAction(c, "http.stock.restock", func(ctx context.Context, ref VariantRef, qty int, _ string) error {
		return h.ledger.Restock(ctx, ref, qty)
	})
}

// GetVariant consulta preço e contadores de uma variante
func (h *StoreHandler) GetVariant(c *gin.Context) {
	ref := VariantRef{
		ProductID: c.Param("productId"),
		Color:     c.Param("color"),
		Size:      Size(c.Param("size")),
	}
	variant, err := h.ledger.GetVariant(c.Request.Context(), ref)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, variant)
}

// ---- Pedidos ----

// Checkout converte o carrinho do usuário em um pedido via SAGA de
// reservas; em caso de sucesso o carrinho é descartado
func (h *StoreHandler) Checkout(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.checkout")
	defer span.End()

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("user_id", req.UserID))

	cart, err := h.cart.GetCart(ctx, req.UserID)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	if len(cart.Items) == 0 {
		respondError(c, ErrEmptyCart)
		return
	}

	order, err := h.orders.CreateOrder(ctx, req.UserID, cart.Items)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	if err := h.cart.Clear(ctx, req.UserID); err != nil {
		// pedido já existe; carrinho obsoleto é inconveniente, não erro
		log.Printf("⚠️ [CHECKOUT] falha ao limpar carrinho UserID=%s: %v", req.UserID, err)
	}

	span.SetAttributes(attribute.String("order_id", order.ID))
	c.JSON(http.StatusCreated, order)
}

// GetOrder busca um pedido pelo ID
func (h *StoreHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PaymentWebhook recebe o desfecho do pagamento: APPROVED finaliza as
// reservas do pedido, FAILED devolve tudo ao disponível
func (h *StoreHandler) PaymentWebhook(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "http.payment_webhook")
	defer span.End()

	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(
		attribute.String("order_id", req.OrderID),
		attribute.String("status", req.Status),
	)

	var err error
	if req.Status == "APPROVED" {
		err = h.orders.ConfirmPayment(ctx, req.OrderID)
	} else {
		err = h.orders.CancelOrder(ctx, req.OrderID)
	}
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// ---- Carrinho ----

// GetCart retorna o carrinho do usuário
func (h *StoreHandler) GetCart(c *gin.Context) {
	cart, err := h.cart.GetCart(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// UpsertCartItem adiciona, atualiza ou remove uma linha do carrinho
func (h *StoreHandler) UpsertCartItem(c *gin.Context) {
	var item CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.cart.UpsertItem(c.Request.Context(), c.Param("userId"), item)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ---- Catálogo ----

// CreateProduct cria um produto
func (h *StoreHandler) CreateProduct(c *gin.Context) {
	var product Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.catalog.CreateProduct(c.Request.Context(), &product)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetProduct busca um produto
func (h *StoreHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// ListProducts lista o catálogo
func (h *StoreHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// SearchProducts busca produtos por nome, categoria e faixa de preço
func (h *StoreHandler) SearchProducts(c *gin.Context) {
	params := SearchParams{
		Name:     c.Query("name"),
		Category: c.Query("category"),
	}
	if raw := c.Query("min_price"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_price inválido"})
			return
		}
		params.MinPriceCents = v
	}
	if raw := c.Query("max_price"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_price inválido"})
			return
		}
		params.MaxPriceCents = v
	}

	products, err := h.catalog.SearchProducts(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// UpdateProduct atualiza um produto
func (h *StoreHandler) UpdateProduct(c *gin.Context) {
	var product Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	product.ID = c.Param("id")
	updated, err := h.catalog.UpdateProduct(c.Request.Context(), &product)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteProduct remove um produto
func (h *StoreHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// CreateCategory cria uma categoria
func (h *StoreHandler) CreateCategory(c *gin.Context) {
	var category Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.catalog.CreateCategory(c.Request.Context(), &category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetCategory busca uma categoria
func (h *StoreHandler) GetCategory(c *gin.Context) {
	category, err := h.catalog.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// ListCategories lista as categorias
func (h *StoreHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// UpdateCategory atualiza uma categoria
func (h *StoreHandler) UpdateCategory(c *gin.Context) {
	var category Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	category.ID = c.Param("id")
	updated, err := h.catalog.UpdateCategory(c.Request.Context(), &category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteCategory remove uma categoria
func (h *StoreHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalog.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "success"})
}

// HealthCheck verifica a saúde do serviço
func (h *StoreHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "store-service",
	})
}

// setupRoutes registra todas as rotas do serviço
func setupRoutes(r *gin.Engine, h *StoreHandler) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")

	api.POST("/stock/reserve", h.ReserveStock)
	api.POST("/stock/release", h.ReleaseStock)
	api.POST("/stock/finalize", h.FinalizePurchase)
	api.POST("/stock/restock", h.Restock)
	api.GET("/stock/:productId/:color/:size", h.GetVariant)

	api.POST("/orders", h.Checkout)
	api.GET("/orders/:id", h.GetOrder)
	api.POST("/payments/webhook", h.PaymentWebhook)

	api.GET("/cart/:userId", h.GetCart)
	api.PUT("/cart/:userId/items", h.UpsertCartItem)

	api.GET("/products", h.ListProducts)
	api.GET("/products/search", h.SearchProducts)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/products", h.CreateProduct)
	api.PUT("/products/:id", h.UpdateProduct)
	api.DELETE("/products/:id", h.DeleteProduct)

	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:id", h.GetCategory)
	api.POST("/categories", h.CreateCategory)
	api.PUT("/categories/:id", h.UpdateCategory)
	api.DELETE("/categories/:id", h.DeleteCategory)
}
