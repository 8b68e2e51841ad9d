package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"
)

// MockLedgerAPI simula o ledger completo exposto aos handlers
type MockLedgerAPI struct {
	mock.Mock
}

func (m *MockLedgerAPI) Reserve(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	args := m.Called(ctx, ref, qty, orderID)
	return args.Error(0)
}

func (m *MockLedgerAPI) Release(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	args := m.Called(ctx, ref, qty, orderID)
	return args.Error(0)
}

func (m *MockLedgerAPI) Finalize(ctx context.Context, ref VariantRef, qty int, orderID string) error {
	args := m.Called(ctx, ref, qty, orderID)
	return args.Error(0)
}

func (m *MockLedgerAPI) Restock(ctx context.Context, ref VariantRef, qty int) error {
	args := m.Called(ctx, ref, qty)
	return args.Error(0)
}

func (m *MockLedgerAPI) GetVariant(ctx context.Context, ref VariantRef) (*Variant, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Variant), args.Error(1)
}

// MockOrdersAPI simula o caso de uso de pedidos exposto aos handlers
type MockOrdersAPI struct {
	mock.Mock
}

func (m *MockOrdersAPI) CreateOrder(ctx context.Context, userID string, lines []CartItem) (*Order, error) {
	args := m.Called(ctx, userID, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockOrdersAPI) ConfirmPayment(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockOrdersAPI) CancelOrder(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockOrdersAPI) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

// MockCartAPI simula o caso de uso de carrinho exposto aos handlers
type MockCartAPI struct {
	mock.Mock
}

func (m *MockCartAPI) GetCart(ctx context.Context, userID string) (*Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Cart), args.Error(1)
}

func (m *MockCartAPI) UpsertItem(ctx context.Context, userID string, item CartItem) (*Cart, error) {
	args := m.Called(ctx, userID, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Cart), args.Error(1)
}

func (m *MockCartAPI) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func setupTestRouter(ledger StockLedgerInterface, orders OrderUseCaseInterface, cart CartUseCaseInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewStoreHandler(ledger, orders, cart, nil, otel.Tracer("test"))
	setupRoutes(r, handler)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReserveEndpoint_StatusMapping(t *testing.T) {
	productID := uuid.NewString()
	body := StockActionRequest{ProductID: productID, Color: "azul", Size: SizeM, Quantity: 2, OrderID: "order-1"}

	tests := []struct {
		name       string
		ledgerErr  error
		wantStatus int
	}{
		{"sucesso", nil, http.StatusOK},
		{"estoque insuficiente", ErrInsufficientStock, http.StatusConflict},
		{"variante desconhecida", ErrVariantNotFound, http.StatusNotFound},
		{"entrada inválida", invalidInput("tamanho inválido"), http.StatusBadRequest},
		{"falha de infraestrutura", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockLedger := new(MockLedgerAPI)
			mockLedger.On("Reserve", mock.Anything, mock.Anything, 2, "order-1").Return(tt.ledgerErr)
			r := setupTestRouter(mockLedger, nil, nil)

			// Act
			w := postJSON(r, "/api/stock/reserve", body)

			// Assert
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestReserveEndpoint_RejectsMalformedBody(t *testing.T) {
	// Arrange: quantidade ausente não passa no binding
	mockLedger := new(MockLedgerAPI)
	r := setupTestRouter(mockLedger, nil, nil)

	// Act
	w := postJSON(r, "/api/stock/reserve", gin.H{"product_id": uuid.NewString(), "color": "azul", "size": "M"})

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockLedger.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckout_CreatesOrderAndClearsCart(t *testing.T) {
	// Arrange
	mockOrders := new(MockOrdersAPI)
	mockCart := new(MockCartAPI)
	r := setupTestRouter(nil, mockOrders, mockCart)

	items := []CartItem{{ProductID: uuid.NewString(), Color: "azul", Size: SizeM, Quantity: 1}}
	order := pendingOrder()

	mockCart.On("GetCart", mock.Anything, "user-1").Return(&Cart{UserID: "user-1", Items: items}, nil)
	mockOrders.On("CreateOrder", mock.Anything, "user-1", items).Return(order, nil)
	mockCart.On("Clear", mock.Anything, "user-1").Return(nil)

	// Act
	w := postJSON(r, "/api/orders", CheckoutRequest{UserID: "user-1"})

	// Assert
	assert.Equal(t, http.StatusCreated, w.Code)
	mockOrders.AssertExpectations(t)
	mockCart.AssertExpectations(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	// Arrange
	mockOrders := new(MockOrdersAPI)
	mockCart := new(MockCartAPI)
	r := setupTestRouter(nil, mockOrders, mockCart)

	mockCart.On("GetCart", mock.Anything, "user-1").Return(&Cart{UserID: "user-1"}, nil)

	// Act
	w := postJSON(r, "/api/orders", CheckoutRequest{UserID: "user-1"})

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockOrders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	mockCart.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestPaymentWebhook(t *testing.T) {
	orderID := uuid.NewString()

	t.Run("pagamento aprovado confirma o pedido", func(t *testing.T) {
		// Arrange
		mockOrders := new(MockOrdersAPI)
		mockOrders.On("ConfirmPayment", mock.Anything, orderID).Return(nil)
		r := setupTestRouter(nil, mockOrders, nil)

		// Act
		w := postJSON(r, "/api/payments/webhook", PaymentWebhookRequest{OrderID: orderID, Status: "APPROVED"})

		// Assert
		assert.Equal(t, http.StatusOK, w.Code)
		mockOrders.AssertExpectations(t)
	})

	t.Run("pagamento falhado cancela o pedido", func(t *testing.T) {
		// Arrange
		mockOrders := new(MockOrdersAPI)
		mockOrders.On("CancelOrder", mock.Anything, orderID).Return(nil)
		r := setupTestRouter(nil, mockOrders, nil)

		// Act
		w := postJSON(r, "/api/payments/webhook", PaymentWebhookRequest{OrderID: orderID, Status: "FAILED"})

		// Assert
		assert.Equal(t, http.StatusOK, w.Code)
		mockOrders.AssertExpectations(t)
	})

	t.Run("webhook tardio sobre pedido expirado", func(t *testing.T) {
		// Arrange
		mockOrders := new(MockOrdersAPI)
		mockOrders.On("ConfirmPayment", mock.Anything, orderID).
			Return(fmt.Errorf("%w: pedido %s não está pendente de pagamento", ErrInvalidOrderState, orderID))
		r := setupTestRouter(nil, mockOrders, nil)

		// Act
		w := postJSON(r, "/api/payments/webhook", PaymentWebhookRequest{OrderID: orderID, Status: "APPROVED"})

		// Assert
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("status desconhecido é rejeitado no binding", func(t *testing.T) {
		// Arrange
		mockOrders := new(MockOrdersAPI)
		r := setupTestRouter(nil, mockOrders, nil)

		// Act
		w := postJSON(r, "/api/payments/webhook", gin.H{"order_id": orderID, "status": "MAYBE"})

		// Assert
		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockOrders.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything)
		mockOrders.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
	})
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	// Arrange
	mockOrders := new(MockOrdersAPI)
	orderID := uuid.NewString()
	mockOrders.On("GetOrder", mock.Anything, orderID).Return(nil, ErrOrderNotFound)
	r := setupTestRouter(nil, mockOrders, nil)

	// Act
	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInternalErrorsAreNotEchoed(t *testing.T) {
	// Arrange
	mockOrders := new(MockOrdersAPI)
	orderID := uuid.NewString()
	mockOrders.On("GetOrder", mock.Anything, orderID).Return(nil, errors.New("pgx: secret dsn detail"))
	r := setupTestRouter(nil, mockOrders, nil)

	// Act
	req := httptest.NewRequest(http.MethodGet, "/api/orders/"+orderID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Assert: corpo genérico, sem vazar o erro interno
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestHealthCheck(t *testing.T) {
	r := setupTestRouter(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
