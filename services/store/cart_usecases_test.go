package main

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCartRepository simula a persistência de carrinhos
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) GetCart(ctx context.Context, userID string) (*Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Cart), args.Error(1)
}

func (m *MockCartRepository) SaveCart(ctx context.Context, cart *Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteCart(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func TestUpsertItem_AddsLine(t *testing.T) {
	// Arrange
	mockRepo := new(MockCartRepository)
	useCase := NewCartUseCase(mockRepo)
	item := CartItem{ProductID: uuid.NewString(), Color: "azul", Size: SizeM, Quantity: 2}

	mockRepo.On("GetCart", mock.Anything, "user-1").Return(&Cart{UserID: "user-1"}, nil)
	mockRepo.On("SaveCart", mock.Anything, mock.Anything).Return(nil)

	// Act
	cart, err := useCase.UpsertItem(context.Background(), "user-1", item)

	// Assert
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	mockRepo.AssertExpectations(t)
}

func TestUpsertItem_ZeroQuantityRemovesLine(t *testing.T) {
	// Arrange
	mockRepo := new(MockCartRepository)
	useCase := NewCartUseCase(mockRepo)
	item := CartItem{ProductID: uuid.NewString(), Color: "azul", Size: SizeM, Quantity: 2}
	existing := &Cart{UserID: "user-1", Items: []CartItem{item}}

	mockRepo.On("GetCart", mock.Anything, "user-1").Return(existing, nil)
	mockRepo.On("SaveCart", mock.Anything, mock.Anything).Return(nil)

	removed := item
	removed.Quantity = 0

	// Act
	cart, err := useCase.UpsertItem(context.Background(), "user-1", removed)

	// Assert
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
	mockRepo.AssertExpectations(t)
}

func TestUpsertItem_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		item   CartItem
	}{
		{"usuário vazio", "", CartItem{ProductID: uuid.NewString(), Color: "azul", Size: SizeM, Quantity: 1}},
		{"product id inválido", "user-1", CartItem{ProductID: "nope", Color: "azul", Size: SizeM, Quantity: 1}},
		{"cor vazia", "user-1", CartItem{ProductID: uuid.NewString(), Color: "", Size: SizeM, Quantity: 1}},
		{"tamanho inválido", "user-1", CartItem{ProductID: uuid.NewString(), Color: "azul", Size: "XG", Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mockRepo := new(MockCartRepository)
			useCase := NewCartUseCase(mockRepo)

			// Act
			cart, err := useCase.UpsertItem(context.Background(), tt.userID, tt.item)

			// Assert
			assert.Nil(t, cart)
			assert.ErrorIs(t, err, ErrInvalidInput)
			mockRepo.AssertNotCalled(t, "GetCart", mock.Anything, mock.Anything)
		})
	}
}

func TestClear(t *testing.T) {
	// Arrange
	mockRepo := new(MockCartRepository)
	useCase := NewCartUseCase(mockRepo)

	mockRepo.On("DeleteCart", mock.Anything, "user-1").Return(nil)

	// Act
	err := useCase.Clear(context.Background(), "user-1")

	// Assert
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestGetCart_RequiresUser(t *testing.T) {
	// Arrange
	mockRepo := new(MockCartRepository)
	useCase := NewCartUseCase(mockRepo)

	// Act
	cart, err := useCase.GetCart(context.Background(), "")

	// Assert
	assert.Nil(t, cart)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
