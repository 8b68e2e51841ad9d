package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CartRepository define a persistência do carrinho de compras
type CartRepository interface {
	// GetCart retorna o carrinho do usuário; um carrinho vazio quando
	// não existe
	GetCart(ctx context.Context, userID string) (*Cart, error)

	// SaveCart persiste o carrinho inteiro
	SaveCart(ctx context.Context, cart *Cart) error

	// DeleteCart descarta o carrinho do usuário
	DeleteCart(ctx context.Context, userID string) error
}

// RedisCartRepository implementa CartRepository guardando o carrinho
// como documento JSON no Redis, uma chave por usuário
type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository cria uma nova instância de RedisCartRepository
func NewCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{client: client, ttl: ttl}
}

func cartKey(userID string) string {
	return "cart:" + userID
}

// GetCart retorna o carrinho do usuário
func (r *RedisCartRepository) GetCart(ctx context.Context, userID string) (*Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Cart{UserID: userID}, nil
		}
		return nil, fmt.Errorf("falha ao buscar carrinho: %w", err)
	}

	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("falha ao decodificar carrinho: %w", err)
	}
	return &cart, nil
}

// SaveCart persiste o carrinho com TTL renovado
func (r *RedisCartRepository) SaveCart(ctx context.Context, cart *Cart) error {
	cart.UpdatedAt = time.Now()
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("falha ao codificar carrinho: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(cart.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("falha ao salvar carrinho: %w", err)
	}
	return nil
}

// DeleteCart descarta o carrinho do usuário
func (r *RedisCartRepository) DeleteCart(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("falha ao remover carrinho: %w", err)
	}
	return nil
}
