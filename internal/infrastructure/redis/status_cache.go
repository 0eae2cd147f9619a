package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/jhoicas/checkout-core/internal/application/checkout"
	"github.com/jhoicas/checkout-core/internal/application/dto"
)

var _ checkout.StatusCache = (*StatusCache)(nil)

// StatusCache cache de lectura del estado de checkout por carrito sobre
// Redis. El TTL acota la staleness; toda mutación de estado invalida la
// clave del carrito.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache construye el cache con el TTL de vigencia por entrada.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

// NewClient crea el cliente Redis y verifica conectividad con un ping.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func statusKey(cartID string) string {
	return "checkout_status:" + cartID
}

// Get devuelve el estado cacheado del carrito, o (nil, nil) en miss.
func (c *StatusCache) Get(ctx context.Context, cartID string) (*dto.CheckoutStatus, error) {
	raw, err := c.client.Get(ctx, statusKey(cartID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	var status dto.CheckoutStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("cache unmarshal: %w", err)
	}
	return &status, nil
}

// Set cachea el estado del carrito con el TTL configurado.
func (c *StatusCache) Set(ctx context.Context, cartID string, status *dto.CheckoutStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, statusKey(cartID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate elimina la entrada del carrito.
func (c *StatusCache) Invalidate(ctx context.Context, cartID string) error {
	if err := c.client.Del(ctx, statusKey(cartID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
