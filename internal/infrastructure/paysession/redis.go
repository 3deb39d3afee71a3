package paysession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cardshop/internal/domain"
	"cardshop/pkg/errcodes"
)

// Store хранит платёжные сессии в Redis: реквизит → ID заказа, с TTL.
// Сессия нужна только внешней платёжной заглушке, ядро её не читает.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

func (s *Store) Save(ctx context.Context, reference, orderID string) error {
	if err := s.client.Set(ctx, key(reference), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis.Set: %w", err)
	}

	return nil
}

// OrderID разрешает платёжный реквизит в ID заказа.
// Истёкшая или неизвестная сессия даёт NotFound.
func (s *Store) OrderID(ctx context.Context, reference string) (string, error) {
	orderID, err := s.client.Get(ctx, key(reference)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.NewError(errcodes.NotFound, "payment session not found")
		}
		return "", fmt.Errorf("redis.Get: %w", err)
	}

	return orderID, nil
}

func key(reference string) string {
	return "paysession:" + reference
}
