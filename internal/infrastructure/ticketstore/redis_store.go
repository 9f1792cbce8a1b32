package ticketstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	"github.com/jhoicas/afip-bridge/internal/domain/repository"
)

var _ repository.TicketStore = (*RedisStore)(nil)

const keyPrefix = "afip:ta:"

// RedisClient subconjunto de *redis.Client que usa el store.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore guarda los tickets en Redis con vencimiento igual al del ticket,
// así varias instancias del servicio comparten el mismo TA.
type RedisStore struct {
	client RedisClient
	now    func() time.Time
}

// NewRedisStore construye el store.
func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// NewRedisClient abre la conexión y verifica con PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Key devuelve la clave Redis del ticket.
func Key(cuit, service string) string {
	return keyPrefix + cuit + ":" + service
}

// Load lee el ticket; (nil, nil) si la clave no existe o ya venció.
func (s *RedisStore) Load(ctx context.Context, cuit, service string) (*entity.AuthTicket, error) {
	raw, err := s.client.Get(ctx, Key(cuit, service)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get ticket: %w", err)
	}
	var t entity.AuthTicket
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("ticket corrupto en redis: %w", err)
	}
	return &t, nil
}

// Save guarda el ticket con TTL hasta su vencimiento. Un ticket ya vencido no se guarda.
func (s *RedisStore) Save(ctx context.Context, t *entity.AuthTicket) error {
	ttl := t.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("serializar ticket: %w", err)
	}
	if err := s.client.Set(ctx, Key(t.TenantCUIT, t.Service), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set ticket: %w", err)
	}
	return nil
}
