package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lavanflow/ncf-api/internal/application/vouchers"
)

var _ vouchers.BurnLocker = (*Locker)(nil)

// retryInterval pausa entre intentos de tomar un candado ocupado.
const retryInterval = 25 * time.Millisecond

// ErrLockBusy el candado sigue tomado por otra instancia tras agotar los reintentos.
var ErrLockBusy = errors.New("candado ocupado por otra instancia")

// Locker candado por clave sobre Redis (bsm/redislock). Se espera como máximo ttl a que
// otra instancia lo libere.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker construye el candado sobre un cliente ya conectado.
func NewLocker(client goredis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{client: redislock.New(client), ttl: ttl}
}

// Lock toma el candado de key. La función devuelta lo libera; liberar un candado ya
// expirado no es error.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	retries := int(l.ttl / retryInterval)
	if retries < 1 {
		retries = 1
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(retryInterval), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: obtener candado %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("redis: liberar candado %s: %w", key, err)
		}
		return nil
	}, nil
}
