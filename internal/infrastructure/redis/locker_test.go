package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanflow/ncf-api/internal/application/vouchers"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/internal/infrastructure/memory"
	"github.com/lavanflow/ncf-api/pkg/config"
	"github.com/lavanflow/ncf-api/pkg/logger"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl), mr
}

func TestLocker_TomarYLiberar(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLocker(t, time.Second)

	release, err := l.Lock(ctx, "ncf:burn:b1:TAX_CREDIT")
	require.NoError(t, err)
	assert.True(t, mr.Exists("ncf:burn:b1:TAX_CREDIT"))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("ncf:burn:b1:TAX_CREDIT"))
}

func TestLocker_Ocupado(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLocker(t, 100*time.Millisecond)

	release, err := l.Lock(ctx, "ncf:burn:b1:FINAL_CONSUMER")
	require.NoError(t, err)
	defer func() { _ = release(ctx) }()

	// miniredis no expira claves con el reloj real, así que el segundo intento agota los reintentos.
	_, err = l.Lock(ctx, "ncf:burn:b1:FINAL_CONSUMER")
	assert.ErrorIs(t, err, ErrLockBusy)

	other, err := l.Lock(ctx, "ncf:burn:b2:FINAL_CONSUMER")
	require.NoError(t, err, "otra clave no comparte candado")
	require.NoError(t, other(ctx))
}

func TestLocker_LiberarExpiradoNoFalla(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLocker(t, time.Second)

	release, err := l.Lock(ctx, "ncf:burn:b1:GOVERNMENT")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	assert.NoError(t, release(ctx))

	again, err := l.Lock(ctx, "ncf:burn:b1:GOVERNMENT")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestNewClient_SinServidor(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestLocker_ConAsignador(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLocker(t, time.Second)
	a := vouchers.NewAllocator(memory.NewVoucherRangeRepository(), l, logger.Nop(), vouchers.Config{})

	_, err := a.ProvisionRange(ctx, vouchers.ProvisionInput{Type: entity.TaxReceiptTaxCredit, Start: 1, End: 10, BranchID: "b1"})
	require.NoError(t, err)

	code, ok, err := a.IssueNext(ctx, vouchers.IssueInput{Type: entity.TaxReceiptTaxCredit, BranchID: "b1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B0100000001", code)
	assert.False(t, mr.Exists("ncf:burn:b1:TAX_CREDIT"), "el candado se libera al terminar la emisión")
}
