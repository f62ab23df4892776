package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavanflow/ncf-api/internal/domain/entity"
)

func newRange(start, end int64) *entity.VoucherRange {
	return &entity.VoucherRange{
		ID:       "vr1",
		BranchID: "b1",
		Type:     entity.TaxReceiptFinalConsumer,
		Prefix:   "B02",
		Start:    start,
		End:      end,
		Status:   entity.VoucherStatusActive,
	}
}

func TestTaxReceiptType_CanonicalPrefix(t *testing.T) {
	assert.Equal(t, "B01", entity.TaxReceiptTaxCredit.CanonicalPrefix())
	assert.Equal(t, "B02", entity.TaxReceiptFinalConsumer.CanonicalPrefix())
	assert.Equal(t, "B15", entity.TaxReceiptGovernment.CanonicalPrefix())
	assert.Equal(t, "", entity.TaxReceiptNone.CanonicalPrefix())

	assert.True(t, entity.TaxReceiptNone.Valid())
	assert.False(t, entity.TaxReceiptNone.Fiscal())
	assert.False(t, entity.TaxReceiptType("B99").Valid())
}

func TestBurn_SecuenciaConsecutiva(t *testing.T) {
	r := newRange(5, 50)
	for i := int64(0); i < 10; i++ {
		v, ok := r.Burn()
		require.True(t, ok)
		assert.Equal(t, 5+i, v)
	}
	assert.Equal(t, int64(10), r.Current)
}

// Umbrales: del 1 al 89 sigue ACTIVE, el 90 (10% restante) pasa a LOW y el 100 a EXHAUSTED.
func TestBurn_Umbrales(t *testing.T) {
	r := newRange(1, 100)
	for i := 1; i <= 89; i++ {
		_, ok := r.Burn()
		require.True(t, ok)
		require.Equal(t, entity.VoucherStatusActive, r.Status, "emisión %d", i)
	}
	_, ok := r.Burn()
	require.True(t, ok)
	assert.Equal(t, entity.VoucherStatusLow, r.Status)
	assert.Equal(t, int64(10), r.Remaining())

	for i := 91; i <= 99; i++ {
		_, ok := r.Burn()
		require.True(t, ok)
		assert.Equal(t, entity.VoucherStatusLow, r.Status)
	}
	v, ok := r.Burn()
	require.True(t, ok)
	assert.Equal(t, int64(100), v)
	assert.Equal(t, entity.VoucherStatusExhausted, r.Status)
}

func TestBurn_RangoPequenoPasaDirectoAExhausted(t *testing.T) {
	r := newRange(7, 7)
	v, ok := r.Burn()
	require.True(t, ok)
	assert.Equal(t, int64(7), v)
	assert.Equal(t, entity.VoucherStatusExhausted, r.Status)
}

func TestBurn_FueraDeRangoMarcaExhausted(t *testing.T) {
	r := newRange(1, 3)
	r.Current = 3 // desfasado: estado aún ACTIVE
	_, ok := r.Burn()
	assert.False(t, ok)
	assert.Equal(t, int64(3), r.Current)
	assert.Equal(t, entity.VoucherStatusExhausted, r.Status)
}

func TestVoucherStatus_Eligible(t *testing.T) {
	assert.True(t, entity.VoucherStatusActive.Eligible())
	assert.True(t, entity.VoucherStatusLow.Eligible())
	assert.False(t, entity.VoucherStatusExhausted.Eligible())
	assert.False(t, entity.VoucherStatusInactive.Eligible())
}
