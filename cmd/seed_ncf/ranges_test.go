package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/lavanflow/ncf-api/internal/application/vouchers"
	"github.com/lavanflow/ncf-api/internal/domain"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/internal/infrastructure/memory"
	"github.com/lavanflow/ncf-api/pkg/logger"
	"github.com/lavanflow/ncf-api/pkg/ncf"
)

func TestParseRanges(t *testing.T) {
	in := strings.NewReader("branch_id;type;prefix;start;end\n" +
		"# sucursal principal\n" +
		"b1; TAX_CREDIT; B01; 1; 100\n" +
		"b2;final_consumer;b02;501;1000\n")

	ranges, err := parseRanges(in)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, vouchers.ProvisionInput{BranchID: "b1", Type: entity.TaxReceiptTaxCredit, Prefix: "B01", Start: 1, End: 100}, ranges[0])
	assert.Equal(t, entity.TaxReceiptFinalConsumer, ranges[1].Type)
	assert.Equal(t, "B02", ranges[1].Prefix)
}

func TestParseRanges_ISO88591(t *testing.T) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String("sucursal-señorial;GOVERNMENT;B15;1;50\n")
	require.NoError(t, err)

	ranges, err := parseRanges(bytes.NewReader([]byte(latin1)))
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, "sucursal-señorial", ranges[0].BranchID)
}

func TestParseRanges_Errores(t *testing.T) {
	cases := map[string]string{
		"columnas":   "b1;TAX_CREDIT;B01;1\n",
		"start":      "b1;TAX_CREDIT;B01;uno;100\n",
		"tipo NONE":  "b1;NONE;;1;100\n",
		"tipo ajeno": "b1;B99;B99;1;100\n",
	}
	for name, csv := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseRanges(strings.NewReader(csv))
			assert.Error(t, err)
		})
	}
}

func TestProvisionAll(t *testing.T) {
	ctx := context.Background()
	alloc := vouchers.NewAllocator(memory.NewVoucherRangeRepository(), nil, logger.Nop(), vouchers.Config{})

	created, skipped, err := provisionAll(ctx, alloc, defaultRanges)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Zero(t, skipped)

	list, err := alloc.ListRanges(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(100), list[0].Total())
	assert.Equal(t, int64(500), list[1].Total())

	created, skipped, err = provisionAll(ctx, alloc, []vouchers.ProvisionInput{
		{BranchID: "b1", Type: entity.TaxReceiptTaxCredit, Start: 101, End: 110},
		{BranchID: "b1", Type: entity.TaxReceiptTaxCredit, Prefix: "B02", Start: 111, End: 120},
	})
	assert.ErrorIs(t, err, domain.ErrPrefixMismatch)
	assert.Equal(t, 1, created)
	assert.Zero(t, skipped)
}

func TestProvisionAll_RepetirNoDuplica(t *testing.T) {
	ctx := context.Background()
	alloc := vouchers.NewAllocator(memory.NewVoucherRangeRepository(), nil, logger.Nop(), vouchers.Config{})

	_, _, err := provisionAll(ctx, alloc, defaultRanges)
	require.NoError(t, err)
	created, skipped, err := provisionAll(ctx, alloc, defaultRanges)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 2, skipped)

	list, err := alloc.ListRanges(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Tras repetir la carga la emisión sigue avanzando sobre el rango original.
	for want := int64(1); want <= 3; want++ {
		code, ok, err := alloc.IssueNext(ctx, vouchers.IssueInput{Type: entity.TaxReceiptTaxCredit, BranchID: "b1"})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, mustSequence(t, code))
	}

	// Un solapamiento parcial no se omite: se rechaza.
	_, _, err = provisionAll(ctx, alloc, []vouchers.ProvisionInput{
		{BranchID: "b1", Type: entity.TaxReceiptTaxCredit, Start: 50, End: 150},
	})
	assert.ErrorIs(t, err, domain.ErrRangeOverlap)
}

func mustSequence(t *testing.T, code string) int64 {
	t.Helper()
	_, seq, err := ncf.Parse(code)
	require.NoError(t, err)
	return seq
}
