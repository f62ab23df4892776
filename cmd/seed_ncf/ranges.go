package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/lavanflow/ncf-api/internal/application/vouchers"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
)

// defaultRanges rangos de arranque de una instalación nueva (sucursal b1).
var defaultRanges = []vouchers.ProvisionInput{
	{BranchID: "b1", Type: entity.TaxReceiptTaxCredit, Prefix: "B01", Start: 1, End: 100},
	{BranchID: "b1", Type: entity.TaxReceiptFinalConsumer, Prefix: "B02", Start: 1, End: 500},
}

// parseRanges lee el CSV exportado de la oficina virtual de la DGII:
//
//	branch_id;type;prefix;start;end
//
// La cabecera es opcional. Los archivos en ISO-8859-1 (Excel en Windows) se convierten a UTF-8.
func parseRanges(r io.Reader) ([]vouchers.ProvisionInput, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("leer CSV: %w", err)
	}
	var src io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.Comma = ';'
	cr.Comment = '#'
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV inválido: %w", err)
	}

	var out []vouchers.ProvisionInput
	for i, rec := range records {
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "branch_id") {
			continue
		}
		in, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", i+1, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func parseRecord(rec []string) (vouchers.ProvisionInput, error) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	start, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return vouchers.ProvisionInput{}, fmt.Errorf("start %q: %w", rec[3], err)
	}
	end, err := strconv.ParseInt(rec[4], 10, 64)
	if err != nil {
		return vouchers.ProvisionInput{}, fmt.Errorf("end %q: %w", rec[4], err)
	}
	typ := entity.TaxReceiptType(strings.ToUpper(rec[1]))
	if !typ.Fiscal() {
		return vouchers.ProvisionInput{}, fmt.Errorf("tipo %q no fiscal", rec[1])
	}
	return vouchers.ProvisionInput{
		BranchID: rec[0],
		Type:     typ,
		Prefix:   strings.ToUpper(rec[2]),
		Start:    start,
		End:      end,
	}, nil
}
