package entity

import (
	"time"

	"github.com/lavanflow/ncf-api/pkg/ncf"
)

// TaxReceiptType tipo de comprobante fiscal (DGII, República Dominicana).
type TaxReceiptType string

const (
	TaxReceiptNone          TaxReceiptType = "NONE"           // Sin comprobante fiscal
	TaxReceiptTaxCredit     TaxReceiptType = "TAX_CREDIT"     // Crédito fiscal (B01)
	TaxReceiptFinalConsumer TaxReceiptType = "FINAL_CONSUMER" // Consumidor final (B02)
	TaxReceiptGovernment    TaxReceiptType = "GOVERNMENT"     // Gubernamental (B15)
)

// canonicalPrefixes es la tabla explícita tipo -> serie. NONE no tiene serie.
var canonicalPrefixes = map[TaxReceiptType]string{
	TaxReceiptTaxCredit:     ncf.PrefixTaxCredit,
	TaxReceiptFinalConsumer: ncf.PrefixFinalConsumer,
	TaxReceiptGovernment:    ncf.PrefixGovernment,
}

// Valid indica si el tipo es uno de los valores conocidos (incluye NONE).
func (t TaxReceiptType) Valid() bool {
	if t == TaxReceiptNone {
		return true
	}
	_, ok := canonicalPrefixes[t]
	return ok
}

// Fiscal indica si el tipo requiere NCF.
func (t TaxReceiptType) Fiscal() bool {
	_, ok := canonicalPrefixes[t]
	return ok
}

// CanonicalPrefix devuelve la serie asociada al tipo ("" para NONE o tipos desconocidos).
func (t TaxReceiptType) CanonicalPrefix() string {
	return canonicalPrefixes[t]
}

// VoucherStatus estado de un rango de comprobantes.
type VoucherStatus string

const (
	VoucherStatusActive    VoucherStatus = "ACTIVE"
	VoucherStatusLow       VoucherStatus = "LOW"       // menos del 10% disponible
	VoucherStatusExhausted VoucherStatus = "EXHAUSTED" // sin capacidad
	VoucherStatusInactive  VoucherStatus = "INACTIVE"  // desactivado por un administrador
)

// Eligible indica si un rango en este estado puede emitir NCF.
func (s VoucherStatus) Eligible() bool {
	return s == VoucherStatusActive || s == VoucherStatusLow
}

// VoucherRange bloque de NCF autorizado para una sucursal y un tipo de comprobante.
// Current es la cantidad de números ya emitidos (desplazamiento desde Start).
type VoucherRange struct {
	ID        string
	BranchID  string
	Type      TaxReceiptType
	Prefix    string // B01, B02, B15
	Start     int64
	End       int64
	Current   int64
	Status    VoucherStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total capacidad total del rango (End - Start + 1).
func (r *VoucherRange) Total() int64 {
	return r.End - r.Start + 1
}

// Remaining números aún disponibles.
func (r *VoucherRange) Remaining() int64 {
	rem := r.End - (r.Start + r.Current - 1)
	if rem < 0 {
		return 0
	}
	return rem
}

// NextValue valor que se emitiría en la próxima quema.
func (r *VoucherRange) NextValue() int64 {
	return r.Start + r.Current
}

// Burn consume el siguiente número del rango: incrementa Current y recalcula Status.
// Devuelve el valor numérico emitido y false si el rango ya no tiene capacidad; en ese caso
// el rango queda marcado EXHAUSTED y Current no cambia.
func (r *VoucherRange) Burn() (int64, bool) {
	value := r.NextValue()
	if value > r.End {
		r.Status = VoucherStatusExhausted
		return 0, false
	}
	r.Current++
	remaining := r.Remaining()
	switch {
	case remaining == 0:
		r.Status = VoucherStatusExhausted
	case remaining*10 <= r.Total():
		r.Status = VoucherStatusLow
	}
	return value, true
}

// Overlaps indica si o comparte algún secuencial con r dentro de la misma sucursal y tipo.
func (r *VoucherRange) Overlaps(o *VoucherRange) bool {
	return r.BranchID == o.BranchID && r.Type == o.Type && r.Start <= o.End && o.Start <= r.End
}

// Clone copia el rango para mutarlo sin afectar al original leído del repositorio.
func (r *VoucherRange) Clone() *VoucherRange {
	c := *r
	return &c
}
