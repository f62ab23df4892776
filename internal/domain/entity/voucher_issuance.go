package entity

import "time"

// VoucherIssuance registro de un NCF emitido (bitácora fiscal, base del formato 607 DGII).
// Se persiste en la misma transacción que el avance del rango.
type VoucherIssuance struct {
	ID            string
	RangeID       string // vacío si el rango fue eliminado después de la emisión
	BranchID      string
	Type          TaxReceiptType
	NCF           string
	Sequence      int64
	OrderID       string // referencia opcional a la orden que consumió el NCF
	UserID        string
	CustomerTaxID string // RNC o cédula del comprador (opcional)
	IssuedAt      time.Time
}
