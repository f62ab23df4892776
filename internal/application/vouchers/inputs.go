package vouchers

import (
	"time"

	"github.com/lavanflow/ncf-api/internal/domain/entity"
)

// IssueInput datos para consumir el siguiente NCF.
type IssueInput struct {
	Type          entity.TaxReceiptType
	BranchID      string
	OrderID       string // opcional; hace la emisión idempotente por orden
	UserID        string
	CustomerTaxID string // RNC o cédula del comprador (opcional)
}

// ProvisionInput datos para registrar un rango nuevo. Prefix vacío usa la serie del tipo.
type ProvisionInput struct {
	Type     entity.TaxReceiptType
	Prefix   string
	Start    int64
	End      int64
	BranchID string
}

// IssuanceQuery filtros del listado de NCF emitidos.
type IssuanceQuery struct {
	BranchID string
	Type     entity.TaxReceiptType
	From     time.Time
	To       time.Time
}

// TypeSummary capacidad agregada de una sucursal para un tipo de comprobante.
type TypeSummary struct {
	Type         entity.TaxReceiptType
	Prefix       string
	Ranges       int   // rangos registrados
	ActiveRanges int   // rangos ACTIVE o LOW
	Total        int64 // capacidad de los rangos elegibles
	Remaining    int64 // números disponibles en rangos elegibles
	Issued       int64 // números emitidos en todos los rangos
	Low          bool  // algún rango elegible en LOW o sin rangos elegibles
}
