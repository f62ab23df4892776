package repository

import (
	"context"
	"time"

	"github.com/lavanflow/ncf-api/internal/domain/entity"
)

// IssuanceFilter filtros para el listado de NCF emitidos. Campos vacíos no filtran.
type IssuanceFilter struct {
	BranchID string
	Type     entity.TaxReceiptType
	From     time.Time
	To       time.Time
}

// VoucherRangeRepository define el puerto de persistencia para rangos NCF y su bitácora.
type VoucherRangeRepository interface {
	Create(ctx context.Context, r *entity.VoucherRange) error
	GetByID(ctx context.Context, id string) (*entity.VoucherRange, error)

	// ListByBranch lista los rangos en orden de registro. branchID vacío lista todas las sucursales.
	ListByBranch(ctx context.Context, branchID string) ([]*entity.VoucherRange, error)

	// ListEligible devuelve los rangos ACTIVE/LOW de la sucursal y tipo, en orden de registro
	// (created_at y luego posición de inserción). El primero es el que debe emitir.
	ListEligible(ctx context.Context, branchID string, t entity.TaxReceiptType) ([]*entity.VoucherRange, error)

	// Burn persiste el rango avanzado y el registro de emisión como una sola unidad, solo si
	// Current sigue valiendo prevCurrent y el rango sigue siendo elegible. Devuelve false sin
	// error cuando otra emisión ganó la carrera. issuance puede ser nil (solo cambio de estado).
	Burn(ctx context.Context, r *entity.VoucherRange, prevCurrent int64, issuance *entity.VoucherIssuance) (bool, error)

	// Deactivate marca el rango como INACTIVE. Devuelve nil, nil si no existe.
	Deactivate(ctx context.Context, id string) (*entity.VoucherRange, error)

	// Delete elimina el rango. Devuelve false si no existía.
	Delete(ctx context.Context, id string) (bool, error)

	// FindIssuanceByOrder busca el NCF ya emitido para una orden. nil, nil si no hay.
	FindIssuanceByOrder(ctx context.Context, branchID, orderID string) (*entity.VoucherIssuance, error)

	ListIssuances(ctx context.Context, f IssuanceFilter) ([]*entity.VoucherIssuance, error)
}
