package dto

import (
	"time"

	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/pkg/ncf"
)

// ProvisionRangeRequest alta de un rango autorizado por la DGII.
// Prefix es opcional: si viene vacío se usa la serie del tipo.
type ProvisionRangeRequest struct {
	Type     string `json:"type"`
	Prefix   string `json:"prefix,omitempty"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	BranchID string `json:"branch_id"`
}

// UpdateRangeRequest PATCH de un rango. Solo se admite status = INACTIVE.
type UpdateRangeRequest struct {
	Status string `json:"status"`
}

// BurnRequest solicitud del siguiente NCF. BranchID vacío toma la sucursal del token.
type BurnRequest struct {
	Type          string `json:"type"`
	BranchID      string `json:"branch_id,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	CustomerTaxID string `json:"customer_tax_id,omitempty"`
}

// BurnResponse NCF emitido. NCF es null cuando no aplica o no hay rango disponible.
type BurnResponse struct {
	NCF      *string `json:"ncf"`
	Required bool    `json:"required"`
}

// VoucherRangeResponse rango NCF con su capacidad calculada.
type VoucherRangeResponse struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	Type      string    `json:"type"`
	Prefix    string    `json:"prefix"`
	Start     int64     `json:"start"`
	End       int64     `json:"end"`
	Current   int64     `json:"current"`
	Remaining int64     `json:"remaining"`
	NextNCF   string    `json:"next_ncf,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoucherRangeListResponse listado de rangos.
type VoucherRangeListResponse struct {
	Items []VoucherRangeResponse `json:"items"`
}

// IssuanceResponse NCF emitido (línea del formato 607).
type IssuanceResponse struct {
	ID            string    `json:"id"`
	RangeID       string    `json:"range_id,omitempty"`
	BranchID      string    `json:"branch_id"`
	Type          string    `json:"type"`
	NCF           string    `json:"ncf"`
	OrderID       string    `json:"order_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	CustomerTaxID string    `json:"customer_tax_id,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
}

// IssuanceListResponse listado de emisiones.
type IssuanceListResponse struct {
	Items []IssuanceResponse `json:"items"`
}

// TypeSummaryResponse capacidad disponible por tipo de comprobante.
type TypeSummaryResponse struct {
	Type         string `json:"type"`
	Prefix       string `json:"prefix"`
	Ranges       int    `json:"ranges"`
	ActiveRanges int    `json:"active_ranges"`
	Total        int64  `json:"total"`
	Remaining    int64  `json:"remaining"`
	Issued       int64  `json:"issued"`
	Low          bool   `json:"low"`
}

// SummaryResponse resumen de capacidad de una sucursal.
type SummaryResponse struct {
	BranchID string                `json:"branch_id"`
	Types    []TypeSummaryResponse `json:"types"`
}

// ToVoucherRangeResponse convierte la entidad al DTO de salida.
func ToVoucherRangeResponse(r *entity.VoucherRange) VoucherRangeResponse {
	out := VoucherRangeResponse{
		ID:        r.ID,
		BranchID:  r.BranchID,
		Type:      string(r.Type),
		Prefix:    r.Prefix,
		Start:     r.Start,
		End:       r.End,
		Current:   r.Current,
		Remaining: r.Remaining(),
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Status.Eligible() && r.Remaining() > 0 {
		out.NextNCF = ncf.Format(r.Prefix, r.NextValue())
	}
	return out
}

// ToVoucherRangeList convierte un listado de rangos.
func ToVoucherRangeList(list []*entity.VoucherRange) VoucherRangeListResponse {
	items := make([]VoucherRangeResponse, 0, len(list))
	for _, r := range list {
		items = append(items, ToVoucherRangeResponse(r))
	}
	return VoucherRangeListResponse{Items: items}
}

// ToIssuanceList convierte un listado de emisiones.
func ToIssuanceList(list []*entity.VoucherIssuance) IssuanceListResponse {
	items := make([]IssuanceResponse, 0, len(list))
	for _, is := range list {
		items = append(items, IssuanceResponse{
			ID:            is.ID,
			RangeID:       is.RangeID,
			BranchID:      is.BranchID,
			Type:          string(is.Type),
			NCF:           is.NCF,
			OrderID:       is.OrderID,
			UserID:        is.UserID,
			CustomerTaxID: is.CustomerTaxID,
			IssuedAt:      is.IssuedAt,
		})
	}
	return IssuanceListResponse{Items: items}
}
