package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lavanflow/ncf-api/internal/application/dto"
	"github.com/lavanflow/ncf-api/internal/application/vouchers"
	"github.com/lavanflow/ncf-api/internal/domain"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/pkg/logger"
)

// VoucherHandler maneja las peticiones HTTP de rangos NCF (protegido).
type VoucherHandler struct {
	alloc *vouchers.Allocator
	log   *logger.Logger
}

// NewVoucherHandler construye el handler.
func NewVoucherHandler(alloc *vouchers.Allocator, log *logger.Logger) *VoucherHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &VoucherHandler{alloc: alloc, log: log.Component("http")}
}

// List godoc
// @Summary      Listar rangos NCF
// @Tags         vouchers
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Sucursal (solo admin puede omitirla o cambiarla)"
// @Success      200  {object}  dto.VoucherRangeListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/vouchers [get]
func (h *VoucherHandler) List(c *fiber.Ctx) error {
	branchID, err := listBranch(c, c.Query("branch_id"))
	if err != nil {
		return h.fail(c, err)
	}
	list, err := h.alloc.ListRanges(c.UserContext(), branchID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.ToVoucherRangeList(list))
}

// GetByID godoc
// @Summary      Obtener rango NCF por ID
// @Tags         vouchers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del rango"
// @Success      200  {object}  dto.VoucherRangeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vouchers/{id} [get]
func (h *VoucherHandler) GetByID(c *fiber.Ctx) error {
	r, err := h.alloc.GetRange(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if !IsAdmin(c) && r.BranchID != GetBranchID(c) {
		return h.fail(c, domain.ErrForbidden)
	}
	return c.JSON(dto.ToVoucherRangeResponse(r))
}

// Create godoc
// @Summary      Registrar rango NCF
// @Tags         vouchers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProvisionRangeRequest  true  "Rango autorizado por la DGII"
// @Success      201   {object}  dto.VoucherRangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vouchers [post]
func (h *VoucherHandler) Create(c *fiber.Ctx) error {
	var in dto.ProvisionRangeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	typ, ok := parseReceiptType(in.Type)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type inválido"})
	}
	r, err := h.alloc.ProvisionRange(c.UserContext(), vouchers.ProvisionInput{
		Type:     typ,
		Prefix:   in.Prefix,
		Start:    in.Start,
		End:      in.End,
		BranchID: in.BranchID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToVoucherRangeResponse(r))
}

// Update godoc
// @Summary      Desactivar rango NCF
// @Tags         vouchers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del rango"
// @Param        body  body  dto.UpdateRangeRequest  true  "Solo status=INACTIVE"
// @Success      200   {object}  dto.VoucherRangeResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/vouchers/{id} [patch]
func (h *VoucherHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateRangeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if entity.VoucherStatus(strings.ToUpper(in.Status)) != entity.VoucherStatusInactive {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "solo se admite status INACTIVE"})
	}
	r, err := h.alloc.DeactivateRange(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.ToVoucherRangeResponse(r))
}

// Delete godoc
// @Summary      Eliminar rango NCF
// @Tags         vouchers
// @Security     Bearer
// @Param        id   path  string  true  "ID del rango"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vouchers/{id} [delete]
func (h *VoucherHandler) Delete(c *fiber.Ctx) error {
	if err := h.alloc.DeleteRange(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Burn godoc
// @Summary      Emitir el siguiente NCF
// @Description  Consume el siguiente número del primer rango elegible de la sucursal y tipo.
// @Tags         vouchers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BurnRequest  true  "Tipo de comprobante"
// @Success      200   {object}  dto.BurnResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/vouchers/burn [post]
func (h *VoucherHandler) Burn(c *fiber.Ctx) error {
	var in dto.BurnRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	typ, ok := parseReceiptType(in.Type)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type inválido"})
	}
	if typ == entity.TaxReceiptNone {
		return c.JSON(dto.BurnResponse{NCF: nil, Required: false})
	}
	branchID, err := scopedBranch(c, in.BranchID)
	if err != nil {
		return h.fail(c, err)
	}
	if branchID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "branch_id es requerido"})
	}

	code, issued, err := h.alloc.IssueNext(c.UserContext(), vouchers.IssueInput{
		Type:          typ,
		BranchID:      branchID,
		OrderID:       in.OrderID,
		UserID:        GetUserID(c),
		CustomerTaxID: in.CustomerTaxID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	if !issued {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "NCF_UNAVAILABLE",
			Message: "no hay secuencia NCF disponible para " + typ.CanonicalPrefix() + "; registre un nuevo rango",
		})
	}
	return c.JSON(dto.BurnResponse{NCF: &code, Required: true})
}

// Issuances godoc
// @Summary      Listar NCF emitidos (formato 607)
// @Tags         vouchers
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Sucursal"
// @Param        type       query  string  false  "Tipo de comprobante"
// @Param        from       query  string  false  "Desde (YYYY-MM-DD o RFC3339)"
// @Param        to         query  string  false  "Hasta, exclusivo (YYYY-MM-DD o RFC3339)"
// @Success      200  {object}  dto.IssuanceListResponse
// @Router       /api/vouchers/issuances [get]
func (h *VoucherHandler) Issuances(c *fiber.Ctx) error {
	branchID, err := listBranch(c, c.Query("branch_id"))
	if err != nil {
		return h.fail(c, err)
	}
	q := vouchers.IssuanceQuery{BranchID: branchID}
	if raw := c.Query("type"); raw != "" {
		typ, ok := parseReceiptType(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "type inválido"})
		}
		q.Type = typ
	}
	if q.From, err = parseDate(c.Query("from")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido"})
	}
	if q.To, err = parseDate(c.Query("to")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido"})
	}
	list, err := h.alloc.ListIssuances(c.UserContext(), q)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.ToIssuanceList(list))
}

// Summary godoc
// @Summary      Capacidad NCF por tipo
// @Tags         vouchers
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Sucursal"
// @Success      200  {object}  dto.SummaryResponse
// @Router       /api/vouchers/summary [get]
func (h *VoucherHandler) Summary(c *fiber.Ctx) error {
	branchID, err := scopedBranch(c, c.Query("branch_id"))
	if err != nil {
		return h.fail(c, err)
	}
	if branchID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "branch_id es requerido"})
	}
	summary, err := h.alloc.Summary(c.UserContext(), branchID)
	if err != nil {
		return h.fail(c, err)
	}
	out := dto.SummaryResponse{BranchID: branchID, Types: make([]dto.TypeSummaryResponse, 0, len(summary))}
	for _, s := range summary {
		out.Types = append(out.Types, dto.TypeSummaryResponse{
			Type:         string(s.Type),
			Prefix:       s.Prefix,
			Ranges:       s.Ranges,
			ActiveRanges: s.ActiveRanges,
			Total:        s.Total,
			Remaining:    s.Remaining,
			Issued:       s.Issued,
			Low:          s.Low,
		})
	}
	return c.JSON(out)
}

// fail traduce errores de dominio a respuestas HTTP.
func (h *VoucherHandler) fail(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrRangeOverlap):
		status, code = fiber.StatusConflict, "RANGE_OVERLAP"
	case errors.Is(err, domain.ErrInvalidRange):
		status, code = fiber.StatusBadRequest, "INVALID_RANGE"
	case errors.Is(err, domain.ErrPrefixMismatch):
		status, code = fiber.StatusBadRequest, "PREFIX_MISMATCH"
	case errors.Is(err, domain.ErrInvalidTaxID):
		status, code = fiber.StatusBadRequest, "INVALID_TAX_ID"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "NCF_DUPLICATE"
	case errors.Is(err, domain.ErrBurnContention):
		status, code = fiber.StatusServiceUnavailable, "NCF_CONTENTION"
	case errors.Is(err, domain.ErrStorage):
		status, code = fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE"
	}
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Str("code", code).Msg("error atendiendo petición de NCF")
		if status == fiber.StatusInternalServerError {
			return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: "error interno"})
		}
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: errorMessage(err)})
}

// errorMessage primer segmento del error (el sentinel de dominio), sin detalles de infraestructura.
func errorMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrStorage, domain.ErrBurnContention, domain.ErrDuplicate,
		domain.ErrInvalidTaxID, domain.ErrPrefixMismatch, domain.ErrRangeOverlap, domain.ErrInvalidRange,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// listBranch alcance de los listados: un administrador que omite branch_id ve todas las sucursales.
func listBranch(c *fiber.Ctx, requested string) (string, error) {
	if IsAdmin(c) && strings.TrimSpace(requested) == "" {
		return "", nil
	}
	return scopedBranch(c, requested)
}

// scopedBranch aplica el alcance del token: un no administrador solo opera sobre su sucursal.
// Un administrador sin branch_id explícito usa la sucursal de su token.
func scopedBranch(c *fiber.Ctx, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if IsAdmin(c) {
		if requested == "" {
			return GetBranchID(c), nil
		}
		return requested, nil
	}
	own := GetBranchID(c)
	if own == "" {
		return "", domain.ErrForbidden
	}
	if requested != "" && requested != own {
		return "", domain.ErrForbidden
	}
	return own, nil
}

// parseReceiptType acepta el nombre del tipo o su serie (B01, B02, B15). Vacío equivale a NONE.
func parseReceiptType(raw string) (entity.TaxReceiptType, bool) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return entity.TaxReceiptNone, true
	}
	t := entity.TaxReceiptType(v)
	if t.Valid() {
		return t, true
	}
	for _, candidate := range []entity.TaxReceiptType{
		entity.TaxReceiptTaxCredit, entity.TaxReceiptFinalConsumer, entity.TaxReceiptGovernment,
	} {
		if candidate.CanonicalPrefix() == v {
			return candidate, true
		}
	}
	return "", false
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}
