// Package vouchers contiene el asignador de NCF: registro de rangos autorizados por la DGII
// y emisión del siguiente comprobante por sucursal y tipo.
package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lavanflow/ncf-api/internal/domain"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/internal/domain/repository"
	"github.com/lavanflow/ncf-api/pkg/logger"
	"github.com/lavanflow/ncf-api/pkg/ncf"
)

// DefaultMaxBurnAttempts reintentos de la actualización condicional antes de rendirse.
const DefaultMaxBurnAttempts = 16

// Config parámetros del asignador.
type Config struct {
	MaxBurnAttempts int
}

// Allocator caso de uso de rangos NCF.
type Allocator struct {
	repo   repository.VoucherRangeRepository
	locker BurnLocker
	log    *logger.Logger
	cfg    Config
	now    func() time.Time

	keysMu sync.Mutex
	keys   map[string]*sync.Mutex
}

// NewAllocator construye el asignador. locker puede ser nil (una sola instancia o sin Redis).
func NewAllocator(repo repository.VoucherRangeRepository, locker BurnLocker, log *logger.Logger, cfg Config) *Allocator {
	if cfg.MaxBurnAttempts <= 0 {
		cfg.MaxBurnAttempts = DefaultMaxBurnAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("vouchers")
	return &Allocator{
		repo:   repo,
		locker: locker,
		log:    log,
		cfg:    cfg,
		now:    time.Now,
		keys:   make(map[string]*sync.Mutex),
	}
}

// IssueNext consume el siguiente NCF del primer rango elegible de la sucursal y tipo.
// ok == false sin error significa que no hay número disponible (tipo NONE, rangos agotados,
// inactivos o nunca registrados). Los fallos de almacenamiento se devuelven envueltos en
// domain.ErrStorage y nunca como ok == false.
func (a *Allocator) IssueNext(ctx context.Context, in IssueInput) (string, bool, error) {
	if in.Type == entity.TaxReceiptNone {
		return "", false, nil
	}
	if !in.Type.Fiscal() || in.BranchID == "" {
		return "", false, domain.ErrInvalidInput
	}
	if in.CustomerTaxID != "" {
		if err := ncf.ValidateTaxID(in.CustomerTaxID); err != nil {
			return "", false, fmt.Errorf("%w: %v", domain.ErrInvalidTaxID, err)
		}
	}

	key := in.BranchID + ":" + string(in.Type)
	mu := a.keyLock(key)
	mu.Lock()
	defer mu.Unlock()

	if a.locker != nil {
		release, err := a.locker.Lock(ctx, "ncf:burn:"+key)
		if err != nil {
			a.log.Warn().Err(err).Str("key", key).Msg("candado distribuido no obtenido; se continúa con la actualización condicional")
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					a.log.Warn().Err(err).Str("key", key).Msg("liberar candado distribuido")
				}
			}()
		}
	}

	if in.OrderID != "" {
		prev, err := a.repo.FindIssuanceByOrder(ctx, in.BranchID, in.OrderID)
		if err != nil {
			return "", false, storageErr(err)
		}
		if prev != nil {
			return prev.NCF, true, nil
		}
	}

	for attempt := 1; attempt <= a.cfg.MaxBurnAttempts; attempt++ {
		eligible, err := a.repo.ListEligible(ctx, in.BranchID, in.Type)
		if err != nil {
			return "", false, storageErr(err)
		}
		if len(eligible) == 0 {
			a.log.Warn().Str("branch_id", in.BranchID).Str("type", string(in.Type)).Msg("sin rango NCF disponible")
			return "", false, nil
		}
		current := eligible[0]
		next := current.Clone()
		now := a.now()
		next.UpdatedAt = now

		value, ok := next.Burn()
		if !ok {
			// Rango desfasado: estado elegible pero sin capacidad. Se persiste EXHAUSTED
			// y no se emite número en esta llamada.
			swapped, err := a.repo.Burn(ctx, next, current.Current, nil)
			if err != nil {
				return "", false, storageErr(err)
			}
			if !swapped {
				continue
			}
			a.log.Warn().Str("range_id", current.ID).Str("branch_id", in.BranchID).Msg("rango sin capacidad marcado como agotado")
			return "", false, nil
		}

		code := ncf.Format(next.Prefix, value)
		if err := ncf.Validate(code); err != nil {
			// Serie corrupta en el almacén: no se quema nada ni se entrega un NCF inválido.
			return "", false, fmt.Errorf("rango %s: %w", next.ID, err)
		}
		issuance := &entity.VoucherIssuance{
			ID:            uuid.New().String(),
			RangeID:       next.ID,
			BranchID:      next.BranchID,
			Type:          next.Type,
			NCF:           code,
			Sequence:      value,
			OrderID:       in.OrderID,
			UserID:        in.UserID,
			CustomerTaxID: in.CustomerTaxID,
			IssuedAt:      now,
		}
		swapped, err := a.repo.Burn(ctx, next, current.Current, issuance)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				a.log.Error().Err(err).Str("range_id", next.ID).Str("ncf", code).Msg("NCF u orden ya registrados en la sucursal")
				return "", false, err
			}
			return "", false, storageErr(err)
		}
		if !swapped {
			a.log.Debug().Str("range_id", next.ID).Int("attempt", attempt).Msg("carrera perdida al consumir NCF, reintentando")
			continue
		}
		if next.Status != current.Status {
			a.log.Warn().
				Str("range_id", next.ID).
				Str("branch_id", next.BranchID).
				Str("type", string(next.Type)).
				Str("status", string(next.Status)).
				Int64("remaining", next.Remaining()).
				Msg("cambio de estado del rango NCF")
		}
		return code, true, nil
	}
	return "", false, domain.ErrBurnContention
}

// ProvisionRange registra un rango nuevo en estado ACTIVE con current = 0.
// Se permiten varios rangos por sucursal y tipo siempre que sus secuenciales no se solapen.
func (a *Allocator) ProvisionRange(ctx context.Context, in ProvisionInput) (*entity.VoucherRange, error) {
	if !in.Type.Fiscal() || strings.TrimSpace(in.BranchID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Start < 1 || in.End > ncf.MaxSequence || in.Start > in.End {
		return nil, domain.ErrInvalidRange
	}
	prefix := strings.ToUpper(strings.TrimSpace(in.Prefix))
	if prefix == "" {
		prefix = in.Type.CanonicalPrefix()
	}
	if prefix != in.Type.CanonicalPrefix() {
		return nil, domain.ErrPrefixMismatch
	}

	now := a.now()
	r := &entity.VoucherRange{
		ID:        uuid.New().String(),
		BranchID:  strings.TrimSpace(in.BranchID),
		Type:      in.Type,
		Prefix:    prefix,
		Start:     in.Start,
		End:       in.End,
		Current:   0,
		Status:    entity.VoucherStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.repo.Create(ctx, r); err != nil {
		if errors.Is(err, domain.ErrDuplicate) || errors.Is(err, domain.ErrRangeOverlap) {
			return nil, err
		}
		return nil, storageErr(err)
	}
	a.log.Info().
		Str("range_id", r.ID).
		Str("branch_id", r.BranchID).
		Str("prefix", r.Prefix).
		Int64("start", r.Start).
		Int64("end", r.End).
		Msg("rango NCF registrado")
	return r, nil
}

// DeleteRange elimina el rango sin importar su estado; la capacidad no usada se pierde.
func (a *Allocator) DeleteRange(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	deleted, err := a.repo.Delete(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	a.log.Warn().Str("range_id", id).Msg("rango NCF eliminado")
	return nil
}

// DeactivateRange pasa el rango a INACTIVE (estado terminal para la emisión).
func (a *Allocator) DeactivateRange(ctx context.Context, id string) (*entity.VoucherRange, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	r, err := a.repo.Deactivate(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	a.log.Info().Str("range_id", id).Msg("rango NCF desactivado")
	return r, nil
}

// GetRange obtiene un rango por ID.
func (a *Allocator) GetRange(ctx context.Context, id string) (*entity.VoucherRange, error) {
	r, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

// ListRanges lista los rangos en orden de registro; branchID vacío lista todos.
func (a *Allocator) ListRanges(ctx context.Context, branchID string) ([]*entity.VoucherRange, error) {
	list, err := a.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// ListIssuances lista los NCF emitidos (bitácora para el formato 607).
func (a *Allocator) ListIssuances(ctx context.Context, q IssuanceQuery) ([]*entity.VoucherIssuance, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, domain.ErrInvalidInput
	}
	list, err := a.repo.ListIssuances(ctx, repository.IssuanceFilter{
		BranchID: q.BranchID,
		Type:     q.Type,
		From:     q.From,
		To:       q.To,
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return list, nil
}

// Summary agrega la capacidad de la sucursal por tipo fiscal (barra de capacidad del dashboard).
func (a *Allocator) Summary(ctx context.Context, branchID string) ([]TypeSummary, error) {
	if branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	ranges, err := a.repo.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, storageErr(err)
	}
	types := []entity.TaxReceiptType{
		entity.TaxReceiptTaxCredit,
		entity.TaxReceiptFinalConsumer,
		entity.TaxReceiptGovernment,
	}
	out := make([]TypeSummary, 0, len(types))
	for _, t := range types {
		s := TypeSummary{Type: t, Prefix: t.CanonicalPrefix()}
		for _, r := range ranges {
			if r.Type != t {
				continue
			}
			s.Ranges++
			s.Issued += r.Current
			if !r.Status.Eligible() {
				continue
			}
			s.ActiveRanges++
			s.Total += r.Total()
			s.Remaining += r.Remaining()
			if r.Status == entity.VoucherStatusLow {
				s.Low = true
			}
		}
		if s.ActiveRanges == 0 {
			s.Low = true
		}
		out = append(out, s)
	}
	return out, nil
}

// keyLock devuelve el mutex del par sucursal/tipo.
func (a *Allocator) keyLock(key string) *sync.Mutex {
	a.keysMu.Lock()
	defer a.keysMu.Unlock()
	mu, ok := a.keys[key]
	if !ok {
		mu = &sync.Mutex{}
		a.keys[key] = mu
	}
	return mu
}

func storageErr(err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
