// Package memory implementa los repositorios en memoria del proceso. Se usa en desarrollo
// (STORAGE_DRIVER=memory) y como doble de pruebas del asignador.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lavanflow/ncf-api/internal/domain"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/internal/domain/repository"
)

var _ repository.VoucherRangeRepository = (*VoucherRangeRepo)(nil)

type storedRange struct {
	position int64
	r        entity.VoucherRange
}

// VoucherRangeRepo guarda rangos y emisiones en mapas protegidos por un mutex.
// Burn aplica la misma condición que el UPDATE condicional de PostgreSQL.
type VoucherRangeRepo struct {
	mu        sync.RWMutex
	nextPos   int64
	ranges    map[string]*storedRange
	issuances []entity.VoucherIssuance
}

// NewVoucherRangeRepository construye el repositorio vacío.
func NewVoucherRangeRepository() *VoucherRangeRepo {
	return &VoucherRangeRepo{ranges: make(map[string]*storedRange)}
}

func (m *VoucherRangeRepo) Create(_ context.Context, r *entity.VoucherRange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ranges[r.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, s := range m.ranges {
		if s.r.Overlaps(r) {
			return domain.ErrRangeOverlap
		}
	}
	m.nextPos++
	m.ranges[r.ID] = &storedRange{position: m.nextPos, r: *r}
	return nil
}

func (m *VoucherRangeRepo) GetByID(_ context.Context, id string) (*entity.VoucherRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.ranges[id]
	if !ok {
		return nil, nil
	}
	return s.r.Clone(), nil
}

func (m *VoucherRangeRepo) ListByBranch(_ context.Context, branchID string) ([]*entity.VoucherRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(r *entity.VoucherRange) bool {
		return branchID == "" || r.BranchID == branchID
	}), nil
}

func (m *VoucherRangeRepo) ListEligible(_ context.Context, branchID string, t entity.TaxReceiptType) ([]*entity.VoucherRange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(r *entity.VoucherRange) bool {
		return r.BranchID == branchID && r.Type == t && r.Status.Eligible()
	}), nil
}

func (m *VoucherRangeRepo) Burn(_ context.Context, r *entity.VoucherRange, prevCurrent int64, issuance *entity.VoucherIssuance) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ranges[r.ID]
	if !ok || s.r.Current != prevCurrent || !s.r.Status.Eligible() {
		return false, nil
	}
	if issuance != nil {
		for i := range m.issuances {
			prev := &m.issuances[i]
			if prev.BranchID != issuance.BranchID {
				continue
			}
			if prev.NCF == issuance.NCF || (issuance.OrderID != "" && prev.OrderID == issuance.OrderID) {
				return false, domain.ErrDuplicate
			}
		}
		m.issuances = append(m.issuances, *issuance)
	}
	s.r.Current = r.Current
	s.r.Status = r.Status
	s.r.UpdatedAt = r.UpdatedAt
	return true, nil
}

func (m *VoucherRangeRepo) Deactivate(_ context.Context, id string) (*entity.VoucherRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.ranges[id]
	if !ok {
		return nil, nil
	}
	s.r.Status = entity.VoucherStatusInactive
	s.r.UpdatedAt = time.Now()
	return s.r.Clone(), nil
}

func (m *VoucherRangeRepo) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ranges[id]; !ok {
		return false, nil
	}
	delete(m.ranges, id)
	for i := range m.issuances {
		if m.issuances[i].RangeID == id {
			m.issuances[i].RangeID = ""
		}
	}
	return true, nil
}

func (m *VoucherRangeRepo) FindIssuanceByOrder(_ context.Context, branchID, orderID string) (*entity.VoucherIssuance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.issuances {
		iss := m.issuances[i]
		if iss.BranchID == branchID && iss.OrderID == orderID {
			return &iss, nil
		}
	}
	return nil, nil
}

func (m *VoucherRangeRepo) ListIssuances(_ context.Context, f repository.IssuanceFilter) ([]*entity.VoucherIssuance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []*entity.VoucherIssuance
	for i := range m.issuances {
		iss := m.issuances[i]
		if f.BranchID != "" && iss.BranchID != f.BranchID {
			continue
		}
		if f.Type != "" && iss.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && iss.IssuedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !iss.IssuedAt.Before(f.To) {
			continue
		}
		list = append(list, &iss)
	}
	return list, nil
}

// collect filtra y ordena por created_at y posición de inserción. Requiere el lock tomado.
func (m *VoucherRangeRepo) collect(keep func(*entity.VoucherRange) bool) []*entity.VoucherRange {
	stored := make([]*storedRange, 0, len(m.ranges))
	for _, s := range m.ranges {
		if keep(&s.r) {
			stored = append(stored, s)
		}
	}
	sort.Slice(stored, func(i, j int) bool {
		a, b := stored[i], stored[j]
		if !a.r.CreatedAt.Equal(b.r.CreatedAt) {
			return a.r.CreatedAt.Before(b.r.CreatedAt)
		}
		return a.position < b.position
	})
	list := make([]*entity.VoucherRange, 0, len(stored))
	for _, s := range stored {
		list = append(list, s.r.Clone())
	}
	return list
}
