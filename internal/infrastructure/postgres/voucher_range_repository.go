package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lavanflow/ncf-api/internal/domain"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/internal/domain/repository"
)

var _ repository.VoucherRangeRepository = (*VoucherRangeRepo)(nil)

// VoucherRangeRepo implementa VoucherRangeRepository sobre PostgreSQL.
type VoucherRangeRepo struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewVoucherRangeRepository construye el repositorio.
func NewVoucherRangeRepository(pool *pgxpool.Pool) *VoucherRangeRepo {
	return &VoucherRangeRepo{pool: pool, tx: NewTxRunner(pool)}
}

const rangeColumns = `id, branch_id, type, prefix, start_value, end_value, current, status, created_at, updated_at`

// Create inserta el rango si no se solapa con otro de la misma sucursal y tipo. El candado
// consultivo de la transacción serializa los registros concurrentes de esa clave.
func (r *VoucherRangeRepo) Create(ctx context.Context, vr *entity.VoucherRange) error {
	const lock = `SELECT pg_advisory_xact_lock(hashtext($1))`
	const overlap = `
		SELECT EXISTS (
			SELECT 1 FROM voucher_ranges
			WHERE branch_id = $1
			  AND type      = $2
			  AND start_value <= $4
			  AND end_value   >= $3
		)`
	const insert = `
		INSERT INTO voucher_ranges
			(id, branch_id, type, prefix, start_value, end_value, current, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	return r.tx.Run(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, lock, "voucher_ranges:"+vr.BranchID+":"+string(vr.Type)); err != nil {
			return fmt.Errorf("lock voucher_ranges: %w", err)
		}
		var exists bool
		if err := q.QueryRow(ctx, overlap, vr.BranchID, string(vr.Type), vr.Start, vr.End).Scan(&exists); err != nil {
			return fmt.Errorf("check voucher_range overlap: %w", err)
		}
		if exists {
			return domain.ErrRangeOverlap
		}
		_, err := q.Exec(ctx, insert,
			vr.ID, vr.BranchID, string(vr.Type), vr.Prefix,
			vr.Start, vr.End, vr.Current, string(vr.Status),
			vr.CreatedAt, vr.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert voucher_range: %w", err)
		}
		return nil
	})
}

func (r *VoucherRangeRepo) GetByID(ctx context.Context, id string) (*entity.VoucherRange, error) {
	q := `SELECT ` + rangeColumns + ` FROM voucher_ranges WHERE id = $1`
	vr, err := scanRange(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher_range by id: %w", err)
	}
	return vr, nil
}

func (r *VoucherRangeRepo) ListByBranch(ctx context.Context, branchID string) ([]*entity.VoucherRange, error) {
	q := `SELECT ` + rangeColumns + `
		FROM voucher_ranges
		WHERE ($1 = '' OR branch_id = $1)
		ORDER BY created_at, position`
	return r.queryRanges(ctx, q, branchID)
}

// ListEligible es la consulta crítica de la emisión: el primer rango ACTIVE/LOW registrado
// para la sucursal y el tipo.
func (r *VoucherRangeRepo) ListEligible(ctx context.Context, branchID string, t entity.TaxReceiptType) ([]*entity.VoucherRange, error) {
	q := `SELECT ` + rangeColumns + `
		FROM voucher_ranges
		WHERE branch_id = $1
		  AND type      = $2
		  AND status IN ('ACTIVE', 'LOW')
		ORDER BY created_at, position`
	return r.queryRanges(ctx, q, branchID, string(t))
}

// Burn avanza el rango con una actualización condicional (compare-and-swap sobre current y
// estado) e inserta la emisión en la misma transacción.
func (r *VoucherRangeRepo) Burn(ctx context.Context, vr *entity.VoucherRange, prevCurrent int64, issuance *entity.VoucherIssuance) (bool, error) {
	const update = `
		UPDATE voucher_ranges
		SET current = $2, status = $3, updated_at = $4
		WHERE id = $1
		  AND current = $5
		  AND status IN ('ACTIVE', 'LOW')`
	const insert = `
		INSERT INTO voucher_issuances
			(id, range_id, branch_id, type, ncf, sequence, order_id, user_id, customer_tax_id, issued_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var swapped bool
	err := r.tx.Run(ctx, func(q Querier) error {
		cmd, err := q.Exec(ctx, update, vr.ID, vr.Current, string(vr.Status), vr.UpdatedAt, prevCurrent)
		if err != nil {
			return fmt.Errorf("update voucher_range: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return nil
		}
		if issuance != nil {
			_, err = q.Exec(ctx, insert,
				issuance.ID, nullIfEmpty(issuance.RangeID), issuance.BranchID, string(issuance.Type),
				issuance.NCF, issuance.Sequence,
				nullIfEmpty(issuance.OrderID), nullIfEmpty(issuance.UserID), nullIfEmpty(issuance.CustomerTaxID),
				issuance.IssuedAt,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: %s", domain.ErrDuplicate, constraintName(err))
				}
				return fmt.Errorf("insert voucher_issuance: %w", err)
			}
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (r *VoucherRangeRepo) Deactivate(ctx context.Context, id string) (*entity.VoucherRange, error) {
	q := `UPDATE voucher_ranges
		SET status = 'INACTIVE', updated_at = $2
		WHERE id = $1
		RETURNING ` + rangeColumns
	vr, err := scanRange(r.pool.QueryRow(ctx, q, id, time.Now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("deactivate voucher_range: %w", err)
	}
	return vr, nil
}

// Delete borra el rango; las emisiones quedan en la bitácora con range_id NULL.
func (r *VoucherRangeRepo) Delete(ctx context.Context, id string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM voucher_ranges WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete voucher_range: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

const issuanceColumns = `id, range_id, branch_id, type, ncf, sequence, order_id, user_id, customer_tax_id, issued_at`

func (r *VoucherRangeRepo) FindIssuanceByOrder(ctx context.Context, branchID, orderID string) (*entity.VoucherIssuance, error) {
	q := `SELECT ` + issuanceColumns + `
		FROM voucher_issuances
		WHERE branch_id = $1 AND order_id = $2`
	is, err := scanIssuance(r.pool.QueryRow(ctx, q, branchID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher_issuance by order: %w", err)
	}
	return is, nil
}

func (r *VoucherRangeRepo) ListIssuances(ctx context.Context, f repository.IssuanceFilter) ([]*entity.VoucherIssuance, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.BranchID != "" {
		add("branch_id = $%d", f.BranchID)
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if !f.From.IsZero() {
		add("issued_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("issued_at < $%d", f.To)
	}
	q := `SELECT ` + issuanceColumns + ` FROM voucher_issuances`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY issued_at, ncf`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list voucher_issuances: %w", err)
	}
	defer rows.Close()

	var list []*entity.VoucherIssuance
	for rows.Next() {
		is, err := scanIssuance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher_issuance: %w", err)
		}
		list = append(list, is)
	}
	return list, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (r *VoucherRangeRepo) queryRanges(ctx context.Context, q string, args ...any) ([]*entity.VoucherRange, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list voucher_ranges: %w", err)
	}
	defer rows.Close()

	var list []*entity.VoucherRange
	for rows.Next() {
		vr, err := scanRange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher_range: %w", err)
		}
		list = append(list, vr)
	}
	return list, rows.Err()
}

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar los scan.
type pgxScanner interface {
	Scan(dest ...any) error
}

func scanRange(row pgxScanner) (*entity.VoucherRange, error) {
	var (
		vr     entity.VoucherRange
		typ    string
		status string
	)
	err := row.Scan(
		&vr.ID, &vr.BranchID, &typ, &vr.Prefix,
		&vr.Start, &vr.End, &vr.Current, &status,
		&vr.CreatedAt, &vr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	vr.Type = entity.TaxReceiptType(typ)
	vr.Status = entity.VoucherStatus(status)
	return &vr, nil
}

func scanIssuance(row pgxScanner) (*entity.VoucherIssuance, error) {
	var (
		is                              entity.VoucherIssuance
		typ                             string
		rangeID, orderID, userID, taxID *string
	)
	err := row.Scan(
		&is.ID, &rangeID, &is.BranchID, &typ, &is.NCF, &is.Sequence,
		&orderID, &userID, &taxID, &is.IssuedAt,
	)
	if err != nil {
		return nil, err
	}
	is.Type = entity.TaxReceiptType(typ)
	is.RangeID = derefString(rangeID)
	is.OrderID = derefString(orderID)
	is.UserID = derefString(userID)
	is.CustomerTaxID = derefString(taxID)
	return &is, nil
}
