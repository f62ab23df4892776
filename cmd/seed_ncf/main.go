// seed_ncf registra rangos NCF autorizados por la DGII a partir de un CSV
// (branch_id;type;prefix;start;end, UTF-8 o ISO-8859-1).
//
// Uso: go run ./cmd/seed_ncf [ruta/rangos.csv]
// Sin argumento registra los rangos de arranque: B01 1-100 y B02 1-500 para la sucursal b1.
// Es idempotente: los rangos ya registrados con los mismos límites se omiten.
// Usa la misma configuración que la API (DATABASE_URL, DB_HOST, ...).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lavanflow/ncf-api/internal/application/vouchers"
	"github.com/lavanflow/ncf-api/internal/domain/entity"
	"github.com/lavanflow/ncf-api/internal/infrastructure/postgres"
	"github.com/lavanflow/ncf-api/pkg/config"
	"github.com/lavanflow/ncf-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_ncf"})

	ranges := defaultRanges
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
			os.Exit(1)
		}
		ranges, err = parseRanges(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Migraciones: %v\n", err)
		os.Exit(1)
	}

	alloc := vouchers.NewAllocator(postgres.NewVoucherRangeRepository(pool), nil, log, vouchers.Config{})
	created, skipped, err := provisionAll(ctx, alloc, ranges)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Registrados %d rangos NCF (%d ya existían)\n", created, skipped)
}

// provisionAll registra los rangos en orden y omite los que ya existen con la misma sucursal,
// tipo y límites, de modo que repetir la carga no duplica nada. Se detiene en el primero inválido
// (incluido un solapamiento parcial con un rango existente).
func provisionAll(ctx context.Context, alloc *vouchers.Allocator, ranges []vouchers.ProvisionInput) (created, skipped int, err error) {
	existing := make(map[string][]*entity.VoucherRange)
	for i, in := range ranges {
		if _, ok := existing[in.BranchID]; !ok {
			list, err := alloc.ListRanges(ctx, in.BranchID)
			if err != nil {
				return created, skipped, fmt.Errorf("listar rangos de %s: %w", in.BranchID, err)
			}
			existing[in.BranchID] = list
		}
		if registered(existing[in.BranchID], in) {
			skipped++
			continue
		}
		r, err := alloc.ProvisionRange(ctx, in)
		if err != nil {
			return created, skipped, fmt.Errorf("rango %d (%s %s %d-%d): %w", i+1, in.BranchID, in.Prefix, in.Start, in.End, err)
		}
		existing[in.BranchID] = append(existing[in.BranchID], r)
		created++
	}
	return created, skipped, nil
}

func registered(list []*entity.VoucherRange, in vouchers.ProvisionInput) bool {
	for _, r := range list {
		if r.Type == in.Type && r.Start == in.Start && r.End == in.End {
			return true
		}
	}
	return false
}
