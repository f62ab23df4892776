package vouchers

import "context"

// BurnLocker serializa emisiones del mismo par sucursal/tipo entre instancias del servicio.
// Es una optimización: la actualización condicional del repositorio sigue siendo la garantía
// de unicidad. Lock devuelve la función que libera el candado.
type BurnLocker interface {
	Lock(ctx context.Context, key string) (release func(context.Context) error, err error)
}
