package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrForbidden    = errors.New("acceso denegado")

	// Errores propios de los rangos NCF.
	ErrInvalidRange   = errors.New("rango NCF inválido")
	ErrRangeOverlap   = fmt.Errorf("%w: se solapa con otro rango de la sucursal y el tipo", ErrInvalidRange)
	ErrPrefixMismatch = errors.New("el prefijo no corresponde al tipo de comprobante")
	ErrBurnContention = errors.New("no se pudo consumir el NCF por concurrencia, reintente")
	ErrInvalidTaxID   = errors.New("RNC o cédula inválido")
	ErrStorage        = errors.New("almacenamiento no disponible")
)
