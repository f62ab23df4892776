// Package ncf contiene catálogos y reglas de los Números de Comprobante Fiscal (NCF)
// de la DGII (República Dominicana): series, formato y validación de RNC/cédula.
package ncf

// =============================================================================
// Series de comprobantes (Norma General 06-2018 DGII)
// La serie "B" identifica comprobantes impresos; los dos dígitos siguientes el tipo.
// =============================================================================

const (
	PrefixTaxCredit     = "B01" // Factura de crédito fiscal
	PrefixFinalConsumer = "B02" // Factura de consumo
	PrefixGovernment    = "B15" // Comprobante gubernamental
)

// ValidPrefixes series admitidas por el sistema.
var ValidPrefixes = map[string]bool{
	PrefixTaxCredit:     true,
	PrefixFinalConsumer: true,
	PrefixGovernment:    true,
}

// SequenceDigits ancho del secuencial impreso después del prefijo.
const SequenceDigits = 8

// MaxSequence mayor secuencial representable con SequenceDigits dígitos.
const MaxSequence int64 = 99_999_999
