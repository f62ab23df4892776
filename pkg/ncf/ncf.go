package ncf

import (
	"fmt"
	"strconv"
)

// Format construye el NCF: prefijo + secuencial con ceros a la izquierda (8 dígitos).
// Ej: Format("B02", 7) = "B0200000007".
func Format(prefix string, sequence int64) string {
	return fmt.Sprintf("%s%0*d", prefix, SequenceDigits, sequence)
}

// Parse separa un NCF en prefijo y secuencial. El prefijo es todo lo que precede
// a los últimos SequenceDigits caracteres, que deben ser dígitos.
func Parse(value string) (prefix string, sequence int64, err error) {
	if len(value) <= SequenceDigits {
		return "", 0, fmt.Errorf("ncf: %q es demasiado corto", value)
	}
	cut := len(value) - SequenceDigits
	digits := value[cut:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", 0, fmt.Errorf("ncf: secuencial %q no numérico", digits)
		}
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("ncf: secuencial %q: %w", digits, err)
	}
	return value[:cut], seq, nil
}

// Validate comprueba que el NCF use una serie conocida y un secuencial dentro de rango.
func Validate(value string) error {
	prefix, seq, err := Parse(value)
	if err != nil {
		return err
	}
	if !ValidPrefixes[prefix] {
		return fmt.Errorf("ncf: serie %q no admitida", prefix)
	}
	if seq < 1 {
		return fmt.Errorf("ncf: secuencial debe ser mayor que cero")
	}
	return nil
}
