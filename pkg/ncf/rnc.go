package ncf

import "fmt"

// pesos para el dígito verificador del RNC (módulo 11 DGII), aplicados a los 8 primeros dígitos.
var rncWeights = [8]int{7, 9, 8, 6, 5, 4, 3, 2}

// ValidateRNC valida un RNC de persona jurídica (9 dígitos, con o sin guiones).
// taxID puede ser "1-01-85004-3" o "101850043".
func ValidateRNC(taxID string) error {
	digits := extractDigits(taxID)
	if len(digits) != 9 {
		return fmt.Errorf("ncf: RNC debe tener 9 dígitos, se encontraron %d", len(digits))
	}
	expected, err := ComputeRNCCheckDigit(string(digits[:8]))
	if err != nil {
		return err
	}
	if digits[8] != expected {
		return fmt.Errorf("ncf: dígito verificador del RNC inválido: esperado %c, recibido %c", expected, digits[8])
	}
	return nil
}

// ComputeRNCCheckDigit calcula el dígito verificador para los 8 primeros dígitos del RNC.
func ComputeRNCCheckDigit(base string) (byte, error) {
	digits := extractDigits(base)
	if len(digits) < 8 {
		return 0, fmt.Errorf("ncf: se requieren 8 dígitos para calcular el verificador, se encontraron %d", len(digits))
	}
	var sum int
	for i, d := range digits[:8] {
		sum += int(d-'0') * rncWeights[i]
	}
	remainder := sum % 11
	// 0 -> 2, 1 -> 1, resto -> 11 - r
	return byte('0' + (10-remainder)%9 + 1), nil
}

// ValidateCedula valida una cédula de identidad (11 dígitos) con el algoritmo de Luhn.
func ValidateCedula(taxID string) error {
	digits := extractDigits(taxID)
	if len(digits) != 11 {
		return fmt.Errorf("ncf: cédula debe tener 11 dígitos, se encontraron %d", len(digits))
	}
	var sum int
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	if sum%10 != 0 {
		return fmt.Errorf("ncf: dígito verificador de la cédula inválido")
	}
	return nil
}

// ValidateTaxID acepta un RNC (9 dígitos) o una cédula (11 dígitos).
func ValidateTaxID(taxID string) error {
	switch n := len(extractDigits(taxID)); n {
	case 9:
		return ValidateRNC(taxID)
	case 11:
		return ValidateCedula(taxID)
	default:
		return fmt.Errorf("ncf: identificación fiscal debe tener 9 (RNC) u 11 (cédula) dígitos, se encontraron %d", n)
	}
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if r >= '0' && r <= '9' {
			out = append(out, byte(r))
		}
	}
	return out
}
