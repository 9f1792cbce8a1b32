package afip

import (
	"errors"
	"fmt"
	"unicode"
)

// pesos del dígito verificador de CUIT/CUIL (módulo 11), aplicados a los 10 primeros dígitos.
var cuitWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

var (
	// ErrCUITLength indica que el CUIT no tiene 11 dígitos.
	ErrCUITLength = errors.New("afip: el CUIT debe tener 11 dígitos")
	// ErrCUITCheckDigit indica un dígito verificador incorrecto.
	ErrCUITCheckDigit = errors.New("afip: dígito verificador del CUIT inválido")
)

// DigitsOnly devuelve solo los dígitos de s ("20-27828064-1" -> "20278280641").
func DigitsOnly(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}

// HasCUITLength informa si s, normalizado a dígitos, tiene exactamente 11 dígitos.
func HasCUITLength(s string) bool {
	return len(DigitsOnly(s)) == 11
}

// ValidateCUIT valida longitud y dígito verificador.
// Acepta "20-27828064-1", "20 27828064 1" o "20278280641".
func ValidateCUIT(cuit string) error {
	digits := DigitsOnly(cuit)
	if len(digits) != 11 {
		return fmt.Errorf("%w: se recibieron %d", ErrCUITLength, len(digits))
	}
	expected, err := ComputeCUITCheckDigit(digits[:10])
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("%w: esperado %c, recibido %c", ErrCUITCheckDigit, expected, digits[10])
	}
	return nil
}

// ComputeCUITCheckDigit calcula el dígito verificador para los 10 primeros dígitos.
func ComputeCUITCheckDigit(base string) (byte, error) {
	digits := DigitsOnly(base)
	if len(digits) < 10 {
		return 0, fmt.Errorf("afip: se requieren 10 dígitos para calcular el verificador, se encontraron %d", len(digits))
	}
	var sum int
	for i := 0; i < 10; i++ {
		sum += int(digits[i]-'0') * cuitWeights[i]
	}
	v := 11 - sum%11
	switch v {
	case 11:
		v = 0
	case 10:
		v = 9
	}
	return byte('0' + v), nil
}
