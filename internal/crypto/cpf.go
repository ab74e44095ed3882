package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizeCPF strips everything that is not a digit.
func NormalizeCPF(cpf string) string {
	return nonDigits.ReplaceAllString(cpf, "")
}

// CPFHash returns the hex SHA-256 of the normalized CPF.
func CPFHash(cpfNormalized string) string {
	h := sha256.Sum256([]byte(cpfNormalized))
	return hex.EncodeToString(h[:])
}

// ValidCPF reports whether a normalized CPF (11 digits) has valid check digits.
// CPFs with all digits equal ("00000000000" etc.) are invalid by definition.
func ValidCPF(cpfNormalized string) bool {
	if len(cpfNormalized) != 11 {
		return false
	}
	allEqual := true
	for i := 1; i < 11; i++ {
		if cpfNormalized[i] != cpfNormalized[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}
	digits := make([]int, 11)
	for i, r := range cpfNormalized {
		if r < '0' || r > '9' {
			return false
		}
		digits[i] = int(r - '0')
	}
	for _, n := range []int{9, 10} {
		sum := 0
		for i := 0; i < n; i++ {
			sum += digits[i] * (n + 1 - i)
		}
		check := (sum * 10) % 11
		if check == 10 {
			check = 0
		}
		if check != digits[n] {
			return false
		}
	}
	return true
}
