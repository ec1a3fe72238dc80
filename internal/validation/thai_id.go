package validation

import (
	"errors"
	"strings"
)

// ThaiIDLength is the number of digits in a Thai national ID
const ThaiIDLength = 13

var (
	// ErrThaiIDFormat is returned when the ID is not 13 digits
	ErrThaiIDFormat = errors.New("must be 13 digits")
	// ErrThaiIDChecksum is returned when the check digit does not match
	ErrThaiIDChecksum = errors.New("invalid checksum")
)

// NormalizeThaiID убирает пробелы и дефисы ("1-1017-00207-03-0") и проверяет
// контрольную цифру: сумма первых 12 цифр с весами 13..2 по модулю 11,
// затем (11 - mod) % 10 должно совпасть с 13-й цифрой.
func NormalizeThaiID(raw string) (string, error) {
	id := strings.NewReplacer("-", "", " ", "").Replace(raw)
	if len(id) != ThaiIDLength {
		return "", ErrThaiIDFormat
	}

	sum := 0
	for i := 0; i < ThaiIDLength; i++ {
		if id[i] < '0' || id[i] > '9' {
			return "", ErrThaiIDFormat
		}
		if i < ThaiIDLength-1 {
			sum += int(id[i]-'0') * (ThaiIDLength - i)
		}
	}

	if (11-sum%11)%10 != int(id[ThaiIDLength-1]-'0') {
		return "", ErrThaiIDChecksum
	}

	return id, nil
}

// ValidateThaiID is NormalizeThaiID without the result
func ValidateThaiID(raw string) error {
	_, err := NormalizeThaiID(raw)
	return err
}
