package validation

import (
	"errors"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion регион для номеров без кода страны
const DefaultRegion = "US"

// ErrInvalidPhone номер, по которому нельзя позвонить
var ErrInvalidPhone = errors.New("must be a valid phone number")

// NormalizePhone разбирает raw и возвращает номер в E.164.
// Номер без ведущего + трактуется в регионе region.
func NormalizePhone(raw, region string) (string, error) {
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", ErrInvalidPhone
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
