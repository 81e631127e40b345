package currency

import "errors"

var (
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO code")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
	ErrRateUnavailable = errors.New("no exchange rate available")
)
