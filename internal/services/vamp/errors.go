package vamp

import "errors"

var (
	ErrRecordNotFound  = errors.New("vamp record not found")
	ErrDuplicatePeriod = errors.New("a record for this merchant, period and network already exists")
)
