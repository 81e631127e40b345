package report

import "errors"

var (
	ErrUnknownMetric  = errors.New("unknown report metric")
	ErrUnknownGroupBy = errors.New("unknown report grouping")
)
