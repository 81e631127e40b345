package dispute

import "errors"

var (
	ErrDisputeNotFound = errors.New("dispute not found")
	ErrDuplicateCase   = errors.New("a dispute with this case id already exists")
	ErrInvalidStatus   = errors.New("invalid dispute status")
	ErrMissingColumns  = errors.New("csv is missing required columns")
	ErrEmptyFile       = errors.New("csv file is empty")
)
