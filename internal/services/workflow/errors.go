package workflow

import "errors"

var (
	ErrDisputeNotFound   = errors.New("dispute not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)
