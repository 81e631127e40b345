package stripepull

import "errors"

var (
	ErrInvalidPeriod   = errors.New("period_month must be in YYYY-MM format")
	ErrMissingKey      = errors.New("stripe_secret_key is required")
	ErrMissingProject  = errors.New("project_id is required")
	ErrProjectNotFound = errors.New("project not found")
)

// UpstreamError is a failure reported by Stripe.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return "stripe: " + e.Message
}
