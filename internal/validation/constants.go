package validation

const (
	// DateLayout is the wire format of calendar dates.
	DateLayout = "2006-01-02"

	// Amount limits
	MaxDisputeAmount = 100000000.00

	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72

	// String lengths
	MaxCaseIDLength      = 100
	MaxNotesLength       = 5000
	MaxCoverLetterLength = 50000
	MaxFieldKeyLength    = 64
)
