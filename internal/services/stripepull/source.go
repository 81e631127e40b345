package stripepull

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// PageSize is the number of objects requested per Stripe list call.
const PageSize = 100

// Merchant identifies the Stripe account the key belongs to.
type Merchant struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
}

// Charge is the part of a Stripe charge the pull needs. Amounts are in
// minor units.
type Charge struct {
	Amount   int64
	Currency string
	Status   string
	Captured bool
}

// Dispute is the part of a Stripe dispute the pull needs.
type Dispute struct {
	Amount   int64
	Currency string
	Reason   string
}

// Source reads one account's activity.
type Source interface {
	Merchant(ctx context.Context) (*Merchant, error)
	// Charges calls fn for every charge created in [from, to).
	Charges(ctx context.Context, from, to time.Time, fn func(Charge)) error
	// Disputes calls fn for every dispute created in [from, to).
	Disputes(ctx context.Context, from, to time.Time, fn func(Dispute)) error
}

// SourceFactory opens a Source for a secret key.
type SourceFactory func(secretKey string) Source

// NewStripeSource returns a Source backed by the Stripe API. Each source uses
// its own client so concurrent pulls with different keys do not interfere.
func NewStripeSource(secretKey string) Source {
	return &stripeSource{api: client.New(secretKey, nil)}
}

type stripeSource struct {
	api *client.API
}

func listParams(ctx context.Context) stripe.ListParams {
	return stripe.ListParams{
		Context: ctx,
		Limit:   stripe.Int64(PageSize),
	}
}

func createdRange(from, to time.Time) *stripe.RangeQueryParams {
	return &stripe.RangeQueryParams{
		GreaterThanOrEqual: from.Unix(),
		LesserThan:         to.Unix(),
	}
}

func (s *stripeSource) Merchant(ctx context.Context) (*Merchant, error) {
	acct, err := s.api.Account.Get()
	if err != nil {
		return nil, upstream(err)
	}

	m := &Merchant{AccountID: acct.ID}
	switch {
	case acct.Settings != nil && acct.Settings.Dashboard != nil && acct.Settings.Dashboard.DisplayName != "":
		m.DisplayName = acct.Settings.Dashboard.DisplayName
	case acct.BusinessProfile != nil && acct.BusinessProfile.Name != "":
		m.DisplayName = acct.BusinessProfile.Name
	default:
		m.DisplayName = acct.Email
	}
	return m, nil
}

// Charges pages through the list with Stripe's starting_after cursor until
// has_more is false.
func (s *stripeSource) Charges(ctx context.Context, from, to time.Time, fn func(Charge)) error {
	params := &stripe.ChargeListParams{
		ListParams:   listParams(ctx),
		CreatedRange: createdRange(from, to),
	}
	iter := s.api.Charges.List(params)
	for iter.Next() {
		c := iter.Charge()
		fn(Charge{
			Amount:   c.Amount,
			Currency: string(c.Currency),
			Status:   string(c.Status),
			Captured: c.Captured,
		})
	}
	return upstream(iter.Err())
}

func (s *stripeSource) Disputes(ctx context.Context, from, to time.Time, fn func(Dispute)) error {
	params := &stripe.DisputeListParams{
		ListParams:   listParams(ctx),
		CreatedRange: createdRange(from, to),
	}
	iter := s.api.Disputes.List(params)
	for iter.Next() {
		d := iter.Dispute()
		fn(Dispute{
			Amount:   d.Amount,
			Currency: string(d.Currency),
			Reason:   string(d.Reason),
		})
	}
	return upstream(iter.Err())
}

// upstream converts Stripe API errors to *UpstreamError.
func upstream(err error) error {
	if err == nil {
		return nil
	}
	var serr *stripe.Error
	if errors.As(err, &serr) {
		msg := serr.Msg
		if msg == "" {
			msg = string(serr.Type)
		}
		return &UpstreamError{Status: serr.HTTPStatusCode, Message: msg}
	}
	return err
}
