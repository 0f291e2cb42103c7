// Package policy resolves the booking parameters for a therapist: session
// length, payment type, and booking-grid alignment. Resolution is driven by
// the therapist's program and degrades to safe defaults when the profile
// store cannot answer.
package policy

import (
	"context"
	"strings"

	"github.com/solhealth/availability-engine/pkg/logging"
)

// PaymentType distinguishes insurance sessions from cash-pay sessions.
type PaymentType string

const (
	PaymentInsurance PaymentType = "insurance"
	PaymentCashPay   PaymentType = "cash_pay"
)

// BookingGrid is the step/alignment rule used to place session windows.
type BookingGrid string

const (
	GridHourBlocks      BookingGrid = "hour_blocks"
	GridFlexiblePeriods BookingGrid = "flexible_periods"
)

// Session lengths are fully determined by payment type: associates on the
// Limited Permit program see insurance clients for 55 minutes, graduates
// (MFT/MHC/MSW) see cash-pay clients for 45. No crossover is permitted.
const (
	InsuranceSessionMinutes = 55
	CashPaySessionMinutes   = 45
)

// Policy is the resolved set of booking parameters for one therapist.
type Policy struct {
	CalendarID     string      `json:"calendar_id"`
	SessionMinutes int         `json:"session_minutes"`
	PaymentType    PaymentType `json:"payment_type"`
	BookingGrid    BookingGrid `json:"booking_grid"`
}

// Overrides carries caller-supplied hints. An explicit SessionMinutes always
// wins over program-derived durations; PaymentType is a hint used only when
// the program cannot be determined.
type Overrides struct {
	PaymentType    PaymentType
	SessionMinutes int
}

// Resolver maps calendar IDs to policies using a profile store.
type Resolver struct {
	store  ProfileStore
	logger *logging.Logger
}

// NewResolver creates a resolver backed by the given profile store.
func NewResolver(store ProfileStore, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve determines the policy for calendarID. Lookup failures are logged
// and fall back to cash-pay 45-minute hour-block sessions; they are never
// surfaced to the caller.
func (r *Resolver) Resolve(ctx context.Context, calendarID string, ov Overrides) Policy {
	p := Policy{
		CalendarID:     calendarID,
		SessionMinutes: CashPaySessionMinutes,
		PaymentType:    PaymentCashPay,
		BookingGrid:    GridHourBlocks,
	}
	if ov.PaymentType == PaymentInsurance {
		p.PaymentType = PaymentInsurance
		p.SessionMinutes = InsuranceSessionMinutes
	}

	profile, err := r.store.GetProfile(ctx, calendarID)
	if err != nil {
		r.logger.Warn("therapist profile lookup failed, using fallback policy",
			"calendar_id", calendarID,
			"error", err,
		)
	} else {
		switch profile.Program {
		case ProgramLimitedPermit:
			p.PaymentType = PaymentInsurance
			p.SessionMinutes = InsuranceSessionMinutes
		case ProgramMFT, ProgramMHC, ProgramMSW:
			p.PaymentType = PaymentCashPay
			p.SessionMinutes = CashPaySessionMinutes
		default:
			r.logger.Warn("unknown therapist program, using fallback policy",
				"calendar_id", calendarID,
				"program", profile.Program,
			)
		}
		if profile.BookingGrid == GridFlexiblePeriods {
			p.BookingGrid = GridFlexiblePeriods
		}
	}

	if ov.SessionMinutes > 0 {
		p.SessionMinutes = ov.SessionMinutes
	}
	return p
}

// SupportedPaymentTypes lists the payment types a therapist can accept based
// on program: associates are insurance-only, graduates take both.
func (r *Resolver) SupportedPaymentTypes(ctx context.Context, calendarID string) []PaymentType {
	profile, err := r.store.GetProfile(ctx, calendarID)
	if err != nil {
		return []PaymentType{PaymentCashPay}
	}
	if profile.Program == ProgramLimitedPermit {
		return []PaymentType{PaymentInsurance}
	}
	return []PaymentType{PaymentCashPay, PaymentInsurance}
}

// Profile returns the therapist profile, or a placeholder when the lookup
// fails so callers always receive a well-formed structure.
func (r *Resolver) Profile(ctx context.Context, calendarID string) Profile {
	profile, err := r.store.GetProfile(ctx, calendarID)
	if err != nil {
		r.logger.Warn("therapist profile lookup failed",
			"calendar_id", calendarID,
			"error", err,
		)
		return Profile{
			CalendarID:          calendarID,
			Name:                "Unknown",
			Program:             "Unknown",
			AcceptingNewClients: true,
		}
	}
	return *profile
}

// ParsePaymentType normalizes the shorthands accepted on query strings
// (INS/OOP/cash) to canonical payment types. Unknown values default to
// cash pay.
func ParsePaymentType(s string) PaymentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ins", "insurance":
		return PaymentInsurance
	}
	return PaymentCashPay
}
