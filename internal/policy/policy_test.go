package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	profile *Profile
	err     error
}

func (f *fakeStore) GetProfile(ctx context.Context, calendarID string) (*Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

func TestResolveProgramMapping(t *testing.T) {
	tests := []struct {
		name        string
		program     string
		wantPayment PaymentType
		wantMinutes int
	}{
		{"limited permit is insurance 55", ProgramLimitedPermit, PaymentInsurance, 55},
		{"MFT is cash pay 45", ProgramMFT, PaymentCashPay, 45},
		{"MHC is cash pay 45", ProgramMHC, PaymentCashPay, 45},
		{"MSW is cash pay 45", ProgramMSW, PaymentCashPay, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeStore{profile: &Profile{
				CalendarID: "t@solhealth.co",
				Program:    tt.program,
			}}, nil)
			p := r.Resolve(context.Background(), "t@solhealth.co", Overrides{})
			assert.Equal(t, tt.wantPayment, p.PaymentType)
			assert.Equal(t, tt.wantMinutes, p.SessionMinutes)
			assert.Equal(t, GridHourBlocks, p.BookingGrid)
		})
	}
}

func TestResolveNoCrossover(t *testing.T) {
	// A Limited Permit therapist stays insurance even when the caller
	// hints cash pay, and vice versa.
	r := NewResolver(&fakeStore{profile: &Profile{Program: ProgramLimitedPermit}}, nil)
	p := r.Resolve(context.Background(), "a@solhealth.co", Overrides{PaymentType: PaymentCashPay})
	assert.Equal(t, PaymentInsurance, p.PaymentType)
	assert.Equal(t, 55, p.SessionMinutes)

	r = NewResolver(&fakeStore{profile: &Profile{Program: ProgramMSW}}, nil)
	p = r.Resolve(context.Background(), "b@solhealth.co", Overrides{PaymentType: PaymentInsurance})
	assert.Equal(t, PaymentCashPay, p.PaymentType)
	assert.Equal(t, 45, p.SessionMinutes)
}

func TestResolveExplicitMinutesWin(t *testing.T) {
	r := NewResolver(&fakeStore{profile: &Profile{Program: ProgramLimitedPermit}}, nil)
	p := r.Resolve(context.Background(), "a@solhealth.co", Overrides{SessionMinutes: 30})
	assert.Equal(t, 30, p.SessionMinutes)
	assert.Equal(t, PaymentInsurance, p.PaymentType)
}

func TestResolveLookupFailureFallsBack(t *testing.T) {
	for _, err := range []error{ErrProfileNotFound, errors.New("connection refused")} {
		r := NewResolver(&fakeStore{err: err}, nil)
		p := r.Resolve(context.Background(), "gone@solhealth.co", Overrides{})
		assert.Equal(t, PaymentCashPay, p.PaymentType)
		assert.Equal(t, 45, p.SessionMinutes)
		assert.Equal(t, GridHourBlocks, p.BookingGrid)
	}
}

func TestResolvePaymentHintUsedWithoutProfile(t *testing.T) {
	r := NewResolver(&fakeStore{err: ErrProfileNotFound}, nil)
	p := r.Resolve(context.Background(), "gone@solhealth.co", Overrides{PaymentType: PaymentInsurance})
	assert.Equal(t, PaymentInsurance, p.PaymentType)
	assert.Equal(t, 55, p.SessionMinutes)
}

func TestResolveFlexibleGridFromProfile(t *testing.T) {
	r := NewResolver(&fakeStore{profile: &Profile{
		Program:     ProgramMFT,
		BookingGrid: GridFlexiblePeriods,
	}}, nil)
	p := r.Resolve(context.Background(), "c@solhealth.co", Overrides{})
	assert.Equal(t, GridFlexiblePeriods, p.BookingGrid)
}

func TestSupportedPaymentTypes(t *testing.T) {
	r := NewResolver(&fakeStore{profile: &Profile{Program: ProgramLimitedPermit}}, nil)
	assert.Equal(t, []PaymentType{PaymentInsurance},
		r.SupportedPaymentTypes(context.Background(), "a@solhealth.co"))

	r = NewResolver(&fakeStore{profile: &Profile{Program: ProgramMHC}}, nil)
	assert.Equal(t, []PaymentType{PaymentCashPay, PaymentInsurance},
		r.SupportedPaymentTypes(context.Background(), "b@solhealth.co"))

	r = NewResolver(&fakeStore{err: ErrProfileNotFound}, nil)
	assert.Equal(t, []PaymentType{PaymentCashPay},
		r.SupportedPaymentTypes(context.Background(), "gone@solhealth.co"))
}

func TestParsePaymentType(t *testing.T) {
	assert.Equal(t, PaymentInsurance, ParsePaymentType("INS"))
	assert.Equal(t, PaymentInsurance, ParsePaymentType("insurance"))
	assert.Equal(t, PaymentCashPay, ParsePaymentType("OOP"))
	assert.Equal(t, PaymentCashPay, ParsePaymentType("cash_pay"))
	assert.Equal(t, PaymentCashPay, ParsePaymentType(""))
	assert.Equal(t, PaymentCashPay, ParsePaymentType("something-else"))
}
