package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"fetch", NewFetchError("NIFTY", "chain", 403, ErrFetchFailed), KindFetchFailure},
		{"timeout", fmt.Errorf("chain request: %w", ErrTimeout), KindFetchFailure},
		{"rate limited", ErrRateLimited, KindFetchFailure},
		{"circuit open", fmt.Errorf("nse: %w", ErrCircuitOpen), KindFetchFailure},
		{"malformed", NewFetchError("NIFTY", "decode", 0, ErrMalformedResponse), KindMalformed},
		{"no underlying", NewDataError("spot", "NIFTY", "no price", ErrNoUnderlyingData), KindNoUnderlyingData},
		{"validation", NewValidationError("expiry", "x", "unknown"), KindOther},
		{"retry abandoned", fmt.Errorf("retry abandoned: %w: %w", context.Canceled,
			NewFetchError("NIFTY", "chain", 403, ErrFetchFailed)), KindFetchFailure},
		{"deadline", fmt.Errorf("chain: %w", context.DeadlineExceeded), KindFetchFailure},
		{"plain", fmt.Errorf("boom"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchErrorMessage(t *testing.T) {
	err := NewFetchError("BANKNIFTY", "chain", 401, ErrFetchFailed)
	want := "fetch error [BANKNIFTY] chain: status 401: failed to fetch data from NSE"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var fe *FetchError
	if !As(fmt.Errorf("refresh %s: %w", "BANKNIFTY", err), &fe) || fe.StatusCode != 401 {
		t.Error("As should recover the FetchError through a wrap")
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("half_width", 25, "must be between 1 and 20")
	if !Is(err, ErrInputValidation) {
		t.Error("ValidationError should unwrap to ErrInputValidation")
	}
}
