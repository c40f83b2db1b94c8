package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatching(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{NotFound("job missing"), ErrNotFound},
		{Conflict("terminal state already set"), ErrConflict},
		{Transient("provider 503", errors.New("upstream")), ErrTransient},
		{Permanent("provider 400", errors.New("bad payload")), ErrPermanent},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.want) {
			t.Fatalf("errors.Is(%v, %v) = false", c.err, c.want)
		}
	}
}

func TestWrappedKindSurvives(t *testing.T) {
	inner := Transient("provider 429", errors.New("rate limited"))
	wrapped := fmt.Errorf("submit answer job: %w", inner)
	if !IsTransient(wrapped) {
		t.Fatalf("transient kind lost through wrapping: %v", wrapped)
	}
	if IsPermanent(wrapped) {
		t.Fatalf("wrapped transient error reported permanent")
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient("submit", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable via Unwrap chain")
	}
}
