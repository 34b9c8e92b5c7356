package soft

import (
	"errors"
	"fmt"
	"testing"
)

func TestResultOr(t *testing.T) {
	if got := Ok("x").Or("fallback"); got != "x" {
		t.Fatalf("Ok.Or = %q, want x", got)
	}
	if got := Fail[string](errors.New("boom")).Or("fallback"); got != "fallback" {
		t.Fatalf("Fail.Or = %q, want fallback", got)
	}
	if got := From(0, errors.New("boom")).Or(7); got != 7 {
		t.Fatalf("From(err).Or = %d, want 7", got)
	}
}

func TestFailWithoutReason(t *testing.T) {
	r := Fail[int](nil)
	if r.OK || r.Reason == nil {
		t.Fatalf("expected failure with a reason, got %+v", r)
	}
}

func TestDisabled(t *testing.T) {
	r := Fail[bool](fmt.Errorf("classifier: %w", ErrDisabled))
	if !r.Disabled() {
		t.Fatal("wrapped ErrDisabled should report Disabled")
	}
	if Fail[bool](errors.New("quota")).Disabled() {
		t.Fatal("plain failure must not report Disabled")
	}
}
