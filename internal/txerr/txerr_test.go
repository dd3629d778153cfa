package txerr

import (
	"errors"
	"testing"
)

func TestErrorMessageWithLocation(t *testing.T) {
	err := New(InvalidSigma, "detection.selection.Image", "missing field")
	want := `InvalidSigma: missing field (at detection.selection.Image)`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorMessageWithoutLocation(t *testing.T) {
	err := New(Internal, "", "unreachable")
	want := `Internal: unreachable`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(UnsupportedSpl, "spl", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected Wrap to preserve cause via Unwrap")
	}
	if err.Message != "boom" {
		t.Fatalf("Message = %q, want %q", err.Message, "boom")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(Internal, "", nil) != nil {
		t.Fatalf("Wrap(nil) should return nil")
	}
}

func TestIsUnwraps(t *testing.T) {
	inner := New(NotFound, "profile.id", "not found")
	outer := Wrap(Internal, "outer", inner)
	if !Is(outer, Internal) {
		t.Fatalf("Is(outer, Internal) should be true")
	}
	if Is(outer, NotFound) {
		t.Fatalf("Is(outer, NotFound) should be false: Wrap does not unwrap through *Error chains by Kind")
	}
}

func TestIsFalseForPlainError(t *testing.T) {
	if Is(errors.New("plain"), Internal) {
		t.Fatalf("Is should be false for a non-txerr error")
	}
}
