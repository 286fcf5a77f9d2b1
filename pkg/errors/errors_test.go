package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeInsufficientStock, http.StatusConflict},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeProvider, http.StatusBadGateway},
		{CodeNotFound, http.StatusNotFound},
		{CodeDependency, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("row locked")
	err := Wrap(CodeConflict, cause, "booking overlap")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be findable")
	}
	typed := As(fmt.Errorf("outer: %w", err))
	if typed == nil || typed.Code() != CodeConflict {
		t.Fatalf("expected conflict code through wrapping, got %v", typed)
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeInsufficientStock, "stock would go negative")
	if !HasCode(err, CodeInsufficientStock) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(err, CodeConflict) {
		t.Fatal("did not expect conflict code")
	}
	if HasCode(nil, CodeConflict) {
		t.Fatal("nil error must not match")
	}
}
