package errors

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	first := New(CodeTabNotFound, "no tab with id t-1 was found")
	second := New(CodeTabNotFound, "different message")
	other := New(CodeTabClosed, "tab t-1 is closed")

	if !errors.Is(first, second) {
		t.Fatal("expected errors with the same code to match")
	}
	if errors.Is(first, other) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("disk full")
	err := Wrap(CodeStorageFailure, "append event", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Error() != "append event" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindTaxonomy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code Code
		want Kind
	}{
		{CodeTabNotFound, KindNotFound},
		{CodeMenuItemsNotFound, KindNotFound},
		{CodeTabClosed, KindValidation},
		{CodeNoItemsRequested, KindValidation},
		{CodeInsufficientPayment, KindValidation},
		{CodeTabAlreadyExists, KindConflict},
		{CodeTabVersionConflict, KindConflict},
		{CodeStorageFailure, KindUnexpected},
		{CodeUnknown, KindUnexpected},
	}
	for _, tc := range cases {
		if got := tc.code.Kind(); got != tc.want {
			t.Errorf("%s: expected kind %s, got %s", tc.code, tc.want, got)
		}
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code Code
		want codes.Code
	}{
		{CodeTabIDMissing, codes.InvalidArgument},
		{CodeTabClosed, codes.FailedPrecondition},
		{CodeTabAlreadyExists, codes.AlreadyExists},
		{CodeTabVersionConflict, codes.Aborted},
		{CodeTabNotFound, codes.NotFound},
		{CodeStorageFailure, codes.Internal},
	}
	for _, tc := range cases {
		if got := tc.code.GRPCCode(); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.code, tc.want, got)
		}
	}
}

func TestToGRPCStatusCarriesReason(t *testing.T) {
	t.Parallel()

	err := WithMetadata(CodeMenuItemsNotFound, "menu items 99 were not found", map[string]string{
		"numbers": "99",
	})

	st, ok := status.FromError(err.ToGRPCStatus())
	if !ok {
		t.Fatal("expected a grpc status error")
	}
	if st.Code() != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", st.Code())
	}
	if st.Message() != "menu items 99 were not found" {
		t.Fatalf("unexpected message %q", st.Message())
	}
}

func TestFromErrorPreservesTypedErrors(t *testing.T) {
	t.Parallel()

	typed := New(CodeTabNotFound, "missing")
	if got := FromError(typed); got != typed {
		t.Fatal("expected typed error to pass through unchanged")
	}
	plain := FromError(fmt.Errorf("boom"))
	if plain.Code != CodeUnknown {
		t.Fatalf("expected CodeUnknown, got %s", plain.Code)
	}
	if FromError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}
