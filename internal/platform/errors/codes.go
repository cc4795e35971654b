package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Tab errors
	CodeTabNotFound        Code = "TAB_NOT_FOUND"
	CodeTabAlreadyExists   Code = "TAB_ALREADY_EXISTS"
	CodeTabClosed          Code = "TAB_CLOSED"
	CodeTabIDMissing       Code = "TAB_ID_MISSING"
	CodeTabVersionConflict Code = "TAB_VERSION_CONFLICT"

	// Command validation errors
	CodeTableNumberInvalid Code = "TABLE_NUMBER_INVALID"
	CodeWaiterIDMissing    Code = "WAITER_ID_MISSING"
	CodeNoItemsRequested   Code = "NO_ITEMS_REQUESTED"
	CodePaymentNegative    Code = "PAYMENT_NEGATIVE"

	// Order/serve errors
	CodeItemsNotOutstanding   Code = "ITEMS_NOT_OUTSTANDING"
	CodeInsufficientPayment   Code = "INSUFFICIENT_PAYMENT"
	CodeMenuItemsNotFound     Code = "MENU_ITEMS_NOT_FOUND"
	CodeMenuItemAlreadyExists Code = "MENU_ITEM_ALREADY_EXISTS"
	CodeMenuItemInvalid       Code = "MENU_ITEM_INVALID"

	// Table registry errors
	CodeTableNotFound      Code = "TABLE_NOT_FOUND"
	CodeTableAlreadyExists Code = "TABLE_ALREADY_EXISTS"

	// Storage errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeStorageFailure Code = "STORAGE_FAILURE"
)

// Kind groups codes into the coarse failure taxonomy callers branch on.
type Kind int

const (
	// KindUnexpected covers collaborator faults and unclassified errors.
	KindUnexpected Kind = iota
	// KindNotFound covers absent aggregates and entities.
	KindNotFound
	// KindValidation covers structural and business-invariant violations.
	KindValidation
	// KindConflict covers concurrent-existence and concurrent-write clashes.
	KindConflict
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "unexpected"
	}
}

// Kind classifies a code into the failure taxonomy.
func (c Code) Kind() Kind {
	switch c {
	case CodeTabNotFound,
		CodeMenuItemsNotFound,
		CodeTableNotFound,
		CodeNotFound:
		return KindNotFound

	case CodeTabClosed,
		CodeTabIDMissing,
		CodeTableNumberInvalid,
		CodeWaiterIDMissing,
		CodeNoItemsRequested,
		CodePaymentNegative,
		CodeItemsNotOutstanding,
		CodeInsufficientPayment,
		CodeMenuItemInvalid:
		return KindValidation

	case CodeTabAlreadyExists,
		CodeTabVersionConflict,
		CodeMenuItemAlreadyExists,
		CodeTableAlreadyExists:
		return KindConflict
	}
	return KindUnexpected
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - structural validation failures, bad input
	case CodeTabIDMissing,
		CodeTableNumberInvalid,
		CodeWaiterIDMissing,
		CodeNoItemsRequested,
		CodePaymentNegative,
		CodeMenuItemInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow the operation
	case CodeTabClosed,
		CodeItemsNotOutstanding,
		CodeInsufficientPayment:
		return codes.FailedPrecondition

	// AlreadyExists - concurrent-existence clash
	case CodeTabAlreadyExists,
		CodeMenuItemAlreadyExists,
		CodeTableAlreadyExists:
		return codes.AlreadyExists

	// Aborted - optimistic concurrency loser, safe to retry
	case CodeTabVersionConflict:
		return codes.Aborted

	// NotFound
	case CodeTabNotFound,
		CodeMenuItemsNotFound,
		CodeTableNotFound,
		CodeNotFound:
		return codes.NotFound
	}
	return codes.Internal
}
