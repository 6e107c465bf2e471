package inventory

import (
	"errors"

	"github.com/erazemk/izposoja/internal/barcode"
)

// Business rule errors. Callers match them with errors.Is; KindOf and Code
// group them for transport.
var (
	ErrItemNotFound       = errors.New("inventory: item not found")
	ErrUUIDReassigned     = errors.New("inventory: uuid was reassigned to a new label")
	ErrProductNotFound    = errors.New("inventory: product not found")
	ErrLocationNotFound   = errors.New("inventory: location not found")
	ErrUserNotFound       = errors.New("inventory: user not found")
	ErrQueueEntryNotFound = errors.New("inventory: label not pending")

	ErrInvalidInput       = errors.New("inventory: invalid input")
	ErrInvalidUPC         = barcode.ErrInvalidUPC
	ErrInvalidBarcodeType = barcode.ErrInvalidKind

	ErrInvalidTransition     = errors.New("inventory: invalid status transition")
	ErrAlreadyRemoved        = errors.New("inventory: item already removed")
	ErrAlreadyCheckedOut     = errors.New("inventory: item checked out to another user")
	ErrItemCheckedOut        = errors.New("inventory: item is checked out")
	ErrAlreadyQueued         = errors.New("inventory: label already queued")
	ErrItemNotAvailable      = errors.New("inventory: item not available")
	ErrNoEmergencyCandidates = errors.New("inventory: no items left to remove for product")

	ErrAmbiguousRemoval = errors.New("inventory: product has only qr-labeled items, scan the qr code")
)

// Kind groups errors by how a caller can recover from them.
type Kind int

// Error kinds.
const (
	KindNone Kind = iota
	KindNotFound
	KindInvalidInput
	KindInvalidTransition
	KindAmbiguous
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindAmbiguous:
		return "ambiguous"
	}
	return "persistence"
}

// KindOf classifies err. Anything that is not a known business rule error is
// a persistence failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrUUIDReassigned),
		errors.Is(err, ErrProductNotFound), errors.Is(err, ErrLocationNotFound),
		errors.Is(err, ErrUserNotFound), errors.Is(err, ErrQueueEntryNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidUPC),
		errors.Is(err, ErrInvalidBarcodeType):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrAlreadyRemoved),
		errors.Is(err, ErrAlreadyCheckedOut), errors.Is(err, ErrItemCheckedOut),
		errors.Is(err, ErrAlreadyQueued), errors.Is(err, ErrItemNotAvailable),
		errors.Is(err, ErrNoEmergencyCandidates):
		return KindInvalidTransition
	case errors.Is(err, ErrAmbiguousRemoval):
		return KindAmbiguous
	}
	return KindPersistence
}

// Scan error codes.
const (
	CodeItemNotFound          = "item_not_found"
	CodeProductNotFound       = "product_not_found"
	CodeLocationNotFound      = "location_not_found"
	CodeUserNotFound          = "user_not_found"
	CodeInvalidUPCFormat      = "invalid_upc_format"
	CodeInvalidBarcodeType    = "invalid_barcode_type"
	CodeInvalidInput          = "invalid_input"
	CodeAlreadyRemoved        = "already_removed"
	CodeItemCheckedOut        = "item_checked_out"
	CodeUPCWithQRExists       = "upc_with_qr_exists"
	CodeNoEmergencyCandidates = "no_emergency_candidates"
	CodeInvalidTransition     = "invalid_transition"
	CodeAlreadyQueued         = "already_queued"
	CodeItemNotAvailable      = "item_not_available"
	CodeInternal              = "internal_error"
)

// Code maps err to a stable error code, or "" for nil.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrUUIDReassigned),
		errors.Is(err, ErrQueueEntryNotFound):
		return CodeItemNotFound
	case errors.Is(err, ErrProductNotFound):
		return CodeProductNotFound
	case errors.Is(err, ErrLocationNotFound):
		return CodeLocationNotFound
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrInvalidUPC):
		return CodeInvalidUPCFormat
	case errors.Is(err, ErrInvalidBarcodeType):
		return CodeInvalidBarcodeType
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrAlreadyRemoved):
		return CodeAlreadyRemoved
	case errors.Is(err, ErrItemCheckedOut), errors.Is(err, ErrAlreadyCheckedOut):
		return CodeItemCheckedOut
	case errors.Is(err, ErrAmbiguousRemoval):
		return CodeUPCWithQRExists
	case errors.Is(err, ErrNoEmergencyCandidates):
		return CodeNoEmergencyCandidates
	case errors.Is(err, ErrAlreadyQueued):
		return CodeAlreadyQueued
	case errors.Is(err, ErrItemNotAvailable):
		return CodeItemNotAvailable
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	}
	return CodeInternal
}
