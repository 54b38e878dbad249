package ledger

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of them so
// callers can branch with errors.Is on either level.
var (
	ErrValidation = errors.New("validation error")
	ErrIntegrity  = errors.New("integrity error")
	ErrNotFound   = errors.New("not found")
	ErrExport     = errors.New("export error")
)

var (
	ErrUnbalancedEntry  = fmt.Errorf("%w: entry lines do not balance", ErrValidation)
	ErrInvalidAccount   = fmt.Errorf("%w: unknown account code", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: malformed date", ErrValidation)
	ErrInvalidJournal   = fmt.Errorf("%w: unknown journal code", ErrValidation)
	ErrInvalidLine      = fmt.Errorf("%w: line must carry exactly one positive amount", ErrValidation)
	ErrTooFewLines      = fmt.Errorf("%w: entry must have at least 2 lines", ErrValidation)
	ErrEmptyLabel       = fmt.Errorf("%w: label is required", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidCurrency  = fmt.Errorf("%w: invalid or unsupported currency code", ErrValidation)
	ErrInvalidAsset     = fmt.Errorf("%w: invalid fixed asset", ErrValidation)
	ErrInvalidEvent     = fmt.Errorf("%w: invalid payment event", ErrValidation)
	ErrInvalidLettrage  = fmt.Errorf("%w: invalid lettrage", ErrValidation)
	ErrEntryImmutable   = fmt.Errorf("%w: entry is validated and cannot be modified", ErrValidation)
	ErrAlreadyReversed  = fmt.Errorf("%w: entry has already been reversed", ErrValidation)
	ErrAssetNotActive   = fmt.Errorf("%w: asset is not in progress", ErrValidation)
	ErrLineAlreadyMatch = fmt.Errorf("%w: line already belongs to a lettrage group", ErrValidation)
)

var (
	ErrDuplicateSequence = fmt.Errorf("%w: duplicate sequence number", ErrIntegrity)
	ErrSequenceGap       = fmt.Errorf("%w: sequence numbering has a gap", ErrIntegrity)
	ErrNegativeBookValue = fmt.Errorf("%w: net book value would become negative", ErrIntegrity)
	ErrBilanUnbalanced   = fmt.Errorf("%w: actif does not equal passif", ErrIntegrity)
	ErrTrialUnbalanced   = fmt.Errorf("%w: trial balance does not balance", ErrIntegrity)
	ErrGroupNotZero      = fmt.Errorf("%w: lettrage group does not sum to zero", ErrIntegrity)
)

var (
	ErrEntryNotFound   = fmt.Errorf("%w: entry", ErrNotFound)
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)
	ErrAssetNotFound   = fmt.Errorf("%w: fixed asset", ErrNotFound)
	ErrGroupNotFound   = fmt.Errorf("%w: lettrage group", ErrNotFound)
	ErrLineNotFound    = fmt.Errorf("%w: entry line", ErrNotFound)
)

var (
	ErrUnvalidatedEntries = fmt.Errorf("%w: range contains unvalidated entries", ErrExport)
	ErrNonContiguous      = fmt.Errorf("%w: entry numbering is not contiguous", ErrExport)
	ErrInvalidSIREN       = fmt.Errorf("%w: SIREN must be 9 digits", ErrExport)
	ErrMalformedFile      = fmt.Errorf("%w: malformed export file", ErrExport)
)
