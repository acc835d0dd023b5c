// Package oracleerr defines the closed error taxonomy that the oracle core
// uses to reject a state transition.
//
// The shape follows the ruleError/ErrorCode convention used throughout the
// btcsuite/Decred blockchain packages (see blockchain/subsidy.go's
// ruleError(ErrBlockOneTx, ...) calls): a small integer ErrorCode, a
// human-readable Description, and a RuleError wrapping both so callers can
// either print the error or switch on its Code via errors.As.
package oracleerr

import "fmt"

// ErrorCode identifies a specific kind of rule violation raised while
// computing an oracle state transition. The set is closed: the core never
// produces an error outside this list (spec.md §7).
type ErrorCode int

const (
	// ErrInvalidPoW indicates a header hash exceeds its own target.
	ErrInvalidPoW ErrorCode = iota

	// ErrBitsOutOfRange indicates a compact "bits" value fails the
	// sign/range rules of compact-to-target decoding.
	ErrBitsOutOfRange

	// ErrTargetAbovePowLimit indicates a decoded target exceeds PowLimit.
	ErrTargetAbovePowLimit

	// ErrBadDifficulty indicates header.bits does not match the expected
	// next bits when the parent is the confirmed tip.
	ErrBadDifficulty

	// ErrBadTimestamp indicates a header's timestamp is at or before the
	// relevant median-time-past, or too far in the future.
	ErrBadTimestamp

	// ErrOutdatedVersion indicates header.version is below the minimum.
	ErrOutdatedVersion

	// ErrUnknownParent indicates a header's parent was not found as the
	// confirmed tip or anywhere in the forks tree.
	ErrUnknownParent

	// ErrDuplicateInBatch indicates two headers in one submission hash to
	// the same value.
	ErrDuplicateInBatch

	// ErrMissingCanonicalExtension indicates fork headers were submitted
	// without an accompanying canonical extension.
	ErrMissingCanonicalExtension

	// ErrEmptySubmission indicates the headers sequence was empty.
	ErrEmptySubmission

	// ErrStateMismatch indicates the recomputed next state differs from
	// the environment-supplied next datum.
	ErrStateMismatch

	// ErrTimeOutOfTolerance indicates redeemerTime and validityIntervalTime
	// differ by more than TimeToleranceSeconds.
	ErrTimeOutOfTolerance

	// ErrNonFiniteValidity indicates the validity interval lower bound is
	// not finite.
	ErrNonFiniteValidity

	// ErrOutputShape indicates the continuing output is missing or not
	// unique, or the spent oracle input is not unique at the oracle
	// address.
	ErrOutputShape
)

var errorCodeStrings = map[ErrorCode]string{
	ErrInvalidPoW:                "ErrInvalidPoW",
	ErrBitsOutOfRange:            "ErrBitsOutOfRange",
	ErrTargetAbovePowLimit:       "ErrTargetAbovePowLimit",
	ErrBadDifficulty:             "ErrBadDifficulty",
	ErrBadTimestamp:              "ErrBadTimestamp",
	ErrOutdatedVersion:           "ErrOutdatedVersion",
	ErrUnknownParent:             "ErrUnknownParent",
	ErrDuplicateInBatch:          "ErrDuplicateInBatch",
	ErrMissingCanonicalExtension: "ErrMissingCanonicalExtension",
	ErrEmptySubmission:           "ErrEmptySubmission",
	ErrStateMismatch:             "ErrStateMismatch",
	ErrTimeOutOfTolerance:        "ErrTimeOutOfTolerance",
	ErrNonFiniteValidity:         "ErrNonFiniteValidity",
	ErrOutputShape:               "ErrOutputShape",
}

// String returns the human-readable name of the error code.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(e))
}

// RuleError identifies an error that indicates a rule violation that causes
// the entire oracle state transition to be rejected. There is no partial
// acceptance: the caller must treat RuleError as a single reject verdict.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// Is reports whether target is a RuleError with the same ErrorCode, so
// callers may write errors.Is(err, oracleerr.RuleError{ErrorCode: ErrInvalidPoW}).
func (e RuleError) Is(target error) bool {
	other, ok := target.(RuleError)
	if !ok {
		return false
	}
	return e.ErrorCode == other.ErrorCode
}

// New constructs a RuleError for the given code and message.
func New(code ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: code, Description: desc}
}

// Newf constructs a RuleError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) RuleError {
	return RuleError{ErrorCode: code, Description: fmt.Sprintf(format, args...)}
}
