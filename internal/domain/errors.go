package domain

import "errors"

// Sentinel errors shared by services and repositories.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")

	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidToken     = errors.New("invalid or expired token")
)

// RSVP flow errors. Controllers turn most of these into redirects.
var (
	ErrSessionNotFound   = errors.New("rsvp session not found")
	ErrSessionPaid       = errors.New("rsvp session already paid")
	ErrNeedsSelection    = errors.New("no spots selected")
	ErrNeedsAttendees    = errors.New("attendees not provided")
	ErrGated             = errors.New("not on the guest list")
	ErrGuestListRequired = errors.New("guest list email required")
)

// Validation codes reported to clients.
const (
	CodeUnknownSpot       = "unknown_spot"
	CodeSpotCapacity      = "spot_capacity"
	CodeEventCapacity     = "event_capacity"
	CodeContributionRange = "contribution_range"
	CodeEmptySelection    = "empty_selection"
	CodeInvalidQuantity   = "invalid_quantity"
	CodeAttendees         = "attendees"
	CodePaymentRequired   = "payment_required"
)

// ValidationError is a user input failure. It matches ErrInvalidInput.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError returns a ValidationError with the given code and message.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// Conflict codes.
const (
	CodeAlreadyRsvped    = "already_rsvped"
	CodeCurrentlyRsvping = "currently_rsvping"
)

// ConflictError reports a duplicate RSVP for the same (event, email). It matches ErrConflict.
type ConflictError struct {
	Code  string
	Email string
}

func (e *ConflictError) Error() string {
	switch e.Code {
	case CodeAlreadyRsvped:
		return e.Email + " has already RSVPed"
	case CodeCurrentlyRsvping:
		return e.Email + " is currently RSVPing"
	default:
		return "conflicting rsvp for " + e.Email
	}
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
