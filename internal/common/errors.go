// Package common defines shared constants and sentinel errors used across
// TravelKeeper layers. Callers should use errors.Is to match these values.
//
// Every named domain error unwraps to exactly one kind sentinel (ErrValidation,
// ErrConflict, ...), so transports can map a whole family of failures to one
// status code while services keep returning precise errors.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
)

// Error kinds.
var (
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrCredentials  = errors.New("credential error")
	ErrToken        = errors.New("token error")
	ErrSessionState = errors.New("session state error")
	ErrStorage      = errors.New("storage error")

	ErrNotFound     = errors.New("resource not found")
	ErrBusinessRule = errors.New("business rule violation")
	ErrUnavailable  = errors.New("dependency unavailable")
)

// Account and session errors.
var (
	ErrAccountAlreadyExists       = newKindError(ErrConflict, "User already exists with provided credentials")
	ErrInvalidCredentials         = newKindError(ErrCredentials, "Incorrect email or password")
	ErrTokenExpired               = newKindError(ErrToken, "Token has expired")
	ErrInvalidToken               = newKindError(ErrToken, "Invalid token")
	ErrInvalidRefreshToken        = newKindError(ErrToken, "Invalid refresh token or expired")
	ErrAccountNotFound            = newKindError(ErrSessionState, "User not found with provided credentials")
	ErrAccountLoggedOut           = newKindError(ErrSessionState, "User logged out with provided credentials")
	ErrSessionEstablishmentFailed = newKindError(ErrStorage, "Could not establish secure session. Please try again")
)

// Travel resource errors.
var (
	ErrProjectNotFound         = newKindError(ErrNotFound, "Project not found")
	ErrPlaceNotFound           = newKindError(ErrNotFound, "Place not found")
	ErrProjectHasVisitedPlaces = newKindError(ErrBusinessRule, "Cannot delete project: some places are already marked as visited.")
	ErrProjectPlaceLimit       = newKindError(ErrBusinessRule, fmt.Sprintf("Project already has the maximum of %d places", MaxPlacesPerProject))
	ErrPlaceAlreadyInProject   = newKindError(ErrBusinessRule, "This place is already in the project")
	ErrInvalidExternalPlace    = newKindError(ErrBusinessRule, "External ID not found in Art Institute API")
	ErrCatalogUnavailable      = newKindError(ErrUnavailable, "Third-party API is currently unavailable")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// ValidationError describes input rejected before any storage access.
// Field is the JSON name of the offending input, or empty when the whole
// request is at fault.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is reports kind membership so errors.Is(err, ErrValidation) matches.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError marks err as a storage failure while keeping it inspectable.
// A nil err yields nil.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// WithDetail keeps the kind and identity of err but replaces its message.
func WithDetail(err error, detail string) error {
	return &detailError{err: err, detail: detail}
}

type detailError struct {
	err    error
	detail string
}

func (e *detailError) Error() string { return e.detail }

func (e *detailError) Unwrap() error { return e.err }
