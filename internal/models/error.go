package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account errors
	ErrDuplicateAccount   = errors.New("account with this username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountBanned      = errors.New("account is banned")
	ErrMuted              = errors.New("user is muted")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrCodeCooldown       = errors.New("a code was sent recently")

	// Content errors
	ErrValidation        = errors.New("validation failed")
	ErrEmptyText         = errors.New("text is empty")
	ErrTooLong           = errors.New("text is too long")
	ErrInvalidTransition = errors.New("status transition not allowed")

	// Workflow errors
	ErrAlreadyReviewed     = errors.New("record has already been reviewed")
	ErrVerificationPending = errors.New("a verification request is already pending")
	ErrApplicationPending  = errors.New("an application is already pending")
	ErrApplicantChanged    = errors.New("applicant role changed since the review started")
	ErrNickChanged         = errors.New("roblox nickname changed since the request was filed")
)

// Not-found variants keep errors.Is(err, ErrNotFound) true
var (
	ErrUserNotFound         = fmt.Errorf("user: %w", ErrNotFound)
	ErrPostNotFound         = fmt.Errorf("post: %w", ErrNotFound)
	ErrApplicationNotFound  = fmt.Errorf("application: %w", ErrNotFound)
	ErrVerificationNotFound = fmt.Errorf("verification: %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification: %w", ErrNotFound)
)

// AccountBannedError is returned when a banned user authenticates successfully
type AccountBannedError struct {
	Reason string
}

func (e *AccountBannedError) Error() string {
	if e.Reason == "" {
		return ErrAccountBanned.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAccountBanned.Error(), e.Reason)
}

func (e *AccountBannedError) Is(target error) bool {
	return target == ErrAccountBanned
}

// MutedError is returned when a muted user tries to publish content
type MutedError struct {
	Reason    string
	ExpiresAt *time.Time
}

func (e *MutedError) Error() string {
	if e.Reason == "" {
		return ErrMuted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMuted.Error(), e.Reason)
}

func (e *MutedError) Is(target error) bool {
	return target == ErrMuted
}

// ValidationError carries the offending field alongside a caller-facing message
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
