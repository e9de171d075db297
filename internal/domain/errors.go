// Package domain defines core types, interfaces, and errors for the
// roster-to-group synchronizer.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input or configuration.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// InputNotFoundError indicates the source roster file is absent.
type InputNotFoundError struct {
	Path string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("input roster not found: %s", e.Path)
}

// DirectoryError indicates a directory-service call failed.
type DirectoryError struct {
	Op      string // operation that failed (e.g., "create group", "add member")
	Message string
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory %s: %s", e.Op, e.Message)
}

// NotificationError indicates a notification dispatch failed.
type NotificationError struct {
	Message string
}

func (e *NotificationError) Error() string { return e.Message }

// RollbackTargetError indicates no archived roster exists for the
// requested date.
type RollbackTargetError struct {
	Date string
}

func (e *RollbackTargetError) Error() string {
	return fmt.Sprintf("no archived roster for %s", e.Date)
}

// NotSupportedError indicates an operation whose semantics are not
// defined yet.
type NotSupportedError struct {
	Message string
}

func (e *NotSupportedError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrDirectory creates a DirectoryError for the given operation.
func ErrDirectory(op, format string, args ...interface{}) *DirectoryError {
	return &DirectoryError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// ErrNotification creates a NotificationError with a formatted message.
func ErrNotification(format string, args ...interface{}) *NotificationError {
	return &NotificationError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotSupported creates a NotSupportedError with a formatted message.
func ErrNotSupported(format string, args ...interface{}) *NotSupportedError {
	return &NotSupportedError{Message: fmt.Sprintf(format, args...)}
}
