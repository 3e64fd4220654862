package model

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-distinguishable failure category. Callers route on
// the kind, not the message.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindNoCallableLeads     ErrorKind = "no_callable_leads"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindConcurrentLaunch    ErrorKind = "concurrent_launch"
	KindTransientFault      ErrorKind = "transient_fault"
)

// Remedy names the screen that can fix the failure.
type Remedy string

const (
	RemedyBilling    Remedy = "billing"
	RemedyLeadUpload Remedy = "leads"
	RemedySettings   Remedy = "settings"
	RemedyRetry      Remedy = "retry"
)

// Error is the governor's boundary error. Every failure that crosses out of
// the governor resolves to one of these; nothing propagates uncaught.
type Error struct {
	Kind        ErrorKind
	Message     string
	Remedy      Remedy
	LeadsReason NoLeadsReason // set only for KindNoCallableLeads
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a boundary error.
func NewError(kind ErrorKind, remedy Remedy, format string, args ...any) *Error {
	return &Error{Kind: kind, Remedy: remedy, Message: fmt.Sprintf(format, args...)}
}

// WrapTransient wraps a collaborator failure as a transient fault, retried on
// the next poll rather than treated as stopped.
func WrapTransient(err error, format string, args ...any) *Error {
	return &Error{
		Kind:    KindTransientFault,
		Remedy:  RemedyRetry,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsKind reports whether err resolves to a governor error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}
