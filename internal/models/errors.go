package models

import "errors"

var (
	// ErrInvalidInput is returned by calculations fed values they cannot work with.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDivisionByZero is returned when a ratio has a zero denominator (monthly income for DTI).
	ErrDivisionByZero = errors.New("division by zero")
	// ErrRemoteUnavailable covers CRM and credit bureau failures and timeouts.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrRemoteNotFound means a linked remote id no longer resolves.
	ErrRemoteNotFound = errors.New("remote record not found")
	// ErrNotFound is returned by the local store.
	ErrNotFound = errors.New("not found")
)
