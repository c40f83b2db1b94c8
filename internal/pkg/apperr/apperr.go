// Package apperr carries the error taxonomy shared by services and clients.
//
// Transient means the caller may retry with backoff (network blips, provider
// rate limits). Permanent means retrying the same request cannot succeed
// (malformed payload, auth failure). NotFound and Conflict keep their usual
// meanings; Conflict is logged and treated as benign on duplicate-delivery
// paths.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrTransient = errors.New("transient")
	ErrPermanent = errors.New("permanent")
)

type Error struct {
	kind error
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return e.kind
}

// Is lets errors.Is(err, ErrTransient) etc. match regardless of wrapping.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

func NotFound(msg string) error          { return &Error{kind: ErrNotFound, msg: msg} }
func Conflict(msg string) error          { return &Error{kind: ErrConflict, msg: msg} }
func Transient(msg string, err error) error { return &Error{kind: ErrTransient, msg: msg, err: err} }
func Permanent(msg string, err error) error { return &Error{kind: ErrPermanent, msg: msg, err: err} }

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
func IsPermanent(err error) bool { return errors.Is(err, ErrPermanent) }
