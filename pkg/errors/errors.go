// Package errors provides error construction and wrapping with stack capture,
// plus optional reporting of errors to external sinks (see reporter.go).
//
// The *AndReport constructors behave like their plain counterparts but also
// hand the error to every registered Reporter. Use them at the point where an
// error is first discovered; plain Wrap/New everywhere else.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
)

// New returns an error with the supplied message and a captured stack.
func New(message string) error {
	return &fundamental{
		msg:   message,
		stack: callers(),
	}
}

// Errorf formats according to a format specifier and returns it as an error
// with a captured stack.
func Errorf(format string, args ...interface{}) error {
	return &fundamental{
		msg:   fmt.Sprintf(format, args...),
		stack: callers(),
	}
}

// NewWithReport is New plus reporting.
func NewWithReport(message string) error {
	err := New(message)
	report(err)
	return err
}

// ErrorfAndReport is Errorf plus reporting.
func ErrorfAndReport(format string, args ...interface{}) error {
	err := Errorf(format, args...)
	report(err)
	return err
}

// Wrap returns an error annotating err with a stack and the supplied message.
// If err is nil, Wrap returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &withStack{
		error: &withMessage{cause: err, msg: message},
		stack: callers(),
	}
}

// Wrapf is Wrap with message formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &withStack{
		error: &withMessage{cause: err, msg: fmt.Sprintf(format, args...)},
		stack: callers(),
	}
}

// WrapAndReport is Wrap plus reporting.
func WrapAndReport(err error, message string) error {
	wrapped := Wrap(err, message)
	report(wrapped)
	return wrapped
}

// WrapfAndReport is Wrapf plus reporting.
func WrapfAndReport(err error, format string, args ...interface{}) error {
	wrapped := Wrapf(err, format, args...)
	report(wrapped)
	return wrapped
}

// WithStack annotates err with a stack at the point WithStack was called.
// If err is nil, WithStack returns nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return &withStack{
		error: err,
		stack: callers(),
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

type fundamental struct {
	msg string
	*stack
}

func (f *fundamental) Error() string {
	return f.msg
}

func (f *fundamental) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		io.WriteString(s, f.msg)
		if s.Flag('+') {
			f.stack.format(s)
		}
	case 's':
		io.WriteString(s, f.msg)
	case 'q':
		fmt.Fprintf(s, "%q", f.msg)
	}
}

type withMessage struct {
	cause error
	msg   string
}

func (w *withMessage) Error() string {
	return w.msg + ": " + w.cause.Error()
}

func (w *withMessage) Unwrap() error {
	return w.cause
}

type withStack struct {
	error
	*stack
}

func (w *withStack) Unwrap() error {
	return w.error
}

func (w *withStack) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		io.WriteString(s, w.Error())
		if s.Flag('+') {
			w.stack.format(s)
		}
	case 's':
		io.WriteString(s, w.Error())
	case 'q':
		fmt.Fprintf(s, "%q", w.Error())
	}
}
