// Package reqerr defines the error kinds returned by httpchain.
//
// Configuration mistakes (InvalidArgument) are separated from execution failures
// (ClientUnresolved, InvalidConfiguration, UnresolvedURL, TransportFailure,
// InvalidPayload) so callers can tell "fix my call" apart from "the network failed".
package reqerr

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	Unknown Kind = iota
	InvalidArgument
	ClientUnresolved
	InvalidConfiguration
	UnresolvedURL
	TransportFailure
	InvalidPayload
)

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	InvalidArgument:      "invalid argument",
	ClientUnresolved:     "client unresolved",
	InvalidConfiguration: "invalid configuration",
	UnresolvedURL:        "unresolved url",
	TransportFailure:     "transport failure",
	InvalidPayload:       "invalid payload",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error carries a Kind together with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	// Transport failures keep the transport's own message.
	if e.Kind == TransportFailure && e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns an error of the given kind with a stack attached.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Wrapf returns an error of the given kind wrapping err. It returns nil if err is nil.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err})
}

// Transport wraps a failed send. The message of err is kept as is and err stays
// reachable through errors.As / errors.Is.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: TransportFailure, Err: err})
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
