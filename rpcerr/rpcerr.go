// Package rpcerr defines the single outcome type reported by clients and servers.
//
// Every failed call produces exactly one *Error whose Kind names where the failure
// originated:
//
//   - KindTransport:   the Handler (connection lost, timeout, remote failure)
//   - KindCodec:       encoding or decoding a payload (Op tells which)
//   - KindApplication: the service implementation returned an error
//
// The original cause is kept in Err and is reachable with errors.Is / errors.As, so a
// caller can match on the origin and still recover a typed domain error.
package rpcerr

import (
	"errors"
	"fmt"
)

// Kind classifies the origin of a failure.
type Kind uint8

const (
	KindTransport   Kind = 1 // Handler / transport failure
	KindCodec       Kind = 2 // payload encode or decode failure
	KindApplication Kind = 3 // service implementation failure
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindCodec:
		return "codec"
	case KindApplication:
		return "application"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Op distinguishes the two codec directions. It is zero for non-codec errors.
type Op uint8

const (
	OpEncode Op = 1
	OpDecode Op = 2
)

func (o Op) String() string {
	switch o {
	case OpEncode:
		return "encode"
	case OpDecode:
		return "decode"
	}
	return ""
}

// Sentinels for errors.Is. A sentinel matches any *Error of the same Kind.
var (
	ErrTransport   = &Error{Kind: KindTransport}
	ErrCodec       = &Error{Kind: KindCodec}
	ErrApplication = &Error{Kind: KindApplication}
)

// Error is the unified outcome of a failed call.
type Error struct {
	Kind   Kind
	Op     Op     // set for KindCodec only
	Method string // method name, when known
	Err    error  // original cause
}

func (e *Error) Error() string {
	var prefix string
	switch e.Kind {
	case KindCodec:
		prefix = e.Op.String() + " error"
	case KindTransport:
		prefix = "transport error"
	case KindApplication:
		prefix = "application error"
	default:
		prefix = "rpc error"
	}
	if e.Method != "" {
		prefix += " in " + e.Method
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by Kind (and by Op when the target sets one).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Op == 0 || t.Op == e.Op
}

// Transport wraps a Handler failure.
func Transport(method string, err error) *Error {
	return &Error{Kind: KindTransport, Method: method, Err: err}
}

// Encode wraps a payload encoding failure.
func Encode(method string, err error) *Error {
	return &Error{Kind: KindCodec, Op: OpEncode, Method: method, Err: err}
}

// Decode wraps a payload decoding failure.
func Decode(method string, err error) *Error {
	return &Error{Kind: KindCodec, Op: OpDecode, Method: method, Err: err}
}

// Application wraps a service implementation failure.
func Application(method string, err error) *Error {
	return &Error{Kind: KindApplication, Method: method, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or 0 if there is none.
//
// A Server used directly as a Client's Handler nests its error inside the client's
// Transport error, so KindOf reports KindTransport for a service failure there. Use
// errors.Is(err, ErrApplication) or AsApplication to find the inner application failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// AsApplication finds the outermost application failure in err's chain and extracts the
// domain error of type E from its cause.
func AsApplication[E error](err error) (E, bool) {
	var zero E
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return zero, false
		}
		if e.Kind == KindApplication {
			var target E
			if errors.As(e.Err, &target) {
				return target, true
			}
			return zero, false
		}
		err = e.Err
	}
	return zero, false
}
