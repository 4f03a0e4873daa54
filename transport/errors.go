package transport

import (
	"errors"
	"fmt"

	"simple-rpc/descriptor"
	"simple-rpc/message"
	"simple-rpc/rpcerr"
)

// RemoteError is a failure reported by the serving process. Kind is the rpcerr.Kind the
// remote server assigned; zero means the route (service or method) was not found.
type RemoteError struct {
	Kind    rpcerr.Kind
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind == 0 {
		return "remote: " + e.Message
	}
	return fmt.Sprintf("remote %s error: %s", e.Kind, e.Message)
}

// Is matches descriptor.ErrMethodNotFound for routing failures.
func (e *RemoteError) Is(target error) bool {
	return e.Kind == 0 && target == descriptor.ErrMethodNotFound
}

func remoteError(msg *message.RPCMessage) *RemoteError {
	return &RemoteError{Kind: rpcerr.Kind(msg.ErrorKind), Message: msg.Error}
}

// failure fills the error fields of a response envelope from err.
func failure(msg *message.RPCMessage, err error) {
	msg.Payload = nil
	msg.Error = err.Error()
	switch {
	case errors.Is(err, descriptor.ErrMethodNotFound):
		msg.ErrorKind = 0
	case rpcerr.KindOf(err) != 0:
		msg.ErrorKind = uint8(rpcerr.KindOf(err))
	default:
		msg.ErrorKind = uint8(rpcerr.KindTransport)
	}
}
