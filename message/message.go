// Package message defines the envelope exchanged by the TCP transport.
//
// RPCMessage carries one call over the wire. It is serialized by the codec layer and
// wrapped in a protocol frame. The core client and server never see it: they exchange
// raw payload bytes through a Handler, and only the transport packs those bytes into an
// envelope.
package message

// RPCMessage carries the data for a single RPC request or response.
//
//   - On request:  ServiceMethod is set, Payload holds the encoded request.
//   - On response: Payload holds the encoded response, or Error/ErrorKind describe the failure.
type RPCMessage struct {
	ServiceMethod string // Format: "<service proto name>/<method proto name>", e.g. "echo.Echo/Echo"
	Error         string // Non-empty if the remote call failed
	ErrorKind     uint8  // rpcerr.Kind of the remote failure, 0 if unclassified or no failure
	Payload       []byte // Encoded request or response message
}

// Failed reports whether the message describes a failed call.
func (m *RPCMessage) Failed() bool {
	return m.Error != "" || m.ErrorKind != 0
}
