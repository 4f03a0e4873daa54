// Package descriptor defines the static description of an RPC service and its methods.
//
// A service is described by two generated types:
//
//	EchoDescriptor struct{}  // zero-size, implements ServiceDescriptor[EchoMethod]
//	EchoMethod     int       // enum, one constant per RPC, implements MethodDescriptor
//
// Both are pure lookup tables. They are queried through their zero values and never
// carry per-call state. Because the method set is a closed enum, the typed client and
// server never see an "unknown method"; only the string routing layer (Lookup) can
// miss, and it reports that explicitly with ErrMethodNotFound.
package descriptor

// MethodDescriptor identifies exactly one RPC method of a service.
//
// Implementations are small comparable values (normally an integer enum) so they can be
// used as map keys and compared cheaply on every call.
type MethodDescriptor interface {
	comparable

	// Name is the method name as written in Go code, e.g. "SayHello".
	Name() string
	// ProtoName is the method name as written in the .proto file.
	ProtoName() string
	// InputProtoType is the fully qualified protobuf name of the request message.
	InputProtoType() string
	// OutputProtoType is the fully qualified protobuf name of the response message.
	OutputProtoType() string
}

// ServiceDescriptor enumerates the methods of one service.
type ServiceDescriptor[M MethodDescriptor] interface {
	// Name is the service name as written in Go code, e.g. "Greeting".
	Name() string
	// ProtoName is the fully qualified protobuf service name, e.g. "greeting.Greeting".
	ProtoName() string
	// Methods lists every method of the service in declaration order.
	Methods() []M
}

// FullMethod returns the wire name of a method: "<service proto name>/<method proto name>".
func FullMethod[M MethodDescriptor](sd ServiceDescriptor[M], m M) string {
	return sd.ProtoName() + "/" + m.ProtoName()
}
