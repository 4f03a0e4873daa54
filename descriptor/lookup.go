package descriptor

import (
	"errors"
	"fmt"
)

// ErrMethodNotFound is matched (via errors.Is) by every *MethodNotFoundError.
var ErrMethodNotFound = errors.New("method not found")

// MethodNotFoundError reports that an external identifier does not name a method of the
// service. It is produced only by the routing layer, never by a typed call.
type MethodNotFoundError struct {
	Service string
	Method  string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q in service %q", ErrMethodNotFound, e.Method, e.Service)
}

// Is supports errors.Is(err, ErrMethodNotFound).
func (e *MethodNotFoundError) Is(target error) bool {
	return target == ErrMethodNotFound
}

// Lookup maps an external method identifier to the service's method enum. Both the Go
// name and the proto name are accepted.
func Lookup[M MethodDescriptor](sd ServiceDescriptor[M], name string) (M, error) {
	for _, m := range sd.Methods() {
		if m.ProtoName() == name || m.Name() == name {
			return m, nil
		}
	}
	var zero M
	return zero, &MethodNotFoundError{Service: sd.ProtoName(), Method: name}
}

// MethodInfo is the plain-data form of a MethodDescriptor.
type MethodInfo struct {
	Name       string `json:"name"`
	ProtoName  string `json:"proto_name"`
	InputType  string `json:"input_type"`
	OutputType string `json:"output_type"`
}

// ServiceInfo is the plain-data form of a ServiceDescriptor, used where the concrete
// method type is not available (registry entries, logs).
type ServiceInfo struct {
	Name      string       `json:"name"`
	ProtoName string       `json:"proto_name"`
	Methods   []MethodInfo `json:"methods"`
}

// Describe flattens a service descriptor into a ServiceInfo.
func Describe[M MethodDescriptor](sd ServiceDescriptor[M]) ServiceInfo {
	methods := sd.Methods()
	info := ServiceInfo{
		Name:      sd.Name(),
		ProtoName: sd.ProtoName(),
		Methods:   make([]MethodInfo, 0, len(methods)),
	}
	for _, m := range methods {
		info.Methods = append(info.Methods, MethodInfo{
			Name:       m.Name(),
			ProtoName:  m.ProtoName(),
			InputType:  m.InputProtoType(),
			OutputType: m.OutputProtoType(),
		})
	}
	return info
}
