// Package registry records which addresses serve which services.
//
// Servers register one ServiceInstance per mounted service; clients discover the live
// instances of a service and hand them to a load balancer.
package registry

import (
	"context"
	"errors"

	"simple-rpc/descriptor"

	"github.com/google/uuid"
)

// ErrNotRegistered is returned by Deregister for an unknown instance.
var ErrNotRegistered = errors.New("registry: instance not registered")

type ServiceInstance struct {
	ID      string                  `json:"id"`      // unique per registration
	Service string                  `json:"service"` // service proto name, e.g. "echo.Echo"
	Addr    string                  `json:"addr"`
	Weight  int                     `json:"weight"` // Weight for load balancing
	Version string                  `json:"version,omitempty"`
	Methods []descriptor.MethodInfo `json:"methods,omitempty"`
}

// NewInstance describes the service info served at addr, with weight 1 and a fresh ID.
func NewInstance(info descriptor.ServiceInfo, addr string) ServiceInstance {
	return ServiceInstance{
		ID:      uuid.NewString(),
		Service: info.ProtoName,
		Addr:    addr,
		Weight:  1,
		Methods: info.Methods,
	}
}

type Registry interface {
	// Register publishes instance for ttl seconds, renewed until Deregister.
	Register(ctx context.Context, instance ServiceInstance, ttl int64) error
	Deregister(ctx context.Context, service string, addr string) error
	Discover(ctx context.Context, service string) ([]ServiceInstance, error)
	// Watch emits the full instance list of service on every change until ctx is done.
	Watch(ctx context.Context, service string) (<-chan []ServiceInstance, error)
}
