package transport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"simple-rpc/descriptor"
	"simple-rpc/server"
)

// route dispatches a call whose method is still an external string.
type route struct {
	info     descriptor.ServiceInfo
	dispatch func(ctx context.Context, method string, input []byte) ([]byte, error)
}

// Router maps wire names ("<service>/<method>") onto mounted servers. This is the only
// place where a method can be unknown.
type Router struct {
	mu       sync.RWMutex
	services map[string]route // service proto name → route
}

func NewRouter() *Router {
	return &Router{services: make(map[string]route)}
}

// Mount registers srv under its service proto name.
func Mount[M descriptor.MethodDescriptor](r *Router, srv *server.Server[M]) error {
	sd := srv.Descriptor()
	name := sd.ProtoName()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.services[name]; dup {
		return fmt.Errorf("service %s already mounted", name)
	}
	r.services[name] = route{
		info:     descriptor.Describe(sd),
		dispatch: func(ctx context.Context, method string, input []byte) ([]byte, error) {
			m, err := descriptor.Lookup(sd, method)
			if err != nil {
				return nil, err
			}
			return srv.Call(ctx, m, input)
		},
	}
	return nil
}

// Dispatch routes one raw call.
func (r *Router) Dispatch(ctx context.Context, serviceMethod string, input []byte) ([]byte, error) {
	i := strings.LastIndex(serviceMethod, "/")
	if i < 0 {
		return nil, &descriptor.MethodNotFoundError{Method: serviceMethod}
	}
	service, method := serviceMethod[:i], serviceMethod[i+1:]

	r.mu.RLock()
	rt, ok := r.services[service]
	r.mu.RUnlock()
	if !ok {
		return nil, &descriptor.MethodNotFoundError{Service: service, Method: method}
	}
	return rt.dispatch(ctx, method, input)
}

// Services describes every mounted service, sorted by proto name.
func (r *Router) Services() []descriptor.ServiceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]descriptor.ServiceInfo, 0, len(r.services))
	for _, rt := range r.services {
		infos = append(infos, rt.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ProtoName < infos[j].ProtoName
	})
	return infos
}
