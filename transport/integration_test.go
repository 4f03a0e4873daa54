package transport

import (
	"context"
	"testing"
	"time"

	"simple-rpc/example/greeting"
	"simple-rpc/loadbalance"
	"simple-rpc/middleware"
	"simple-rpc/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// newEtcd connects to a local etcd, skipping the test when none is running.
func newEtcd(t *testing.T) *registry.EtcdRegistry {
	t.Helper()
	reg, err := registry.NewEtcdRegistry([]string{"127.0.0.1:2379"}, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := reg.Ping(ctx); err != nil {
		t.Skipf("etcd not reachable: %v", err)
	}
	return reg
}

// TestMultiServerWithEtcd 多实例 + 负载均衡 + etcd
// 链路: Client → Discovery(etcd) → LB → Pool → Protocol → Codec → Router → Server → Service
func TestMultiServerWithEtcd(t *testing.T) {
	reg := newEtcd(t)

	// 启动 2 个 Server，各自注册到 etcd
	_, addrA := serveRegistered(t, reg)
	_, addrB := serveRegistered(t, reg)

	pool := NewPool(1)
	d := NewDiscovery(reg, &loadbalance.RoundRobinBalancer{}, pool)
	defer d.Close()

	h := middleware.Wrap[greeting.GreetingMethod](greeting.GreetingDescriptor{},
		NewHandler[greeting.GreetingMethod](d, greeting.GreetingDescriptor{}),
		middleware.TimeOutMiddleware(2*time.Second),
	)
	c := greeting.NewGreetingClient(h)

	// 发 10 个请求，验证全部正确
	for i := 0; i < 10; i++ {
		resp, err := c.SayHello(context.Background(), wrapperspb.String("bob"))
		require.NoError(t, err, "request %d", i)
		assert.Equal(t, "Hello, bob!", resp.GetValue())
	}
	assert.Equal(t, 1, pool.Len(addrA))
	assert.Equal(t, 1, pool.Len(addrB))
}
